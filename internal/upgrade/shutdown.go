package upgrade

// Shutdown stops the engine (socket first, then service) and, after a
// settle delay, the runtime it depends on.
type Shutdown struct{}

func (Shutdown) Name() string { return "shutdown" }

func (s Shutdown) Run(ctx *Context) error {
	name := s.Name()
	svc := ctx.Config.Services

	ctx.stopUnit(name, svc.EngineSocket)
	ctx.stopUnit(name, svc.Engine)

	ctx.Observer.Printf("[%s] waiting %v before stopping %s", name, ctx.Timeouts.SettleStop, svc.Runtime)
	if err := ctx.sleep(ctx.Timeouts.SettleStop); err != nil {
		return abort(name, "interrupted while waiting for the engine to stop", "", err)
	}

	ctx.stopUnit(name, svc.Runtime)
	return nil
}

package upgrade

import (
	"fmt"
	"time"
)

// Terminal is the final state of a run.
type Terminal string

const (
	TerminalComplete Terminal = "complete"
	TerminalAborted  Terminal = "aborted"
)

// PhaseResult records the outcome of one executed phase.
type PhaseResult struct {
	Name     string
	Duration time.Duration
	Err      error
}

// Report summarises a pipeline run.
type Report struct {
	Terminal Terminal
	Phases   []PhaseResult
	Warnings []string
	Duration time.Duration
}

// Pipeline is an ordered list of phases.
type Pipeline struct {
	Name   string
	Phases []Phase
}

// NewPipeline creates a pipeline running phases in order.
func NewPipeline(name string, phases ...Phase) *Pipeline {
	return &Pipeline{Name: name, Phases: phases}
}

// UpgradePipeline returns the upgrade phases in execution order.
func UpgradePipeline() *Pipeline {
	return NewPipeline("upgrade",
		Preflight{},
		ClusterDrain{},
		Snapshot{},
		Shutdown{},
		Transition{},
		MigrateConfig{},
		FilesystemGate{},
		Toolkit{},
		Startup{},
		Verify{},
		Reactivate{},
	)
}

// RollbackPipeline returns the rollback phases. backupDir selects a
// specific record; empty means the most recent one.
func RollbackPipeline(backupDir string) *Pipeline {
	return NewPipeline("rollback",
		Preflight{},
		LocateBackup{Dir: backupDir},
		ClusterDrain{},
		Shutdown{},
		Transition{},
		RestoreConfig{},
		Startup{},
		Verify{},
		Reactivate{},
	)
}

// Run executes all phases sequentially and stops at the first error.
// The returned report is never nil.
func (p *Pipeline) Run(ctx *Context) (*Report, error) {
	start := ctx.now()
	report := &Report{Terminal: TerminalComplete}
	ctx.Observer.Printf("Starting %s with %d phases...", p.Name, len(p.Phases))

	for i, phase := range p.Phases {
		if err := ctx.Err(); err != nil {
			return p.fail(ctx, report, start, phase, fmt.Errorf("interrupted before %s: %w", phase.Name(), err))
		}

		phaseStart := ctx.now()
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(p.Phases))
		LogPhaseStart(ctx.Observer, name)

		err := phase.Run(ctx)
		elapsed := ctx.now().Sub(phaseStart)
		report.Phases = append(report.Phases, PhaseResult{Name: phase.Name(), Duration: elapsed, Err: err})

		if err != nil {
			LogPhaseFailed(ctx.Observer, name, err)
			if hint := HintOf(err); hint != "" {
				ctx.Observer.Printf("[%s] hint: %s", phase.Name(), hint)
			}
			return p.fail(ctx, report, start, phase, err)
		}

		LogPhaseComplete(ctx.Observer, name, elapsed)
	}

	report.Warnings = ctx.State.Warnings
	report.Duration = ctx.now().Sub(start)
	ctx.Observer.Printf("%s %s in %v with %d warning(s)", p.Name, report.Terminal, report.Duration.Round(time.Millisecond), len(report.Warnings))
	return report, nil
}

func (p *Pipeline) fail(ctx *Context, report *Report, start time.Time, phase Phase, err error) (*Report, error) {
	report.Terminal = TerminalAborted
	report.Warnings = ctx.State.Warnings
	report.Duration = ctx.now().Sub(start)
	ctx.Observer.Printf("%s %s in %v", p.Name, report.Terminal, report.Duration.Round(time.Millisecond))
	return report, fmt.Errorf("%s phase failed: %w", phase.Name(), err)
}

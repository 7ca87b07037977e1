package upgrade

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/platform/runtimeconfig"
	"github.com/imamik/dockshift/internal/prompt"
)

// FilesystemGate blocks startup while the runtime data root sits on an
// xfs filesystem without ftype=1. The operator either supplies a
// compatible location, which is written to the configuration and read
// back, or aborts.
type FilesystemGate struct{}

func (FilesystemGate) Name() string { return "filesystem-gate" }

func (g FilesystemGate) Run(ctx *Context) error {
	name := g.Name()

	root, err := runtimeDataRoot(ctx)
	if err != nil {
		return abort(name, "could not read the runtime data root", "", err)
	}
	ctx.State.DataRoot = root

	rep := fsinfo.Check(ctx, ctx.Inspector, root)
	ctx.State.DataRootReport = rep
	g.checkEngineRoot(ctx)

	switch rep.Status {
	case fsinfo.CompatOK:
		ctx.Observer.Printf("[%s] data root %s: %s", name, root, rep.Detail)
		return nil
	case fsinfo.CompatUnknown:
		ctx.warnf(name, "could not determine the filesystem of %s, proceeding: %s", root, rep.Detail)
		return nil
	}

	ctx.State.DataRootBlocked = true
	ctx.Observer.Printf("[%s] data root %s is on an incompatible filesystem: %s", name, root, rep.Detail)

	candidate, candRep, err := g.remediate(ctx)
	if err != nil {
		return err
	}
	if err := g.rewrite(ctx, candidate); err != nil {
		return err
	}

	ctx.State.DataRoot = candidate
	ctx.State.DataRootReport = candRep
	ctx.State.DataRootBlocked = false
	ctx.State.ConfigRewritten = true
	ctx.Observer.Event(Event{
		Type:     EventConfigWritten,
		Phase:    name,
		Resource: ctx.Config.Runtime.ConfigPath,
		Message:  fmt.Sprintf("data root moved to %s (%s)", candidate, candRep.Detail),
	})
	return nil
}

// remediate prompts for alternative data roots until one passes the check
// or the operator gives up.
func (g FilesystemGate) remediate(ctx *Context) (string, fsinfo.Report, error) {
	name := g.Name()
	for {
		answer, err := ctx.Operator.Input(ctx, "Alternative containerd data root on a compatible filesystem (empty to abort)", "")
		if errors.Is(err, prompt.ErrNoAnswer) || (err == nil && answer == "") {
			return "", fsinfo.Report{}, abort(name, "data root left on an incompatible filesystem",
				"reformat with `mkfs.xfs -n ftype=1` or choose a data root on another filesystem", ErrOperatorAbort)
		}
		if err != nil {
			return "", fsinfo.Report{}, abort(name, "prompt failed", "", err)
		}

		path := filepath.Clean(answer)
		if !filepath.IsAbs(path) {
			ctx.Observer.Printf("[%s] %q is not an absolute path", name, answer)
			continue
		}

		parent := filepath.Dir(path)
		exists, err := ctx.FS.IsDir(ctx, parent)
		if err != nil {
			ctx.Observer.Printf("[%s] could not inspect %s: %v", name, parent, err)
			continue
		}
		if !exists {
			create, err := ctx.confirm(name, fmt.Sprintf("Parent directory %s does not exist. Create it?", parent), true)
			if err != nil {
				return "", fsinfo.Report{}, err
			}
			if !create {
				continue
			}
			if err := ctx.FS.MkdirAll(ctx, parent, 0o711); err != nil {
				ctx.Observer.Printf("[%s] could not create %s: %v", name, parent, err)
				continue
			}
		}

		rep := fsinfo.Check(ctx, ctx.Inspector, path)
		switch rep.Status {
		case fsinfo.CompatOK:
			ctx.Observer.Printf("[%s] %s is compatible: %s", name, path, rep.Detail)
			return path, rep, nil
		case fsinfo.CompatBad:
			ctx.Observer.Printf("[%s] %s is also incompatible: %s", name, path, rep.Detail)
		default:
			use, err := ctx.confirm(name, fmt.Sprintf("Could not check %s (%s). Use it anyway?", path, rep.Detail), false)
			if err != nil {
				return "", fsinfo.Report{}, err
			}
			if use {
				ctx.warnf(name, "using %s without a confirmed filesystem check", path)
				return path, rep, nil
			}
		}
	}
}

// rewrite points the runtime configuration at root and verifies the
// change on disk. An unverified edit is fatal.
func (g FilesystemGate) rewrite(ctx *Context, root string) error {
	name := g.Name()
	path := ctx.Config.Runtime.ConfigPath

	data, err := ctx.FS.ReadFile(ctx, path)
	if err != nil {
		return abort(name, "could not read "+path, "", err)
	}
	updated, err := runtimeconfig.SetRoot(data, root)
	if err != nil {
		return abort(name, "could not rewrite the data root directive", "", err)
	}
	if err := ctx.FS.WriteFile(ctx, path, updated, 0o644); err != nil {
		return abort(name, "could not write "+path, "", err)
	}

	written, err := ctx.FS.ReadFile(ctx, path)
	if err == nil {
		var got string
		got, err = runtimeconfig.Root(written)
		if err == nil && got != root {
			err = fmt.Errorf("root is %q, want %q", got, root)
		}
	}
	if err != nil {
		return abort(name, "data root rewrite could not be verified",
			fmt.Sprintf("edit root in %s by hand and restore from the backup if unsure", path), err)
	}
	ctx.Observer.Printf("[%s] verified root = %q in %s", name, root, path)
	return nil
}

// checkEngineRoot warns when the engine's own data root is on an
// incompatible filesystem. The engine configuration is never rewritten.
func (g FilesystemGate) checkEngineRoot(ctx *Context) {
	root, err := engineDataRoot(ctx)
	if err != nil {
		ctx.warnf(g.Name(), "could not read the engine data root: %v", err)
		return
	}
	if rep := fsinfo.Check(ctx, ctx.Inspector, root); rep.Status == fsinfo.CompatBad {
		ctx.warnf(g.Name(), "engine data root %s is on an incompatible filesystem: %s", root, rep.Detail)
	}
}

// runtimeDataRoot resolves the runtime's configured root.
func runtimeDataRoot(ctx *Context) (string, error) {
	data, err := ctx.FS.ReadFile(ctx, ctx.Config.Runtime.ConfigPath)
	if err != nil {
		return "", err
	}
	root, err := runtimeconfig.Root(data)
	if err != nil {
		return "", err
	}
	if root == "" {
		return ctx.Config.Runtime.DefaultRoot, nil
	}
	return root, nil
}

// engineDataRoot reads data-root from daemon.json, which may carry comments.
func engineDataRoot(ctx *Context) (string, error) {
	path := ctx.Config.Engine.ConfigPath
	ok, err := ctx.FS.Exists(ctx, path)
	if err != nil {
		return "", err
	}
	if !ok {
		return ctx.Config.Engine.DefaultDataRoot, nil
	}
	data, err := ctx.FS.ReadFile(ctx, path)
	if err != nil {
		return "", err
	}
	var daemon struct {
		DataRoot string `json:"data-root"`
	}
	if err := json.Unmarshal(jsonc.ToJSON(data), &daemon); err != nil {
		return "", fmt.Errorf("failed to parse %s: %w", path, err)
	}
	if daemon.DataRoot == "" {
		return ctx.Config.Engine.DefaultDataRoot, nil
	}
	return daemon.DataRoot, nil
}

package fsinfo

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/imamik/dockshift/internal/hostfs"
	"github.com/imamik/dockshift/internal/runner"
)

// Remote inspects a host through findmnt, xfs_info and df.
type Remote struct {
	Runner runner.Runner
	FS     hostfs.FS
}

// Mount implements Inspector.
func (r *Remote) Mount(ctx context.Context, path string) (Mount, error) {
	p, err := nearestExisting(ctx, r.FS, path)
	if err != nil {
		return Mount{}, err
	}
	out, err := runner.Output(ctx, r.Runner, runner.Cmd("findmnt", "-n", "-o", "TARGET,FSTYPE,SOURCE", "--target", p))
	if err != nil {
		return Mount{}, fmt.Errorf("findmnt %s failed: %w", p, err)
	}
	f := strings.Fields(out)
	if len(f) < 2 {
		return Mount{}, fmt.Errorf("unexpected findmnt output %q", out)
	}
	m := Mount{Point: f[0], FSType: f[1]}
	if len(f) > 2 {
		m.Source = f[2]
	}
	return m, nil
}

// XFSFtype implements Inspector.
func (r *Remote) XFSFtype(ctx context.Context, mountPoint string) (bool, error) {
	return xfsFtype(ctx, r.Runner, mountPoint)
}

// Available implements Inspector.
func (r *Remote) Available(ctx context.Context, path string) (uint64, error) {
	p, err := nearestExisting(ctx, r.FS, path)
	if err != nil {
		return 0, err
	}
	out, err := runner.Output(ctx, r.Runner, runner.Cmd("df", "-B1", "--output=avail", p))
	if err != nil {
		return 0, fmt.Errorf("df %s failed: %w", p, err)
	}
	lines := strings.Split(out, "\n")
	n, err := strconv.ParseUint(strings.TrimSpace(lines[len(lines)-1]), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected df output %q", out)
	}
	return n, nil
}

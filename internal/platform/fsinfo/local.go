package fsinfo

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/moby/sys/mountinfo"
	"golang.org/x/sys/unix"

	"github.com/imamik/dockshift/internal/hostfs"
	"github.com/imamik/dockshift/internal/runner"
)

// Local inspects this machine's mount table.
type Local struct {
	Runner runner.Runner
	FS     hostfs.FS
}

// Mount implements Inspector.
func (l *Local) Mount(ctx context.Context, path string) (Mount, error) {
	p, err := nearestExisting(ctx, l.FS, path)
	if err != nil {
		return Mount{}, err
	}
	if resolved, err := filepath.EvalSymlinks(p); err == nil {
		p = resolved
	}

	mounts, err := mountinfo.GetMounts(mountinfo.ParentsFilter(p))
	if err != nil {
		return Mount{}, fmt.Errorf("failed to read mount table: %w", err)
	}
	var best *mountinfo.Info
	for _, m := range mounts {
		if best == nil || len(m.Mountpoint) >= len(best.Mountpoint) {
			best = m
		}
	}
	if best == nil {
		return Mount{}, fmt.Errorf("no mount found for %s", p)
	}
	return Mount{Point: best.Mountpoint, FSType: best.FSType, Source: best.Source}, nil
}

// XFSFtype implements Inspector.
func (l *Local) XFSFtype(ctx context.Context, mountPoint string) (bool, error) {
	return xfsFtype(ctx, l.Runner, mountPoint)
}

// Available implements Inspector.
func (l *Local) Available(ctx context.Context, path string) (uint64, error) {
	p, err := nearestExisting(ctx, l.FS, path)
	if err != nil {
		return 0, err
	}
	var st unix.Statfs_t
	if err := unix.Statfs(p, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", p, err)
	}
	return st.Bavail * uint64(st.Bsize), nil // #nosec G115 - block size is positive
}

// Package fsinfo resolves which filesystem holds a path and whether that
// filesystem can host overlay-based container storage.
package fsinfo

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/imamik/dockshift/internal/hostfs"
	"github.com/imamik/dockshift/internal/runner"
)

// Mount is the filesystem a path resides on.
type Mount struct {
	Point  string
	FSType string
	Source string
}

// Inspector answers filesystem questions about the target host.
type Inspector interface {
	// Mount returns the mount holding path. path need not exist yet; its
	// nearest existing ancestor is used.
	Mount(ctx context.Context, path string) (Mount, error)
	// XFSFtype reports whether the xfs filesystem at mountPoint was
	// created with ftype=1.
	XFSFtype(ctx context.Context, mountPoint string) (bool, error)
	// Available returns the bytes available to unprivileged users at path.
	Available(ctx context.Context, path string) (uint64, error)
}

// New returns a mountinfo/statfs based inspector for the local host and a
// findmnt/df based one otherwise.
func New(r runner.Runner, fsys hostfs.FS) Inspector {
	if r.Local() {
		return &Local{Runner: r, FS: fsys}
	}
	return &Remote{Runner: r, FS: fsys}
}

// Compat is the result of a compatibility check.
type Compat string

const (
	CompatOK      Compat = "ok"
	CompatBad     Compat = "bad"
	CompatUnknown Compat = "unknown"
)

// Report is the Filesystem Compatibility Record of one path.
type Report struct {
	Path   string
	Mount  Mount
	Status Compat
	Detail string
}

// Check classifies path: xfs without ftype=1 is bad, any other filesystem
// is ok, and failed detection is unknown.
func Check(ctx context.Context, insp Inspector, path string) Report {
	rep := Report{Path: path}
	m, err := insp.Mount(ctx, path)
	if err != nil {
		rep.Status = CompatUnknown
		rep.Detail = err.Error()
		return rep
	}
	rep.Mount = m

	if m.FSType != "xfs" {
		rep.Status = CompatOK
		rep.Detail = fmt.Sprintf("%s on %s", m.FSType, m.Point)
		return rep
	}

	ftype, err := insp.XFSFtype(ctx, m.Point)
	switch {
	case err != nil:
		rep.Status = CompatUnknown
		rep.Detail = fmt.Sprintf("xfs on %s, ftype undetermined: %v", m.Point, err)
	case ftype:
		rep.Status = CompatOK
		rep.Detail = fmt.Sprintf("xfs on %s with ftype=1", m.Point)
	default:
		rep.Status = CompatBad
		rep.Detail = fmt.Sprintf("xfs on %s with ftype=0 (d_type unsupported)", m.Point)
	}
	return rep
}

// ParseXFSFtype reads the ftype flag from xfs_info output.
func ParseXFSFtype(out string) (bool, error) {
	for _, field := range strings.Fields(out) {
		if v, ok := strings.CutPrefix(field, "ftype="); ok {
			return v == "1", nil
		}
	}
	return false, fmt.Errorf("xfs_info output has no ftype field")
}

func xfsFtype(ctx context.Context, r runner.Runner, mountPoint string) (bool, error) {
	out, err := runner.Output(ctx, r, runner.Cmd("xfs_info", mountPoint))
	if err != nil {
		return false, fmt.Errorf("xfs_info %s failed: %w", mountPoint, err)
	}
	return ParseXFSFtype(out)
}

// nearestExisting walks up from path to the first ancestor that exists.
func nearestExisting(ctx context.Context, fsys hostfs.FS, path string) (string, error) {
	p := filepath.Clean(path)
	for {
		ok, err := fsys.Exists(ctx, p)
		if err != nil {
			return "", err
		}
		if ok {
			return p, nil
		}
		parent := filepath.Dir(p)
		if parent == p {
			return "", fmt.Errorf("no existing ancestor of %s", path)
		}
		p = parent
	}
}

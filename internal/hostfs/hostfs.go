// Package hostfs gives the upgrade pipeline file access on the target host,
// which is either this machine or a remote host reached through a runner.
package hostfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/juju/utils/v4"

	"github.com/imamik/dockshift/internal/runner"
)

// tmpSuffix names the file a remote write goes to before it is renamed
// over the target.
const tmpSuffix = ".dockshift-tmp"

// FS is the subset of file operations the pipeline needs.
type FS interface {
	ReadFile(ctx context.Context, path string) ([]byte, error)
	WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error
	MkdirAll(ctx context.Context, path string, perm os.FileMode) error
	// Mkdir creates a single directory and fails with fs.ErrExist if it exists.
	Mkdir(ctx context.Context, path string, perm os.FileMode) error
	Exists(ctx context.Context, path string) (bool, error)
	IsDir(ctx context.Context, path string) (bool, error)
	// ReadDir returns the sorted entry names of a directory.
	ReadDir(ctx context.Context, path string) ([]string, error)
}

// For returns the FS matching r.
func For(r runner.Runner) FS {
	if r.Local() {
		return Local{}
	}
	return &Remote{Runner: r}
}

// Glob returns the entries of dir matching pattern, as full paths.
func Glob(ctx context.Context, fsys FS, dir, pattern string) ([]string, error) {
	names, err := fsys.ReadDir(ctx, dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, n := range names {
		ok, err := filepath.Match(pattern, n)
		if err != nil {
			return nil, fmt.Errorf("bad pattern %q: %w", pattern, err)
		}
		if ok {
			out = append(out, filepath.Join(dir, n))
		}
	}
	return out, nil
}

// Local is the FS of this machine.
type Local struct{}

func (Local) ReadFile(_ context.Context, path string) ([]byte, error) {
	// #nosec G304 - paths come from configuration
	return os.ReadFile(path)
}

// WriteFile replaces path atomically: readers see the old content or the
// new one, never a partial file.
func (Local) WriteFile(_ context.Context, path string, data []byte, perm os.FileMode) error {
	return utils.AtomicWriteFile(path, data, perm)
}

func (Local) MkdirAll(_ context.Context, path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (Local) Mkdir(_ context.Context, path string, perm os.FileMode) error {
	return os.Mkdir(path, perm)
}

func (Local) Exists(_ context.Context, path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (Local) IsDir(_ context.Context, path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return info.IsDir(), nil
}

func (Local) ReadDir(_ context.Context, path string) ([]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// Remote implements FS with coreutils invoked through a runner.
type Remote struct {
	Runner runner.Runner
}

func (r *Remote) ReadFile(ctx context.Context, path string) ([]byte, error) {
	if ok, err := r.Exists(ctx, path); err != nil {
		return nil, err
	} else if !ok {
		return nil, &fs.PathError{Op: "open", Path: path, Err: fs.ErrNotExist}
	}
	res, err := r.Runner.Run(ctx, runner.Cmd("cat", "--", path))
	if err != nil {
		return nil, err
	}
	return []byte(res.Stdout), nil
}

// WriteFile writes a temporary file next to path and renames it into
// place, so an interrupted write never leaves path truncated.
func (r *Remote) WriteFile(ctx context.Context, path string, data []byte, perm os.FileMode) error {
	tmp := path + tmpSuffix
	steps := []runner.Command{
		{Name: "tee", Args: []string{"--", tmp}, Stdin: data},
		runner.Cmd("chmod", fmt.Sprintf("%o", perm.Perm()), "--", tmp),
		runner.Cmd("mv", "-f", "--", tmp, path),
	}
	for _, c := range steps {
		if _, err := r.Runner.Run(ctx, c); err != nil {
			_, _ = r.Runner.Run(ctx, runner.Cmd("rm", "-f", "--", tmp))
			return err
		}
	}
	return nil
}

func (r *Remote) MkdirAll(ctx context.Context, path string, perm os.FileMode) error {
	_, err := r.Runner.Run(ctx, runner.Cmd("mkdir", "-p", "-m", fmt.Sprintf("%o", perm.Perm()), "--", path))
	return err
}

func (r *Remote) Mkdir(ctx context.Context, path string, perm os.FileMode) error {
	if ok, err := r.Exists(ctx, path); err != nil {
		return err
	} else if ok {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	_, err := r.Runner.Run(ctx, runner.Cmd("mkdir", "-m", fmt.Sprintf("%o", perm.Perm()), "--", path))
	return err
}

func (r *Remote) Exists(ctx context.Context, path string) (bool, error) {
	return r.test(ctx, "-e", path)
}

func (r *Remote) IsDir(ctx context.Context, path string) (bool, error) {
	return r.test(ctx, "-d", path)
}

func (r *Remote) ReadDir(ctx context.Context, path string) ([]string, error) {
	out, err := runner.Output(ctx, r.Runner, runner.Cmd("ls", "-1A", "--", path))
	if err != nil {
		return nil, err
	}
	var names []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			names = append(names, line)
		}
	}
	sort.Strings(names)
	return names, nil
}

func (r *Remote) test(ctx context.Context, flag, path string) (bool, error) {
	_, err := r.Runner.Run(ctx, runner.Cmd("test", flag, path))
	if err == nil {
		return true, nil
	}
	if runner.ExitCode(err) == 1 {
		return false, nil
	}
	return false, err
}

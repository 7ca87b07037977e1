package backup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/imamik/dockshift/internal/hostfs"
)

const (
	dirPrefix  = "docker-upgrade-"
	timeLayout = "20060102-150405"
	maxSuffix  = 100
)

// Item names inside a record.
const (
	FileManifest      = "manifest.yaml"
	FileEngineVersion = "docker-version.txt"
	FileContainers    = "containers.txt"
	FileImages        = "images.txt"
	FileNetworks      = "networks.txt"
	FilePackages      = "packages.txt"
	FileServices      = "services.txt"
	FileRuntimeConfig = "config.toml"
	FileEngineConfig  = "daemon.json"
)

var (
	// ErrNotCaptured is returned when an item's source does not exist.
	ErrNotCaptured = errors.New("source not present, item not captured")
	// ErrNoBackups is returned by Latest when the root holds no records.
	ErrNoBackups = errors.New("no backup records found")
)

// Record is one backup directory.
type Record struct {
	Dir     string
	Created time.Time
	seq     int
	fs      hostfs.FS
}

// Name is the directory's base name.
func (r *Record) Name() string { return filepath.Base(r.Dir) }

// Path returns the location of an item inside the record.
func (r *Record) Path(name string) string { return filepath.Join(r.Dir, name) }

// Create makes a new record under root named after now.
func Create(ctx context.Context, fsys hostfs.FS, root string, now time.Time) (*Record, error) {
	if err := fsys.MkdirAll(ctx, root, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create backup root %s: %w", root, err)
	}
	base := dirPrefix + now.Format(timeLayout)
	for seq := 0; seq < maxSuffix; seq++ {
		name := base
		if seq > 0 {
			name = fmt.Sprintf("%s-%d", base, seq)
		}
		dir := filepath.Join(root, name)
		err := fsys.Mkdir(ctx, dir, 0o700)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to create backup directory %s: %w", dir, err)
		}
		return &Record{Dir: dir, Created: now.Truncate(time.Second), seq: seq, fs: fsys}, nil
	}
	return nil, fmt.Errorf("failed to create backup directory: %s taken %d times", base, maxSuffix)
}

// Open loads an existing record.
func Open(ctx context.Context, fsys hostfs.FS, dir string) (*Record, error) {
	created, seq, ok := parseName(filepath.Base(dir))
	if !ok {
		return nil, fmt.Errorf("%s is not a backup record", dir)
	}
	isDir, err := fsys.IsDir(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup %s: %w", dir, err)
	}
	if !isDir {
		return nil, fmt.Errorf("backup %s: %w", dir, fs.ErrNotExist)
	}
	return &Record{Dir: dir, Created: created, seq: seq, fs: fsys}, nil
}

// List returns the records under root, newest first. A missing root
// yields an empty list.
func List(ctx context.Context, fsys hostfs.FS, root string) ([]*Record, error) {
	ok, err := fsys.IsDir(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup root %s: %w", root, err)
	}
	if !ok {
		return nil, nil
	}
	names, err := fsys.ReadDir(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup root %s: %w", root, err)
	}

	var records []*Record
	for _, n := range names {
		created, seq, ok := parseName(n)
		if !ok {
			continue
		}
		records = append(records, &Record{Dir: filepath.Join(root, n), Created: created, seq: seq, fs: fsys})
	}
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Created.Equal(records[j].Created) {
			return records[i].Created.After(records[j].Created)
		}
		return records[i].seq > records[j].seq
	})
	return records, nil
}

// Latest returns the most recent record under root.
func Latest(ctx context.Context, fsys hostfs.FS, root string) (*Record, error) {
	records, err := List(ctx, fsys, root)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: %w", root, ErrNoBackups)
	}
	return records[0], nil
}

// WriteFile stores data as an item.
func (r *Record) WriteFile(ctx context.Context, name string, data []byte) error {
	if err := r.fs.WriteFile(ctx, r.Path(name), data, 0o600); err != nil {
		return fmt.Errorf("failed to write backup item %s: %w", name, err)
	}
	return nil
}

// ReadFile reads an item.
func (r *Record) ReadFile(ctx context.Context, name string) ([]byte, error) {
	return r.fs.ReadFile(ctx, r.Path(name))
}

// Has reports whether an item was captured.
func (r *Record) Has(ctx context.Context, name string) (bool, error) {
	return r.fs.Exists(ctx, r.Path(name))
}

// CopyFile copies src into the record. A missing src yields ErrNotCaptured.
func (r *Record) CopyFile(ctx context.Context, src, name string) error {
	ok, err := r.fs.Exists(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to check %s: %w", src, err)
	}
	if !ok {
		return fmt.Errorf("%s: %w", src, ErrNotCaptured)
	}
	data, err := r.fs.ReadFile(ctx, src)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", src, err)
	}
	return r.WriteFile(ctx, name, data)
}

// Files lists the items in the record.
func (r *Record) Files(ctx context.Context) ([]string, error) {
	return r.fs.ReadDir(ctx, r.Dir)
}

// Size sums the sizes of the record's items.
func (r *Record) Size(ctx context.Context) (uint64, error) {
	files, err := r.Files(ctx)
	if err != nil {
		return 0, err
	}
	var total uint64
	for _, f := range files {
		data, err := r.ReadFile(ctx, f)
		if err != nil {
			return 0, err
		}
		total += uint64(len(data))
	}
	return total, nil
}

// WriteManifest stores m as manifest.yaml.
func (r *Record) WriteManifest(ctx context.Context, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	return r.WriteFile(ctx, FileManifest, data)
}

// Manifest reads manifest.yaml.
func (r *Record) Manifest(ctx context.Context) (Manifest, error) {
	data, err := r.ReadFile(ctx, FileManifest)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read manifest of %s: %w", r.Name(), err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse manifest of %s: %w", r.Name(), err)
	}
	return m, nil
}

func parseName(name string) (time.Time, int, bool) {
	rest, ok := strings.CutPrefix(name, dirPrefix)
	if !ok || len(rest) < len(timeLayout) {
		return time.Time{}, 0, false
	}
	created, err := time.ParseInLocation(timeLayout, rest[:len(timeLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	seq := 0
	if suffix := rest[len(timeLayout):]; suffix != "" {
		n, err := strconv.Atoi(strings.TrimPrefix(suffix, "-"))
		if err != nil || !strings.HasPrefix(suffix, "-") || n < 1 {
			return time.Time{}, 0, false
		}
		seq = n
	}
	return created, seq, true
}

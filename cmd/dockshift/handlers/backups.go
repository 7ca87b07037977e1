package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/imamik/dockshift/internal/backup"
	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/hostfs"
)

// BackupEntry describes one backup record in the backups listing.
type BackupEntry struct {
	Name          string    `json:"name"`
	Dir           string    `json:"dir"`
	Created       time.Time `json:"created"`
	EngineVersion string    `json:"engineVersion,omitempty"`
	TargetEngine  string    `json:"targetEngine,omitempty"`
	Size          uint64    `json:"size"`
	Items         int       `json:"items"`
	Local         bool      `json:"local"`
	Mirrored      bool      `json:"mirrored"`
}

// Backups handles the backups command: it lists the backup records under
// the backup root, newest first.
func Backups(ctx context.Context, opts BackupsOptions) error {
	cfg, err := loadConfig(opts.GlobalOptions)
	if err != nil {
		return err
	}
	r, err := connect(opts.GlobalOptions, config.LoadTimeouts())
	if err != nil {
		return err
	}
	if c, ok := r.(interface{ Close() error }); ok {
		defer func() { _ = c.Close() }()
	}

	entries, err := listBackups(ctx, hostfs.For(r), cfg.BackupRoot)
	if err != nil {
		return err
	}
	if mc := cfg.BackupMirror; mc.Enabled {
		var mirrored []backup.MirroredRecord
		client, err := mirrorClient(mc)
		if err == nil {
			mirrored, err = backup.ListMirrored(ctx, client, mc.Bucket, mc.Prefix, r.Target())
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: backup mirror not listed: %v\n", err)
		} else {
			entries = mergeMirrored(entries, mirrored, mc.Bucket)
		}
	}
	if opts.JSON {
		return printBackupsJSON(entries)
	}
	printBackups(cfg.BackupRoot, entries, time.Now())
	return nil
}

func listBackups(ctx context.Context, fsys hostfs.FS, root string) ([]BackupEntry, error) {
	records, err := backup.List(ctx, fsys, root)
	if err != nil {
		return nil, fmt.Errorf("failed to list backups: %w", err)
	}

	entries := make([]BackupEntry, 0, len(records))
	for _, rec := range records {
		e := BackupEntry{Name: rec.Name(), Dir: rec.Dir, Created: rec.Created, Local: true}
		if m, err := rec.Manifest(ctx); err == nil {
			e.EngineVersion = m.EngineVersion
			e.TargetEngine = m.TargetEngine
		}
		if files, err := rec.Files(ctx); err == nil {
			e.Items = len(files)
		}
		if size, err := rec.Size(ctx); err == nil {
			e.Size = size
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// mergeMirrored marks local entries present in the mirror and appends the
// records that only exist there, keeping newest first.
func mergeMirrored(entries []BackupEntry, mirrored []backup.MirroredRecord, bucket string) []BackupEntry {
	index := make(map[string]int, len(entries))
	for i, e := range entries {
		index[e.Name] = i
	}
	for _, m := range mirrored {
		if i, ok := index[m.Name]; ok {
			entries[i].Mirrored = true
			continue
		}
		entries = append(entries, BackupEntry{
			Name:     m.Name,
			Dir:      fmt.Sprintf("s3://%s/%s", bucket, m.Key),
			Created:  m.Created,
			Items:    m.Objects,
			Mirrored: true,
		})
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Created.After(entries[j].Created) })
	return entries
}

func printBackupsJSON(entries []BackupEntry) error {
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backups: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

func printBackups(root string, entries []BackupEntry, now time.Time) {
	fmt.Fprintln(stdout)
	title := fmt.Sprintf("Backups in %s", root)
	fmt.Fprintf(stdout, "  %s\n", title)
	fmt.Fprintln(stdout, "  "+strings.Repeat("═", len(title)))
	fmt.Fprintln(stdout)

	if len(entries) == 0 {
		fmt.Fprintln(stdout, "  No backups found. One is created by every upgrade run.")
		fmt.Fprintln(stdout)
		return
	}

	for _, e := range entries {
		engine := e.EngineVersion
		if engine == "" {
			engine = "unknown"
		}
		size := humanize.IBytes(e.Size)
		if !e.Local {
			size = "-"
		}
		fmt.Fprintf(stdout, "  %-36s engine %-8s %8s  %-14s %s\n",
			e.Name, engine, size, humanize.RelTime(e.Created, now, "ago", "from now"), location(e))
	}
	fmt.Fprintln(stdout)
	fmt.Fprintln(stdout, "  Restore the newest with 'dockshift rollback', or pick one with --backup <dir>.")
	fmt.Fprintln(stdout)
}

func location(e BackupEntry) string {
	switch {
	case e.Local && e.Mirrored:
		return "local+mirror"
	case e.Mirrored:
		return "mirror only"
	default:
		return "local"
	}
}

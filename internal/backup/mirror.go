package backup

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
)

// Uploader stores objects in a bucket.
type Uploader interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// Mirror uploads every item of r to bucket under prefix/host/<record>/.
// All items are attempted; the returned error joins the failures.
func Mirror(ctx context.Context, r *Record, up Uploader, bucket, prefix, host string) (int, error) {
	if err := up.EnsureBucket(ctx, bucket); err != nil {
		return 0, fmt.Errorf("failed to prepare bucket %s: %w", bucket, err)
	}
	files, err := r.Files(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list %s: %w", r.Dir, err)
	}

	var errs []error
	uploaded := 0
	for _, f := range files {
		data, err := r.ReadFile(ctx, f)
		if err != nil {
			errs = append(errs, fmt.Errorf("read %s: %w", f, err))
			continue
		}
		key := path.Join(prefix, host, r.Name(), f)
		if err := up.PutObject(ctx, bucket, key, data); err != nil {
			errs = append(errs, err)
			continue
		}
		uploaded++
	}
	return uploaded, errors.Join(errs...)
}

// Lister lists object keys in a bucket under a prefix.
type Lister interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
}

// MirroredRecord is a record found in the mirror.
type MirroredRecord struct {
	Name    string
	Key     string
	Created time.Time
	Objects int

	seq int
}

// ListMirrored returns the records mirrored for host, newest first. Keys
// that do not belong to a record are ignored.
func ListMirrored(ctx context.Context, l Lister, bucket, prefix, host string) ([]MirroredRecord, error) {
	base := path.Join(prefix, host) + "/"
	keys, err := l.ListObjects(ctx, bucket, base)
	if err != nil {
		return nil, fmt.Errorf("failed to list mirrored backups: %w", err)
	}

	byName := make(map[string]*MirroredRecord)
	for _, k := range keys {
		name, file, ok := strings.Cut(strings.TrimPrefix(k, base), "/")
		if !ok || file == "" {
			continue
		}
		rec, seen := byName[name]
		if !seen {
			created, seq, valid := parseName(name)
			if !valid {
				continue
			}
			rec = &MirroredRecord{Name: name, Key: base + name, Created: created, seq: seq}
			byName[name] = rec
		}
		rec.Objects++
	}

	records := make([]MirroredRecord, 0, len(byName))
	for _, rec := range byName {
		records = append(records, *rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if !records[i].Created.Equal(records[j].Created) {
			return records[i].Created.After(records[j].Created)
		}
		return records[i].seq > records[j].seq
	})
	return records, nil
}

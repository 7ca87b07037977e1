// Package runtimeconfig reads and edits the containerd config.toml.
//
// Edits are textual so comments, ordering and every table the file carries
// survive; each edit is checked by parsing the result.
package runtimeconfig

import (
	"bufio"
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// header is the subset of top-level keys dockshift cares about.
type header struct {
	Version int64  `toml:"version"`
	Root    string `toml:"root"`
	State   string `toml:"state"`
}

var (
	rootLine    = regexp.MustCompile(`^\s*root\s*=`)
	versionLine = regexp.MustCompile(`^\s*version\s*=`)
	tableLine   = regexp.MustCompile(`^\s*\[`)
)

// Validate reports whether data is a well-formed containerd config.
func Validate(data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return fmt.Errorf("runtime config is empty")
	}
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid runtime config: %w", err)
	}
	if v, ok := doc["version"]; ok {
		n, isInt := v.(int64)
		if !isInt || n < 1 {
			return fmt.Errorf("invalid runtime config: version must be a positive integer, got %v", v)
		}
	}
	return nil
}

// Version returns the schema version, 1 when the file has none.
func Version(data []byte) (int, error) {
	h, err := parse(data)
	if err != nil {
		return 0, err
	}
	if h.Version == 0 {
		return 1, nil
	}
	return int(h.Version), nil
}

// Root returns the configured data root, or "" when unset.
func Root(data []byte) (string, error) {
	h, err := parse(data)
	if err != nil {
		return "", err
	}
	return h.Root, nil
}

// SetRoot rewrites the top-level root directive to path, inserting it when
// absent, and returns the new content.
func SetRoot(data []byte, path string) ([]byte, error) {
	if err := Validate(data); err != nil {
		return nil, err
	}
	directive := fmt.Sprintf("root = %q", path)

	var out []string
	replaced := false
	insertAt := 0
	inTopLevel := true

	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if tableLine.MatchString(line) {
			inTopLevel = false
		}
		switch {
		case inTopLevel && rootLine.MatchString(line):
			line = directive
			replaced = true
		case inTopLevel && versionLine.MatchString(line):
			insertAt = len(out) + 1
		}
		out = append(out, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read runtime config: %w", err)
	}

	if !replaced {
		out = append(out[:insertAt], append([]string{directive}, out[insertAt:]...)...)
	}
	result := []byte(strings.Join(out, "\n") + "\n")

	got, err := Root(result)
	if err != nil {
		return nil, fmt.Errorf("rewritten runtime config does not parse: %w", err)
	}
	if got != path {
		return nil, fmt.Errorf("rewritten runtime config has root %q, want %q", got, path)
	}
	return result, nil
}

func parse(data []byte) (header, error) {
	var h header
	if err := toml.Unmarshal(data, &h); err != nil {
		return header{}, fmt.Errorf("invalid runtime config: %w", err)
	}
	return h, nil
}

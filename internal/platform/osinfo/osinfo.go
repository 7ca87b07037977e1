// Package osinfo identifies the target host's distribution from /etc/os-release.
package osinfo

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/imamik/dockshift/internal/hostfs"
)

// ReleaseFile is the os-release path.
const ReleaseFile = "/etc/os-release"

// Host describes the target operating system.
type Host struct {
	ID           string
	IDLike       []string
	VersionID    string
	MajorVersion int
	PrettyName   string
}

// RedHatFamily reports whether the host is RHEL or a rebuild of it.
func (h Host) RedHatFamily() bool {
	return h.ID == "rhel" || slices.Contains(h.IDLike, "rhel")
}

func (h Host) String() string {
	if h.PrettyName != "" {
		return h.PrettyName
	}
	return fmt.Sprintf("%s %s", h.ID, h.VersionID)
}

// Detect reads and parses the os-release file of the target host.
func Detect(ctx context.Context, fsys hostfs.FS) (Host, error) {
	data, err := fsys.ReadFile(ctx, ReleaseFile)
	if err != nil {
		return Host{}, fmt.Errorf("failed to read %s: %w", ReleaseFile, err)
	}
	return Parse(data)
}

// Parse parses os-release content.
func Parse(data []byte) (Host, error) {
	f, err := ini.LoadSources(ini.LoadOptions{IgnoreInlineComment: true}, data)
	if err != nil {
		return Host{}, fmt.Errorf("failed to parse os-release: %w", err)
	}
	sec := f.Section(ini.DefaultSection)

	h := Host{
		ID:         strings.ToLower(sec.Key("ID").String()),
		IDLike:     strings.Fields(strings.ToLower(sec.Key("ID_LIKE").String())),
		VersionID:  sec.Key("VERSION_ID").String(),
		PrettyName: sec.Key("PRETTY_NAME").String(),
	}
	if h.ID == "" {
		return Host{}, fmt.Errorf("os-release has no ID")
	}

	major, _, _ := strings.Cut(h.VersionID, ".")
	h.MajorVersion, err = strconv.Atoi(major)
	if err != nil {
		return Host{}, fmt.Errorf("cannot derive major version from VERSION_ID %q", h.VersionID)
	}
	return h, nil
}

package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rs/zerolog"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/platform/docker"
	"github.com/imamik/dockshift/internal/platform/fsinfo"
	"github.com/imamik/dockshift/internal/prompt"
	"github.com/imamik/dockshift/internal/upgrade"
)

// DoctorStatus is the JSON form of a diagnosis.
type DoctorStatus struct {
	Host           string   `json:"host"`
	OS             string   `json:"os"`
	Supported      bool     `json:"supported"`
	PackageDir     string   `json:"packageDir,omitempty"`
	Packages       int      `json:"packages"`
	Strategy       string   `json:"strategy"`
	EngineVersion  string   `json:"engineVersion,omitempty"`
	RuntimeVersion string   `json:"runtimeVersion,omitempty"`
	TargetEngine   string   `json:"targetEngine"`
	Toolkit        bool     `json:"toolkit"`
	Swarm          string   `json:"swarm"`
	DataRoot       string   `json:"dataRoot,omitempty"`
	DataRootStatus string   `json:"dataRootStatus,omitempty"`
	Backups        int      `json:"backups"`
	LatestBackup   string   `json:"latestBackup,omitempty"`
	Ready          bool     `json:"ready"`
	Problems       []string `json:"problems,omitempty"`
	Notes          []string `json:"notes,omitempty"`
}

// Doctor handles the doctor command.
//
// It inspects the host the way an upgrade would, without changing
// anything, and fails when an upgrade would abort in preflight.
func Doctor(ctx context.Context, opts DoctorOptions) error {
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

	uctx := upgrade.NewContext(ctx, cfg, r, prompt.DefaultsOperator{}, upgrade.NewZerologObserver(zerolog.Nop()))
	d, err := upgrade.Diagnose(uctx)
	if err != nil {
		return fmt.Errorf("diagnosis failed: %w", err)
	}

	status := doctorStatus(r.Target(), cfg, d)
	if opts.JSON {
		if err := printDoctorJSON(status); err != nil {
			return err
		}
	} else {
		printDoctor(status, d)
	}

	if !d.Ready() {
		return fmt.Errorf("host not ready for upgrade: %d problem(s)", len(d.Problems))
	}
	return nil
}

func doctorStatus(target string, cfg *config.Config, d *upgrade.Diagnosis) *DoctorStatus {
	st := &DoctorStatus{
		Host:           target,
		OS:             d.Host.String(),
		Supported:      d.Supported,
		PackageDir:     d.PackageDir,
		Packages:       d.Packages,
		Strategy:       string(cfg.Strategy),
		EngineVersion:  d.EngineVersion,
		RuntimeVersion: d.RuntimeVersion,
		TargetEngine:   cfg.Target.EngineVersion,
		Toolkit:        d.ToolkitInstalled,
		Swarm:          swarmLabel(d.Membership),
		DataRoot:       d.DataRoot.Path,
		DataRootStatus: string(d.DataRoot.Status),
		Backups:        d.Backups,
		LatestBackup:   d.LatestBackup,
		Ready:          d.Ready(),
		Problems:       d.Problems,
		Notes:          d.Notes,
	}
	return st
}

func swarmLabel(m docker.Membership) string {
	if !m.Member() {
		return "not a member"
	}
	return fmt.Sprintf("%s %s", m.State, m.Role)
}

func printDoctorJSON(status *DoctorStatus) error {
	data, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal status: %w", err)
	}
	fmt.Fprintln(stdout, string(data))
	return nil
}

func printDoctor(st *DoctorStatus, d *upgrade.Diagnosis) {
	fmt.Fprintln(stdout)
	printHeader(fmt.Sprintf("dockshift doctor: %s", st.Host))

	fmt.Fprintln(stdout, "  Host")
	fmt.Fprintln(stdout, "  "+strings.Repeat("─", 35))
	printRow("Operating system", st.Supported, st.OS)
	printRow("Package source", st.Packages > 0, fmt.Sprintf("%s (%d files, %s)", st.PackageDir, st.Packages, st.Strategy))
	printRow("Required tools", d.Tools != nil && !d.Tools.HasErrors(), "")
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "  Engine")
	fmt.Fprintln(stdout, "  "+strings.Repeat("─", 35))
	printRow("Installed", st.EngineVersion != "", fmt.Sprintf("%s -> %s", orNone(st.EngineVersion), st.TargetEngine))
	printRow("containerd", st.RuntimeVersion != "", orNone(st.RuntimeVersion))
	toolkit := "not installed"
	if st.Toolkit {
		toolkit = "installed"
	}
	printRow("GPU toolkit", true, toolkit)
	printRow("Swarm", d.Membership.State != docker.Active, st.Swarm)
	fmt.Fprintln(stdout)

	fmt.Fprintln(stdout, "  Storage")
	fmt.Fprintln(stdout, "  "+strings.Repeat("─", 35))
	printRow("Data root", d.DataRoot.Status != fsinfo.CompatBad, fmt.Sprintf("%s (%s)", st.DataRoot, d.DataRoot.Detail))
	if d.EngineDataRoot.Path != "" {
		printRow("Engine data root", d.EngineDataRoot.Status != fsinfo.CompatBad, fmt.Sprintf("%s (%s)", d.EngineDataRoot.Path, d.EngineDataRoot.Detail))
	}
	backups := "none"
	if st.Backups > 0 {
		backups = fmt.Sprintf("%s, latest %s", humanize.Comma(int64(st.Backups)), st.LatestBackup)
	}
	printRow("Backups", true, backups)
	fmt.Fprintln(stdout)

	for _, p := range st.Problems {
		fmt.Fprintf(stdout, "  \u274c %s\n", p)
	}
	for _, n := range st.Notes {
		fmt.Fprintf(stdout, "  \u26a0\ufe0f  %s\n", n)
	}
	if st.Ready {
		fmt.Fprintln(stdout, "  Ready. Run 'dockshift upgrade' to start.")
	}
	fmt.Fprintln(stdout)
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}

func printHeader(title string) {
	fmt.Fprintf(stdout, "  %s\n", title)
	fmt.Fprintln(stdout, "  "+strings.Repeat("═", len(title)))
	fmt.Fprintln(stdout)
}

func printRow(name string, ok bool, extra string) {
	indicator := "\u2705" // green check
	if !ok {
		indicator = "\u274c" // red X
	}

	if extra != "" {
		fmt.Fprintf(stdout, "  %s  %-20s %s\n", indicator, name, extra)
	} else {
		fmt.Fprintf(stdout, "  %s  %s\n", indicator, name)
	}
}

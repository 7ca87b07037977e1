package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/imamik/dockshift/internal/metrics"
	"github.com/imamik/dockshift/internal/upgrade"
)

// Upgrade handles the upgrade command.
//
// It runs the upgrade pipeline against the local host, or the --remote
// host over SSH: preflight, swarm drain, backup, shutdown, package
// transition, configuration migration, filesystem gate, toolkit, startup,
// verification and reactivation.
func Upgrade(ctx context.Context, opts UpgradeOptions) error {
	s, err := newSession(ctx, opts.GlobalOptions)
	if err != nil {
		return err
	}
	defer s.close()

	s.ctx.Mode = upgrade.ModeUpgrade
	return s.run(upgrade.UpgradePipeline())
}

// Rollback handles the rollback command.
//
// It restores the engine version and configuration recorded in a backup:
// the given --backup directory or the most recent one.
func Rollback(ctx context.Context, opts RollbackOptions) error {
	s, err := newSession(ctx, opts.GlobalOptions)
	if err != nil {
		return err
	}
	defer s.close()

	s.ctx.Mode = upgrade.ModeRollback
	return s.run(upgrade.RollbackPipeline(opts.Backup))
}

// run executes the pipeline, then writes metrics and the summary.
func (s *session) run(p *upgrade.Pipeline) error {
	report, runErr := p.Run(s.ctx)

	if path := s.cfg.Metrics.Textfile; path != "" {
		if err := writeMetrics(path, report, s.ctx.Now()); err != nil {
			s.ctx.Observer.Printf("[metrics] %v", err)
		}
	}
	printSummary(s.ctx.State, report, runErr)

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			return fmt.Errorf("%s interrupted: %w", p.Name, runErr)
		}
		return fmt.Errorf("%s aborted: %w", p.Name, runErr)
	}
	return nil
}

// writeMetrics exports the report as a node_exporter textfile.
func writeMetrics(path string, report *upgrade.Report, at time.Time) error {
	rec := metrics.NewRecorder()
	for _, ph := range report.Phases {
		rec.ObservePhase(ph.Name, ph.Duration)
	}
	for range report.Warnings {
		rec.Warn()
	}
	result := metrics.ResultComplete
	if report.Terminal == upgrade.TerminalAborted {
		result = metrics.ResultAborted
	}
	rec.Finish(result, at)
	return rec.WriteTextfile(path)
}

func printSummary(state *upgrade.State, report *upgrade.Report, runErr error) {
	fmt.Fprintln(stdout)
	fmt.Fprintf(stdout, "  Result:   %s (%s)\n", report.Terminal, report.Duration.Round(time.Second))
	fmt.Fprintf(stdout, "  Host:     %s\n", state.Summary())
	if state.ConfigSource != "" {
		fmt.Fprintf(stdout, "  Config:   %s\n", state.ConfigSource)
	}
	if state.FunctionalCheck != "" {
		fmt.Fprintf(stdout, "  Network:  %s\n", state.FunctionalCheck)
	}
	if len(report.Warnings) > 0 {
		fmt.Fprintf(stdout, "  Warnings: %d\n", len(report.Warnings))
		for _, w := range report.Warnings {
			fmt.Fprintf(stdout, "    - %s\n", w)
		}
	}
	if hint := upgrade.HintOf(runErr); hint != "" {
		fmt.Fprintf(stdout, "  Next:     %s\n", hint)
	}
	fmt.Fprintln(stdout)
}

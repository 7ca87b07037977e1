package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/imamik/dockshift/internal/config"
	"github.com/imamik/dockshift/internal/logging"
	"github.com/imamik/dockshift/internal/platform/s3"
	"github.com/imamik/dockshift/internal/prompt"
	"github.com/imamik/dockshift/internal/runner"
	"github.com/imamik/dockshift/internal/upgrade"
)

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

// session is everything a host-facing command sets up before it runs.
type session struct {
	cfg    *config.Config
	logger zerolog.Logger
	runner runner.Runner
	ctx    *upgrade.Context

	closers []io.Closer
}

// newSession loads the configuration, opens the log and connects to the
// target host.
func newSession(ctx context.Context, opts GlobalOptions) (*session, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	s := &session{cfg: cfg}
	timeouts := config.LoadTimeouts()
	r, err := connect(opts, timeouts)
	if err != nil {
		return nil, err
	}
	s.runner = r
	if c, ok := r.(io.Closer); ok {
		s.closers = append(s.closers, c)
	}

	s.ctx = upgrade.NewContext(ctx, cfg, r, operator(opts.Yes), nil)
	s.ctx.Timeouts = timeouts

	logger, closer, err := logging.Init(logging.Config{
		Level:      logging.ParseLevel(opts.LogLevel),
		JSONOutput: opts.JSONLog,
		File:       cfg.LogFile,
		RunID:      s.ctx.RunID,
		Host:       r.Target(),
	})
	if err != nil {
		s.close()
		return nil, err
	}
	s.closers = append(s.closers, closer)
	s.logger = logger
	s.ctx.Observer = upgrade.NewZerologObserver(logger)

	if cfg.BackupMirror.Enabled {
		up, err := mirrorClient(cfg.BackupMirror)
		if err != nil {
			s.ctx.Observer.Printf("backup mirror disabled: %v", err)
		} else {
			s.ctx.Mirror = up
		}
	}
	return s, nil
}

func (s *session) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i].Close()
	}
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig(opts GlobalOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Strategy != "" {
		cfg.Strategy = config.Strategy(opts.Strategy)
	}
	if opts.LogFile != "" {
		cfg.LogFile = opts.LogFile
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// connect returns the runner for the target host.
func connect(opts GlobalOptions, timeouts *config.Timeouts) (runner.Runner, error) {
	if opts.Remote == "" {
		if opts.SSHKey != "" {
			return nil, errors.New("--ssh-key requires --remote")
		}
		return runner.NewLocal(timeouts.Command), nil
	}
	if opts.SSHKey == "" {
		return nil, errors.New("--remote requires --ssh-key")
	}

	user, host, port, err := runner.ParseTarget(opts.Remote)
	if err != nil {
		return nil, err
	}
	// #nosec G304
	key, err := os.ReadFile(opts.SSHKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read SSH key: %w", err)
	}
	r, err := runner.NewSSH(&runner.SSHConfig{
		Host:           host,
		Port:           port,
		User:           user,
		PrivateKey:     key,
		Sudo:           user != "root",
		CommandTimeout: timeouts.Command,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to set up SSH: %w", err)
	}
	return r, nil
}

// operator returns the prompt implementation for --yes.
func operator(yes bool) prompt.Operator {
	if yes {
		return prompt.DefaultsOperator{}
	}
	return prompt.NewHuhOperator()
}

func mirrorClient(mc config.MirrorConfig) (*s3.Client, error) {
	client, err := s3.NewClient(mc.Endpoint, mc.Region, mc.AccessKey, mc.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create mirror client: %w", err)
	}
	return client, nil
}

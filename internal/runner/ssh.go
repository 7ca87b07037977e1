package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/imamik/dockshift/internal/util/retry"
)

const (
	defaultSSHPort        = 22
	defaultDialTimeout    = 10 * time.Second
	defaultDialRetries    = 5
	defaultDialRetryDelay = 2 * time.Second
	defaultDialMaxDelay   = 10 * time.Second
)

// SSHConfig holds SSH runner configuration.
type SSHConfig struct {
	Host       string
	Port       int
	User       string
	PrivateKey []byte

	// Sudo prefixes every command with "sudo -n" for non-root users.
	Sudo bool

	// CommandTimeout bounds each command. Zero means no limit beyond ctx.
	CommandTimeout time.Duration

	// DialTimeout is the timeout for establishing the TCP connection.
	DialTimeout time.Duration

	// MaxRetries is the maximum number of dial retry attempts.
	MaxRetries int

	// RetryDelay is the initial delay between dial attempts.
	RetryDelay time.Duration

	// HostKeyCallback handles host key verification.
	// If nil, ssh.InsecureIgnoreHostKey() is used.
	HostKeyCallback ssh.HostKeyCallback
}

// SSHRunner executes commands on a remote host over one SSH connection.
// Commands may run concurrently; each gets its own session.
type SSHRunner struct {
	config *SSHConfig
	signer ssh.Signer

	mu     sync.Mutex
	client *ssh.Client
}

// ParseTarget splits "user@host[:port]" into its parts. A missing user
// defaults to root, a missing port to 22.
func ParseTarget(target string) (user, host string, port int, err error) {
	user = "root"
	if at := strings.LastIndex(target, "@"); at >= 0 {
		user, target = target[:at], target[at+1:]
	}
	if user == "" {
		return "", "", 0, fmt.Errorf("empty user in target %q", target)
	}

	port = defaultSSHPort
	host = target
	if h, p, splitErr := net.SplitHostPort(target); splitErr == nil {
		host = h
		port, err = strconv.Atoi(p)
		if err != nil || port <= 0 || port > 65535 {
			return "", "", 0, fmt.Errorf("invalid port in target %q", target)
		}
	}
	if host == "" {
		return "", "", 0, fmt.Errorf("empty host in target %q", target)
	}
	return user, host, port, nil
}

// NewSSH creates an SSH runner and validates the private key.
// The connection is established on first use.
func NewSSH(cfg *SSHConfig) (*SSHRunner, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}
	if cfg.Host == "" {
		return nil, fmt.Errorf("config host cannot be empty")
	}
	if cfg.User == "" {
		return nil, fmt.Errorf("config user cannot be empty")
	}
	if len(cfg.PrivateKey) == 0 {
		return nil, fmt.Errorf("config private key cannot be empty")
	}

	c := *cfg
	if c.Port == 0 {
		c.Port = defaultSSHPort
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = defaultDialTimeout
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = defaultDialRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = defaultDialRetryDelay
	}
	if c.HostKeyCallback == nil {
		c.HostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // operator supplies the target explicitly
	}

	signer, err := ssh.ParsePrivateKey(c.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}

	return &SSHRunner{config: &c, signer: signer}, nil
}

// Local implements Runner.
func (s *SSHRunner) Local() bool { return false }

// Target implements Runner.
func (s *SSHRunner) Target() string {
	return fmt.Sprintf("%s@%s", s.config.User, net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port)))
}

// Close closes the underlying connection, if any.
func (s *SSHRunner) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}

// Run implements Runner.
func (s *SSHRunner) Run(ctx context.Context, c Command) (Result, error) {
	if s.config.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.CommandTimeout)
		defer cancel()
	}

	client, err := s.connect(ctx)
	if err != nil {
		return Result{}, err
	}

	session, err := client.NewSession()
	if err != nil {
		// The connection may have dropped; reconnect once.
		_ = s.Close()
		if client, err = s.connect(ctx); err != nil {
			return Result{}, err
		}
		if session, err = client.NewSession(); err != nil {
			return Result{}, fmt.Errorf("failed to create SSH session on %s: %w", s.config.Host, err)
		}
	}
	defer func() { _ = session.Close() }()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr
	if c.Stdin != nil {
		session.Stdin = bytes.NewReader(c.Stdin)
	}

	line := "LC_ALL=C " + c.String()
	if s.config.Sudo {
		line = "sudo -n env " + line
	}

	done := make(chan error, 1)
	go func() { done <- session.Run(line) }()

	select {
	case <-ctx.Done():
		_ = session.Signal(ssh.SIGKILL)
		_ = session.Close()
		<-done
		return Result{Stdout: stdout.String(), Stderr: stderr.String()}, fmt.Errorf("%s on %s: %w", c, s.config.Host, ctx.Err())
	case err = <-done:
	}

	res := Result{Stdout: stdout.String(), Stderr: stderr.String()}
	if err == nil {
		return res, nil
	}
	var exitErr *ssh.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitStatus()
		return res, &ExitError{Command: c, Result: res}
	}
	return res, fmt.Errorf("command failed on %s: %w", s.config.Host, err)
}

// connect establishes the SSH connection with retry logic.
func (s *SSHRunner) connect(ctx context.Context) (*ssh.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client != nil {
		return s.client, nil
	}

	config := &ssh.ClientConfig{
		User:            s.config.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(s.signer)},
		HostKeyCallback: s.config.HostKeyCallback,
		Timeout:         s.config.DialTimeout,
	}
	addr := net.JoinHostPort(s.config.Host, strconv.Itoa(s.config.Port))

	var client *ssh.Client
	err := retry.WithExponentialBackoff(ctx, func() error {
		var dialErr error
		client, dialErr = ssh.Dial("tcp", addr, config)
		if dialErr != nil && strings.Contains(dialErr.Error(), "unable to authenticate") {
			return retry.Fatal(dialErr)
		}
		return dialErr
	},
		retry.WithMaxRetries(s.config.MaxRetries),
		retry.WithInitialDelay(s.config.RetryDelay),
		retry.WithMaxDelay(defaultDialMaxDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to establish SSH connection to %s: %w", addr, err)
	}

	s.client = client
	return client, nil
}

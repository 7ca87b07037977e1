package config

import (
	"os"
	"strconv"
	"time"
)

// Timeouts holds all configurable timing values.
// These values can be customized via environment variables.
type Timeouts struct {
	SettleStop             time.Duration // Delay between stopping the engine and the runtime
	SettleStart            time.Duration // Delay after starting the runtime before checking it
	DrainPollInterval      time.Duration // Interval between drain convergence checks
	DrainPollAttempts      int           // Maximum number of drain convergence checks
	ReactivatePollInterval time.Duration // Interval between reactivation convergence checks
	ReactivatePollAttempts int           // Maximum number of reactivation convergence checks
	Command                time.Duration // Upper bound for a single external command
}

// LoadTimeouts loads timing configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - DOCKSHIFT_SETTLE_STOP (default: 5s)
//   - DOCKSHIFT_SETTLE_START (default: 5s)
//   - DOCKSHIFT_DRAIN_POLL_INTERVAL (default: 5s)
//   - DOCKSHIFT_DRAIN_POLL_ATTEMPTS (default: 12)
//   - DOCKSHIFT_REACTIVATE_POLL_INTERVAL (default: 10s)
//   - DOCKSHIFT_REACTIVATE_POLL_ATTEMPTS (default: 30)
//   - DOCKSHIFT_COMMAND_TIMEOUT (default: 10m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		SettleStop:             parseDuration("DOCKSHIFT_SETTLE_STOP", 5*time.Second),
		SettleStart:            parseDuration("DOCKSHIFT_SETTLE_START", 5*time.Second),
		DrainPollInterval:      parseDuration("DOCKSHIFT_DRAIN_POLL_INTERVAL", 5*time.Second),
		DrainPollAttempts:      parseInt("DOCKSHIFT_DRAIN_POLL_ATTEMPTS", 12),
		ReactivatePollInterval: parseDuration("DOCKSHIFT_REACTIVATE_POLL_INTERVAL", 10*time.Second),
		ReactivatePollAttempts: parseInt("DOCKSHIFT_REACTIVATE_POLL_ATTEMPTS", 30),
		Command:                parseDuration("DOCKSHIFT_COMMAND_TIMEOUT", 10*time.Minute),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil || d < 0 {
		return defaultVal
	}

	return d
}

// parseInt parses an integer from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseInt(envVar string, defaultVal int) int {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}

	return i
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadTimeouts_Defaults(t *testing.T) {
	for _, env := range []string{
		"DOCKSHIFT_SETTLE_STOP", "DOCKSHIFT_SETTLE_START",
		"DOCKSHIFT_DRAIN_POLL_INTERVAL", "DOCKSHIFT_DRAIN_POLL_ATTEMPTS",
		"DOCKSHIFT_REACTIVATE_POLL_INTERVAL", "DOCKSHIFT_REACTIVATE_POLL_ATTEMPTS",
		"DOCKSHIFT_COMMAND_TIMEOUT",
	} {
		t.Setenv(env, "")
	}

	timeouts := LoadTimeouts()

	assert.Equal(t, 5*time.Second, timeouts.SettleStop)
	assert.Equal(t, 5*time.Second, timeouts.SettleStart)
	assert.Equal(t, 5*time.Second, timeouts.DrainPollInterval)
	assert.Equal(t, 12, timeouts.DrainPollAttempts)
	assert.Equal(t, 10*time.Second, timeouts.ReactivatePollInterval)
	assert.Equal(t, 30, timeouts.ReactivatePollAttempts)
	assert.Equal(t, 10*time.Minute, timeouts.Command)
}

func TestLoadTimeouts_EnvOverrides(t *testing.T) {
	t.Setenv("DOCKSHIFT_SETTLE_STOP", "1s")
	t.Setenv("DOCKSHIFT_DRAIN_POLL_ATTEMPTS", "3")
	t.Setenv("DOCKSHIFT_REACTIVATE_POLL_INTERVAL", "not-a-duration")
	t.Setenv("DOCKSHIFT_REACTIVATE_POLL_ATTEMPTS", "0")

	timeouts := LoadTimeouts()

	assert.Equal(t, time.Second, timeouts.SettleStop)
	assert.Equal(t, 3, timeouts.DrainPollAttempts)
	assert.Equal(t, 10*time.Second, timeouts.ReactivatePollInterval)
	assert.Equal(t, 30, timeouts.ReactivatePollAttempts)
}

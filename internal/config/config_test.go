package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	t.Parallel()
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, StrategyDirect, cfg.Strategy)
	assert.Equal(t, "29.1.5", cfg.Target.EngineVersion)
	assert.Equal(t, "28.5.1", cfg.Rollback.EngineVersion)
}

func TestPackageDirs(t *testing.T) {
	t.Parallel()
	cfg := Default()

	assert.Equal(t, "/opt/dockshift/packages/rhel8", cfg.PackageDir(8))
	assert.Equal(t, "/opt/dockshift/packages/rhel9", cfg.PackageDir(9))
	assert.Equal(t, "/opt/dockshift/rollback/rhel9", cfg.RollbackPackageDir(9))
	assert.Equal(t, "/opt/dockshift/packages/rhel8/nvidia", cfg.ToolkitDir(8))

	cfg.Toolkit.PackageDir = "/srv/nvidia"
	assert.Equal(t, "/srv/nvidia", cfg.ToolkitDir(8))
}

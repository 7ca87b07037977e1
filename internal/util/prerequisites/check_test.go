package prerequisites

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/dockshift/internal/runner"
	dstest "github.com/imamik/dockshift/internal/testing"
)

func lookup(name string) string {
	return runner.Cmd("sh", "-c", "command -v "+name).String()
}

func TestCheck(t *testing.T) {
	t.Parallel()

	r := dstest.NewFakeRunner().
		On(lookup("rpm"), "/usr/bin/rpm\n").
		On(lookup("systemctl"), "/usr/bin/systemctl\n")

	results, err := Check(context.Background(), r, DefaultTools())
	require.NoError(t, err)

	require.Len(t, results.Results, 2)
	assert.True(t, results.Results[0].Found)
	assert.Equal(t, "/usr/bin/rpm", results.Results[0].Path)
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

func TestCheckMissingTool(t *testing.T) {
	t.Parallel()

	r := dstest.NewFakeRunner().
		On(lookup("rpm"), "/usr/bin/rpm\n").
		Fail(lookup("dnf"), 1, "")

	tools := append(DefaultTools()[:1], RepoTools()...)
	results, err := Check(context.Background(), r, tools)
	require.NoError(t, err)

	require.Len(t, results.Missing, 1)
	assert.Equal(t, "dnf", results.Missing[0].Name)
	assert.True(t, results.HasErrors())
	require.Error(t, results.Error())
	assert.Contains(t, results.Error().Error(), "dnf (package dnf)")
}

func TestCheckOptionalMissing(t *testing.T) {
	t.Parallel()

	r := dstest.NewFakeRunner()
	r.Handler = func(runner.Command) (dstest.FakeResponse, bool) {
		return dstest.FakeResponse{ExitCode: 1}, true
	}

	results, err := Check(context.Background(), r, OptionalTools())
	require.NoError(t, err)

	assert.Len(t, results.Missing, len(OptionalTools()))
	// Optional tools don't cause errors
	assert.False(t, results.HasErrors())
	assert.NoError(t, results.Error())
}

type brokenRunner struct{ dstest.FakeRunner }

func (b *brokenRunner) Run(context.Context, runner.Command) (runner.Result, error) {
	return runner.Result{}, errors.New("connection reset")
}

func TestCheckRunnerError(t *testing.T) {
	t.Parallel()

	_, err := Check(context.Background(), &brokenRunner{}, DefaultTools())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to look up rpm")
}

func TestOptionalTools(t *testing.T) {
	t.Parallel()

	for _, tool := range OptionalTools() {
		assert.False(t, tool.Required, "optional tool %s should not be required", tool.Name)
	}
}

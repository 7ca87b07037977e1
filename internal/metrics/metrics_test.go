package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_Textfile(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.ObservePhase("preflight", 1500*time.Millisecond)
	r.ObservePhase("transition", 42*time.Second)
	r.Warn()
	r.Warn()
	r.Finish(ResultComplete, time.Unix(1760000000, 0))

	assert.Equal(t, 2.0, testutil.ToFloat64(r.warnings))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.result.WithLabelValues(ResultComplete)))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.result.WithLabelValues(ResultAborted)))

	path := filepath.Join(t.TempDir(), "dockshift.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `dockshift_phase_duration_seconds{phase="transition"} 42`)
	assert.Contains(t, text, `dockshift_run_result{result="complete"} 1`)
	assert.Contains(t, text, "dockshift_warnings_total 2")
	assert.True(t, strings.Contains(text, "dockshift_run_timestamp_seconds 1.76e+09"))
}

func TestRecorder_WriteTextfileError(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dockshift.prom"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write metrics textfile")
}

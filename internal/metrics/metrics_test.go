package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arnodel/struckstream/errors"
)

func TestCounters(t *testing.T) {
	s := NewStage("youtube")
	s.EventRead()
	s.EventRead()
	s.EventWritten()
	s.Failed(errors.KindDecode)

	assert.Equal(t, 2.0, testutil.ToFloat64(s.read))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.written))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.failures.WithLabelValues("DECODE_ERROR")))
}

func TestWriteFile(t *testing.T) {
	s := NewStage("api_role")
	s.EventRead()
	path := filepath.Join(t.TempDir(), "stage.prom")
	require.NoError(t, s.WriteFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `struck_events_read_total{stage="api_role"} 1`)
}

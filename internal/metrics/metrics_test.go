package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCounters(t *testing.T) {
	m := New()

	m.ObserveCompletion(true, 20*time.Millisecond)
	m.ObserveCompletion(false, time.Millisecond)
	m.ObserveCompletion(false, time.Millisecond)
	m.AddTokens("completions", "text-davinci-004", 12, 30)
	m.AddMirrored(3, 120)
	m.SetIndexedChunks(7)
	m.IncChatTurn("assistant")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.completions.WithLabelValues("success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.completions.WithLabelValues("error")))
	assert.Equal(t, 30.0, testutil.ToFloat64(m.tokens.WithLabelValues("completions", "text-davinci-004", "completion")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.mirroredFiles))
	assert.Equal(t, 120.0, testutil.ToFloat64(m.mirroredBytes))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.indexedChunks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.chatTurns.WithLabelValues("assistant")))
}

func TestNewUsesPrivateRegistry(t *testing.T) {
	// Two instances in one process must not collide.
	a, b := New(), New()
	a.AddMirrored(1, 1)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.mirroredFiles))
}

func TestWriteTextfile(t *testing.T) {
	m := New()
	m.AddMirrored(2, 10)

	path := filepath.Join(t.TempDir(), "orion.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "orion_workspace_mirrored_files_total 2")

	require.NoError(t, m.WriteTextfile(""))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveCompletion(true, 0)
	m.AddTokens("chat", "gpt-4", 1, 1)
	m.IncChatTurn("x")
	assert.NoError(t, m.WriteTextfile("ignored"))
	assert.Nil(t, m.Registry())
}

// Package metrics records run counters for the CLI flows and writes them in
// the Prometheus text format.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "orion"

// Metrics holds the collectors for one process run.
type Metrics struct {
	registry          *prometheus.Registry
	completions       *prometheus.CounterVec
	completionLatency prometheus.Histogram
	tokens            *prometheus.CounterVec
	mirroredFiles     prometheus.Counter
	mirroredBytes     prometheus.Counter
	indexedChunks     prometheus.Gauge
	chatTurns         *prometheus.CounterVec
}

// New registers every collector on a private registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		completions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "completion",
				Name:      "requests_total",
				Help:      "Completion requests by outcome.",
			},
			[]string{"outcome"},
		),
		completionLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "completion",
				Name:      "duration_seconds",
				Help:      "Time spent waiting for a completion.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		tokens: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "llm",
				Name:      "tokens_total",
				Help:      "Tokens consumed by endpoint, model and kind.",
			},
			[]string{"endpoint", "model", "kind"},
		),
		mirroredFiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workspace",
				Name:      "mirrored_files_total",
				Help:      "Shadow files written.",
			},
		),
		mirroredBytes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "workspace",
				Name:      "mirrored_bytes_total",
				Help:      "Bytes copied into shadow files.",
			},
		),
		indexedChunks: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "retrieval",
				Name:      "indexed_chunks",
				Help:      "Chunks held by the retrieval store.",
			},
		),
		chatTurns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "chat",
				Name:      "turns_total",
				Help:      "Chat turns by speaker.",
			},
			[]string{"speaker"},
		),
	}
	reg.MustRegister(
		m.completions,
		m.completionLatency,
		m.tokens,
		m.mirroredFiles,
		m.mirroredBytes,
		m.indexedChunks,
		m.chatTurns,
	)
	return m
}

// Registry exposes the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveCompletion records one completion request.
func (m *Metrics) ObserveCompletion(ok bool, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "error"
	}
	m.completions.WithLabelValues(outcome).Inc()
	m.completionLatency.Observe(duration.Seconds())
}

// AddTokens records prompt and completion tokens for one call.
func (m *Metrics) AddTokens(endpoint, model string, prompt, completion int) {
	if m == nil {
		return
	}
	m.tokens.WithLabelValues(endpoint, model, "prompt").Add(float64(prompt))
	m.tokens.WithLabelValues(endpoint, model, "completion").Add(float64(completion))
}

// AddMirrored records a mirroring pass.
func (m *Metrics) AddMirrored(files int, bytes int64) {
	if m == nil {
		return
	}
	m.mirroredFiles.Add(float64(files))
	m.mirroredBytes.Add(float64(bytes))
}

// SetIndexedChunks records the store size after indexing.
func (m *Metrics) SetIndexedChunks(n int) {
	if m == nil {
		return
	}
	m.indexedChunks.Set(float64(n))
}

// IncChatTurn counts a chat turn by speaker.
func (m *Metrics) IncChatTurn(speaker string) {
	if m == nil {
		return
	}
	m.chatTurns.WithLabelValues(speaker).Inc()
}

// WriteTextfile writes the registry to path for the node_exporter textfile
// collector. An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

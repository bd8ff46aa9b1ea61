// ABOUTME: Prometheus metrics for the receiver and monitor
// ABOUTME: Atomic counters exported through a private registry
package metrics

import (
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all application metrics
type Metrics struct {
	// Audio stream
	BytesReceived    atomic.Uint64
	FramesDecoded    atomic.Uint64
	FramesMalformed  atomic.Uint64
	StreamsTruncated atomic.Uint64
	ConfigMismatches atomic.Uint64
	AudioConnections atomic.Uint64
	AudioConnected   atomic.Uint64 // 0 or 1
	IdleDisconnects  atomic.Uint64

	// Tracking streams
	SSLMessages     atomic.Uint64
	SSTMessages     atomic.Uint64
	TrackingErrors  atomic.Uint64
	TrackingSkipped atomic.Uint64

	// Monitor clients
	ActiveClients atomic.Uint64
	TotalClients  atomic.Uint64
	ChunksSent    atomic.Uint64
	ChunksDropped atomic.Uint64

	slotLevel *prometheus.GaugeVec

	registry *prometheus.Registry
}

// New creates a new Metrics instance with Prometheus collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		slotLevel: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "odas_slot_rms",
			Help: "RMS level of the last frame per source slot (0-1)",
		}, []string{"slot"}),
	}

	m.registerPrometheusMetrics()

	return m
}

func (m *Metrics) counter(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

func (m *Metrics) gauge(name, help string, v *atomic.Uint64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Name: name, Help: help},
		func() float64 { return float64(v.Load()) },
	))
}

// registerPrometheusMetrics registers all metrics with Prometheus
func (m *Metrics) registerPrometheusMetrics() {
	m.counter("odas_bytes_received_total", "Bytes read from the audio stream", &m.BytesReceived)
	m.counter("odas_frames_decoded_total", "Frames decoded from the audio stream", &m.FramesDecoded)
	m.counter("odas_frames_malformed_total", "Frames skipped because a tag failed validation", &m.FramesMalformed)
	m.counter("odas_streams_truncated_total", "Audio connections that ended mid-frame", &m.StreamsTruncated)
	m.counter("odas_config_mismatches_total", "Streams rejected for not matching the configured parameters", &m.ConfigMismatches)
	m.counter("odas_audio_connections_total", "Audio connections accepted", &m.AudioConnections)
	m.gauge("odas_audio_connected", "1 while an engine is connected to the audio port", &m.AudioConnected)
	m.counter("odas_idle_disconnects_total", "Connections closed for being idle", &m.IdleDisconnects)

	m.counter("odas_ssl_messages_total", "SSL messages parsed", &m.SSLMessages)
	m.counter("odas_sst_messages_total", "SST messages parsed", &m.SSTMessages)
	m.counter("odas_tracking_errors_total", "Tracking messages that failed to parse", &m.TrackingErrors)
	m.counter("odas_tracking_skipped_bytes_total", "Non-JSON bytes skipped on tracking streams", &m.TrackingSkipped)

	m.gauge("monitor_clients_active", "Connected monitor clients", &m.ActiveClients)
	m.counter("monitor_clients_total", "Monitor clients accepted", &m.TotalClients)
	m.counter("monitor_chunks_sent_total", "Audio chunks queued to monitor clients", &m.ChunksSent)
	m.counter("monitor_chunks_dropped_total", "Audio chunks dropped for slow monitor clients", &m.ChunksDropped)

	m.registry.MustRegister(m.slotLevel)
}

// SetSlotLevel records the RMS level of one slot.
func (m *Metrics) SetSlotLevel(slot int, rms float64) {
	m.slotLevel.WithLabelValues(strconv.Itoa(slot)).Set(rms)
}

// Registry exposes the registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns HTTP handler for Prometheus metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Status label values besides the rejection kinds.
const (
	StatusAccepted = "accepted"
)

// ValidateMetrics holds the Prometheus metrics of a validation run. Each
// instance has its own registry so it can be written out as a textfile.
type ValidateMetrics struct {
	MessagesTotal      *prometheus.CounterVec
	BytesTotal         prometheus.Counter
	UnknownLevelsTotal prometheus.Counter
	RedactedTotal      prometheus.Counter
	SinkWriteErrors    prometheus.Counter
	WALActive          prometheus.Gauge

	registry *prometheus.Registry
}

// NewValidateMetrics initializes and registers the metrics.
func NewValidateMetrics() *ValidateMetrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &ValidateMetrics{
		MessagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "szmessage",
			Subsystem: "validate",
			Name:      "messages_total",
			Help:      "Total number of input lines by status.",
		}, []string{"status"}), // status: accepted, or a rejection kind such as missing_required_field
		BytesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "szmessage",
			Subsystem: "validate",
			Name:      "bytes_total",
			Help:      "Total number of input bytes read.",
		}),
		UnknownLevelsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "szmessage",
			Subsystem: "validate",
			Name:      "unknown_levels_total",
			Help:      "Accepted messages whose level is not a known Senzing level.",
		}),
		RedactedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "szmessage",
			Subsystem: "validate",
			Name:      "redacted_messages_total",
			Help:      "Accepted messages with at least one redacted detail.",
		}),
		SinkWriteErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "szmessage",
			Subsystem: "sink",
			Name:      "write_errors_total",
			Help:      "Failed batch write attempts, retries included.",
		}),
		WALActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "szmessage",
			Subsystem: "sink",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the Write-Ahead Log is currently active (1 for active, 0 for inactive).",
		}),
		registry: registry,
	}
}

// Registry returns the registry holding the metrics.
func (m *ValidateMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// WriteTextfile writes the current values in the text exposition format,
// for the node exporter textfile collector.
func (m *ValidateMetrics) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.registry)
}

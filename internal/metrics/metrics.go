package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Agent metrics collectors
var (
	// Extraction

	SnapshotsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typescope_snapshots_total",
			Help: "Total number of snapshots extracted",
		},
		[]string{"status"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "typescope_extraction_duration_seconds",
			Help:    "Snapshot extraction duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
	)

	SnapshotTypes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "typescope_snapshot_types",
			Help: "Number of types in the most recent snapshot",
		},
	)

	TypeFaultsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typescope_type_faults_total",
			Help: "Total number of extraction faults",
		},
		[]string{"fault"},
	)

	// Streaming

	FramesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "typescope_frames_sent_total",
			Help: "Total number of frames written to viewers",
		},
	)

	FrameBytesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "typescope_frame_bytes_total",
			Help: "Total number of payload bytes written to viewers",
		},
	)

	FrameSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "typescope_frame_size_bytes",
			Help:    "Size of encoded snapshot payloads",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
	)

	// Connection lifecycle

	SessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typescope_sessions_total",
			Help: "Total number of viewer sessions",
		},
		[]string{"mode"},
	)

	ConnectionStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "typescope_connection_status",
			Help: "Viewer connection status (0=disconnected, 1=connected)",
		},
	)

	ServerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "typescope_server_state",
			Help: "Current server state (1 for the active state)",
		},
		[]string{"state"},
	)

	ModeDowngradesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "typescope_mode_downgrades_total",
			Help: "Total number of duplex to send-only downgrades",
		},
	)

	ListenErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typescope_listen_errors_total",
			Help: "Total number of channel open/listen failures",
		},
		[]string{"error_type"},
	)

	// Commands

	CommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typescope_commands_total",
			Help: "Total number of viewer commands received",
		},
		[]string{"command", "status"},
	)

	StreamInterval = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "typescope_stream_interval_seconds",
			Help: "Current streaming interval in seconds",
		},
	)

	// Admin HTTP

	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "typescope_http_requests_total",
			Help: "Total number of admin HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "typescope_http_request_duration_seconds",
			Help:    "Admin HTTP request duration in seconds",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "endpoint"},
	)
)

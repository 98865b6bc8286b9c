package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arqlink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "arqlink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "method", "path", "status"},
	)
	senderAttempts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "arqlink",
			Subsystem: "sender",
			Name:      "attempts_total",
			Help:      "Frame transmissions, including retransmissions.",
		},
	)
	senderOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arqlink",
			Subsystem: "sender",
			Name:      "outcomes_total",
			Help:      "Per-attempt and terminal sender outcomes.",
		},
		[]string{"outcome"},
	)
	senderAttemptsPerMessage = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "arqlink",
			Subsystem: "sender",
			Name:      "attempts_per_message",
			Help:      "Transmissions needed to reach a terminal state.",
			Buckets:   []float64{1, 2, 3, 4, 5, 8, 13},
		},
	)
	receiverFrames = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "arqlink",
			Subsystem: "receiver",
			Name:      "frames_total",
			Help:      "Inbound frames by verdict.",
		},
		[]string{"outcome"},
	)
	receiverCorruptions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "arqlink",
			Subsystem: "receiver",
			Name:      "corruptions_total",
			Help:      "Synthetic corruptions injected before integrity checking.",
		},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpRequests,
			httpDuration,
			senderAttempts,
			senderOutcomes,
			senderAttemptsPerMessage,
			receiverFrames,
			receiverCorruptions,
		)
	})
}

func RecordHTTPRequest(node, method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(node, method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(node, method, path, statusLabel).Observe(duration.Seconds())
}

// MetricsObserver turns protocol events into prometheus samples.
type MetricsObserver struct{}

func NewMetricsObserver() MetricsObserver {
	RegisterMetrics()
	return MetricsObserver{}
}

func (MetricsObserver) Observe(e Event) {
	switch e.Kind {
	case EventAttemptStarted:
		senderAttempts.Inc()
	case EventReplyTimeout:
		senderOutcomes.WithLabelValues("timeout").Inc()
	case EventReplyReceived:
		senderOutcomes.WithLabelValues("reply").Inc()
	case EventDelivered:
		senderOutcomes.WithLabelValues("delivered").Inc()
		senderAttemptsPerMessage.Observe(float64(e.Attempt))
	case EventAbandoned:
		senderOutcomes.WithLabelValues("abandoned").Inc()
		senderAttemptsPerMessage.Observe(float64(e.Attempt))
	case EventCorruptionInjected:
		receiverCorruptions.Inc()
	case EventFrameMalformed:
		receiverFrames.WithLabelValues("malformed").Inc()
	case EventIntegrityMismatch:
		receiverFrames.WithLabelValues("nack").Inc()
	case EventFrameAccepted:
		receiverFrames.WithLabelValues("accepted").Inc()
	case EventFrameDuplicate:
		receiverFrames.WithLabelValues("duplicate").Inc()
	}
}

package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	mlpConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "hl7ctl",
			Subsystem: "mlp",
			Name:      "connections_active",
			Help:      "Open MLP connections.",
		},
		[]string{"node", "transport"},
	)
	mlpMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hl7ctl",
			Subsystem: "mlp",
			Name:      "messages_total",
			Help:      "Messages received, by extracted type and ack code.",
		},
		[]string{"node", "message_type", "ack_code"},
	)
	mlpHandleDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "hl7ctl",
			Subsystem: "mlp",
			Name:      "message_handling_duration_seconds",
			Help:      "Receive-to-ack latency per message.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"node", "ack_code"},
	)
	mlpFramingDiscards = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hl7ctl",
			Subsystem: "mlp",
			Name:      "framing_discards_total",
			Help:      "Oversized frames dropped by the framer.",
		},
		[]string{"node"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "hl7ctl",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Admin HTTP requests.",
		},
		[]string{"node", "method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			mlpConnections,
			mlpMessages,
			mlpHandleDuration,
			mlpFramingDiscards,
			httpRequests,
		)
	})
}

func ConnectionOpened(node, transport string) {
	RegisterMetrics()
	mlpConnections.WithLabelValues(node, transport).Inc()
}

func ConnectionClosed(node, transport string) {
	RegisterMetrics()
	mlpConnections.WithLabelValues(node, transport).Dec()
}

func RecordMessage(node, messageType, ackCode string, duration time.Duration) {
	RegisterMetrics()
	mlpMessages.WithLabelValues(node, messageType, ackCode).Inc()
	mlpHandleDuration.WithLabelValues(node, ackCode).Observe(duration.Seconds())
}

func RecordFramingDiscards(node string, n uint64) {
	RegisterMetrics()
	mlpFramingDiscards.WithLabelValues(node).Add(float64(n))
}

func RecordHTTPRequest(node, method, path string, status int) {
	RegisterMetrics()
	httpRequests.WithLabelValues(node, method, path, strconv.Itoa(status)).Inc()
}

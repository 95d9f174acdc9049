package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegisterMetricsIdempotent(t *testing.T) {
	RegisterMetrics()
	// A second registration must not panic on duplicate collectors.
	RegisterMetrics()
}

func TestRecordHelpers(t *testing.T) {
	RegisterMetrics()

	ConnectionOpened("metrics.test", "tcp")
	ConnectionOpened("metrics.test", "tcp")
	ConnectionClosed("metrics.test", "tcp")
	if got := testutil.ToFloat64(mlpConnections.WithLabelValues("metrics.test", "tcp")); got != 1 {
		t.Fatalf("connections_active got=%v", got)
	}

	RecordMessage("metrics.test", "ADT_A01", "AA", 5*time.Millisecond)
	if got := testutil.ToFloat64(mlpMessages.WithLabelValues("metrics.test", "ADT_A01", "AA")); got != 1 {
		t.Fatalf("messages_total got=%v", got)
	}

	RecordFramingDiscards("metrics.test", 3)
	if got := testutil.ToFloat64(mlpFramingDiscards.WithLabelValues("metrics.test")); got != 3 {
		t.Fatalf("framing_discards_total got=%v", got)
	}

	RecordHTTPRequest("metrics.test", "GET", "/health", 200)
	if got := testutil.ToFloat64(httpRequests.WithLabelValues("metrics.test", "GET", "/health", "200")); got != 1 {
		t.Fatalf("requests_total got=%v", got)
	}
}

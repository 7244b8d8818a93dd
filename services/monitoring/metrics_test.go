package monitoring

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestMetricsScrape(t *testing.T) {
	m := NewMetrics("test")
	m.ReplaysTotal.WithLabelValues("ok").Inc()
	m.EventsProcessed.Add(123)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	if !strings.Contains(body, `test_replays_total{status="ok"} 1`) {
		t.Fatalf("missing replays counter in scrape:\n%s", body)
	}
	if !strings.Contains(body, "test_events_processed_total 123") {
		t.Fatal("missing events counter in scrape")
	}
}

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	a := NewMetrics("a")
	b := NewMetrics("b") // must not panic on duplicate registration
	a.TradesTotal.Inc()
	_ = b
}

package metrics_test

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"edgarfeed/internal/metrics"
)

func TestNilMetricsIsSafe(t *testing.T) {
	var m *metrics.Metrics
	m.RecordDownload("ok", time.Second, 10)
	m.RecordSubmission("ok", "none", time.Millisecond, 1, 1)
	m.RecordWorkerTimeout()
	m.SetWorkersActive(2)
	if m.Registry() != nil {
		t.Fatal("expected nil registry")
	}
}

func TestRecordSubmissionCounts(t *testing.T) {
	m := metrics.New()
	m.RecordSubmission("ok", "none", 10*time.Millisecond, 100, 2)
	m.RecordSubmission("error", "format", 5*time.Millisecond, 50, 0)
	m.RecordSubmission("ok", "none", 10*time.Millisecond, 100, 3)

	body := scrape(t, m)
	for _, want := range []string{
		`edgarfeed_submissions_total{category="none",status="ok"} 2`,
		`edgarfeed_submissions_total{category="format",status="error"} 1`,
		`edgarfeed_submission_bytes_total 250`,
		`edgarfeed_documents_total 5`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("expected %q in exposition:\n%s", want, body)
		}
	}
}

func TestSeparateInstancesDoNotShareState(t *testing.T) {
	a := metrics.New()
	b := metrics.New()
	a.RecordRetry()
	a.RecordRetry()
	b.RecordRetry()
	if got, err := testutil.GatherAndCount(a.Registry(), "edgarfeed_day_retries_total"); err != nil || got != 1 {
		t.Fatalf("expected one retry series, got %d (%v)", got, err)
	}
	if !strings.Contains(scrape(t, b), "edgarfeed_day_retries_total 1") {
		t.Fatal("expected isolated retry counter")
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	data, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(data)
}

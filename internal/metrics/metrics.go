package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"edgarfeed/internal/logging"
)

// Metrics records pipeline activity.
type Metrics struct {
	registry *prometheus.Registry

	downloadsTotal   *prometheus.CounterVec
	downloadDuration prometheus.Histogram
	downloadBytes    prometheus.Counter
	downloadsActive  prometheus.Gauge
	dayRetries       prometheus.Counter
	throttleRejects  prometheus.Counter

	submissionsTotal   *prometheus.CounterVec
	submissionDuration prometheus.Histogram
	submissionBytes    prometheus.Counter
	documentsTotal     prometheus.Counter
	workersActive      prometheus.Gauge
	workerTimeouts     prometheus.Counter
	workerRestarts     prometheus.Counter
	daysTotal          *prometheus.CounterVec
}

// New registers a fresh collector set.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		downloadsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edgarfeed_downloads_total",
			Help: "Archive download attempts by outcome",
		}, []string{"status"}),
		downloadDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgarfeed_download_duration_seconds",
			Help:    "Time to download and unpack one daily archive",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}),
		downloadBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_download_bytes_total",
			Help: "Compressed archive bytes downloaded",
		}),
		downloadsActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "edgarfeed_downloads_active",
			Help: "Download slots currently busy",
		}),
		dayRetries: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_day_retries_total",
			Help: "Days pushed back onto the retry queue",
		}),
		throttleRejects: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_throttle_rejections_total",
			Help: "Requests rejected by the fair-use throttle",
		}),
		submissionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edgarfeed_submissions_total",
			Help: "Submission files processed by outcome and error category",
		}, []string{"status", "category"}),
		submissionDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "edgarfeed_submission_duration_seconds",
			Help:    "Worker time per submission file",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		submissionBytes: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_submission_bytes_total",
			Help: "Submission bytes read by workers",
		}),
		documentsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_documents_total",
			Help: "Documents extracted from submissions",
		}),
		workersActive: f.NewGauge(prometheus.GaugeOpts{
			Name: "edgarfeed_workers_active",
			Help: "Worker slots currently holding a file",
		}),
		workerTimeouts: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_worker_timeouts_total",
			Help: "Workers killed for exceeding the submission timeout",
		}),
		workerRestarts: f.NewCounter(prometheus.CounterOpts{
			Name: "edgarfeed_worker_restarts_total",
			Help: "Workers replaced after a timeout or unexpected exit",
		}),
		daysTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "edgarfeed_days_total",
			Help: "Feed days by final outcome",
		}, []string{"status"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordDownload records one finished download attempt.
func (m *Metrics) RecordDownload(status string, elapsed time.Duration, bytes int64) {
	if m == nil {
		return
	}
	m.downloadsTotal.WithLabelValues(status).Inc()
	m.downloadDuration.Observe(elapsed.Seconds())
	if bytes > 0 {
		m.downloadBytes.Add(float64(bytes))
	}
}

// SetDownloadsActive sets the busy download slot gauge.
func (m *Metrics) SetDownloadsActive(n int) {
	if m == nil {
		return
	}
	m.downloadsActive.Set(float64(n))
}

// RecordRetry counts a day pushed onto the retry queue.
func (m *Metrics) RecordRetry() {
	if m == nil {
		return
	}
	m.dayRetries.Inc()
}

// RecordThrottled counts a throttle rejection.
func (m *Metrics) RecordThrottled() {
	if m == nil {
		return
	}
	m.throttleRejects.Inc()
}

// RecordSubmission records one worker result.
func (m *Metrics) RecordSubmission(status, category string, elapsed time.Duration, bytes int64, documents int) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(status, category).Inc()
	m.submissionDuration.Observe(elapsed.Seconds())
	m.submissionBytes.Add(float64(bytes))
	m.documentsTotal.Add(float64(documents))
}

// SetWorkersActive sets the busy worker slot gauge.
func (m *Metrics) SetWorkersActive(n int) {
	if m == nil {
		return
	}
	m.workersActive.Set(float64(n))
}

// RecordWorkerTimeout counts a timed-out worker.
func (m *Metrics) RecordWorkerTimeout() {
	if m == nil {
		return
	}
	m.workerTimeouts.Inc()
}

// RecordWorkerRestart counts a replaced worker.
func (m *Metrics) RecordWorkerRestart() {
	if m == nil {
		return
	}
	m.workerRestarts.Inc()
}

// RecordDay records a day's final outcome.
func (m *Metrics) RecordDay(status string) {
	if m == nil {
		return
	}
	m.daysTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on bind until ctx is done.
func (m *Metrics) Serve(ctx context.Context, bind string, logger *slog.Logger) error {
	listener, err := net.Listen("tcp", bind)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	logger = logging.NewComponentLogger(logger, "metrics")
	logger.Info("metrics listener started", logging.String("bind", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

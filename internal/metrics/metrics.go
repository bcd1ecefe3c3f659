// Package metrics exposes Prometheus counters for mock node traffic and
// replay log output.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	StatusOK            = "ok"
	StatusNetworkError  = "network_error"
	StatusProtocolError = "protocol_error"
)

var (
	AnnouncementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stxgen_announcements_total", Help: "Mock node requests by endpoint and outcome"},
		[]string{"endpoint", "status"},
	)
	AnnouncementDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "stxgen_announcement_duration_seconds", Help: "Mock node request latency", Buckets: prometheus.DefBuckets},
		[]string{"endpoint"},
	)
	RecordsWrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "stxgen_records_written_total", Help: "Records written to a replay output"},
		[]string{"output"},
	)
	BurnChainTip = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "stxgen_burn_chain_tip", Help: "Last burn height acknowledged by the mock bitcoin node"},
	)
)

func init() {
	prometheus.MustRegister(AnnouncementsTotal, AnnouncementDuration, RecordsWrittenTotal, BurnChainTip)
}

// ObserveAnnouncement records the outcome of one mock node request.
func ObserveAnnouncement(endpoint, status string, started time.Time) {
	AnnouncementsTotal.WithLabelValues(endpoint, status).Inc()
	AnnouncementDuration.WithLabelValues(endpoint).Observe(time.Since(started).Seconds())
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Serving metrics", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

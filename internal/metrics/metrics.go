// Package metrics exposes Prometheus instrumentation for mutations,
// refreshes and the event watcher, plus a small side server for
// /metrics and /healthz.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"unigame/internal/model"
)

// Metrics holds the registered collectors. It satisfies the observer
// interfaces of the store, the orchestrator and the watcher.
type Metrics struct {
	mutations       *prometheus.CounterVec
	refreshDuration *prometheus.HistogramVec
	refreshRecords  *prometheus.GaugeVec
	watcherEvents   *prometheus.CounterVec
	watcherBlockLag prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		mutations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unigame_mutations_total",
			Help: "mutations by action and outcome",
		}, []string{"action", "outcome"}),
		refreshDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "unigame_refresh_duration_seconds",
			Help:    "collection refresh duration",
			Buckets: prometheus.DefBuckets,
		}, []string{"resource"}),
		refreshRecords: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "unigame_refresh_records",
			Help: "records in the last successful refresh",
		}, []string{"resource"}),
		watcherEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "unigame_watcher_events_total",
			Help: "decoded contract events by name",
		}, []string{"event"}),
		watcherBlockLag: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "unigame_watcher_block_lag",
			Help: "blocks between chain head and last processed block",
		}),
	}
	prometheus.MustRegister(
		m.mutations,
		m.refreshDuration,
		m.refreshRecords,
		m.watcherEvents,
		m.watcherBlockLag,
	)
	return m
}

// ObserveMutation counts one finished mutation attempt.
func (m *Metrics) ObserveMutation(action, outcome string) {
	m.mutations.WithLabelValues(action, outcome).Inc()
}

// ObserveRefresh records a completed collection refresh.
func (m *Metrics) ObserveRefresh(resource model.Resource, took time.Duration, records int) {
	m.refreshDuration.WithLabelValues(string(resource)).Observe(took.Seconds())
	m.refreshRecords.WithLabelValues(string(resource)).Set(float64(records))
}

// ObserveEvent counts one decoded contract event.
func (m *Metrics) ObserveEvent(name string) {
	m.watcherEvents.WithLabelValues(name).Inc()
}

// ObserveBlockLag records the watcher's distance from the chain head.
func (m *Metrics) ObserveBlockLag(lag uint64) {
	m.watcherBlockLag.Set(float64(lag))
}

// HealthFunc reports readiness; non-nil means unhealthy.
type HealthFunc func(ctx context.Context) error

// StartServer runs a side server with /metrics and /healthz on its
// own port. The caller shuts it down with the returned server.
func StartServer(port int, healthFn HealthFunc) *http.Server {
	mux := http.NewServeMux()

	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()

		if healthFn != nil {
			if err := healthFn(ctx); err != nil {
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(fmt.Sprintf("unhealthy: %v", err)))
				return
			}
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		_ = srv.ListenAndServe()
	}()

	return srv
}

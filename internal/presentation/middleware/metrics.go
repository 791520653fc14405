package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being served",
		},
	)
)

// Metrics returns a middleware that collects Prometheus metrics
func Metrics() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			httpRequestsInFlight.Inc()
			defer httpRequestsInFlight.Dec()

			wrapped := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			duration := time.Since(start).Seconds()
			status := strconv.Itoa(wrapped.status)
			path := normalizePath(r)

			httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
		})
	}
}

// normalizePath reports the matched chi route pattern so asset ids do not
// become label values
func normalizePath(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unmatched"
}

// WalletMetrics holds Prometheus metrics for wallet mutations
type WalletMetrics struct {
	MutationsTotal *prometheus.CounterVec
	Assets         prometheus.Gauge
}

// NewWalletMetrics creates wallet metrics registered on reg
func NewWalletMetrics(reg prometheus.Registerer) *WalletMetrics {
	factory := promauto.With(reg)
	return &WalletMetrics{
		MutationsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "wallet_mutations_total",
			Help: "Total number of wallet mutations by operation and result",
		}, []string{"operation", "result"}),
		Assets: factory.NewGauge(prometheus.GaugeOpts{
			Name: "wallet_assets",
			Help: "Number of assets held by the wallet after the last write",
		}),
	}
}

// ObserveMutation counts one mutation outcome
func (m *WalletMetrics) ObserveMutation(operation, result string) {
	m.MutationsTotal.WithLabelValues(operation, result).Inc()
}

// SetAssetCount records the current asset count
func (m *WalletMetrics) SetAssetCount(n int) {
	m.Assets.Set(float64(n))
}

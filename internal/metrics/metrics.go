package metrics

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	AuthOperations       *prometheus.CounterVec
	ReuseDetections      prometheus.Counter
	CascadeRevocations   prometheus.Counter
	PrunedTokens         prometheus.Counter
	NotificationsDropped prometheus.Counter
	RequestCount         *prometheus.CounterVec
	RequestDuration      *prometheus.HistogramVec
}

func New(reg prometheus.Registerer, namespace string) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		AuthOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Authentication operations by outcome",
		}, []string{"operation", "outcome"}),
		ReuseDetections: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_token_reuse_total",
			Help:      "Presentations of already rotated refresh tokens",
		}),
		CascadeRevocations: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "cascade_revocations_total",
			Help:      "Refresh tokens revoked by reuse containment",
		}),
		PrunedTokens: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "refresh_tokens_pruned_total",
			Help:      "Inactive refresh tokens removed by retention pruning",
		}),
		NotificationsDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "dropped_total",
			Help:      "Notifications dropped because the queue was full",
		}),
		RequestCount: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint"}),
	}
}

// Nil receivers are no-ops so callers can run without metrics.

func (m *Metrics) Auth(operation, outcome string) {
	if m == nil {
		return
	}
	m.AuthOperations.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) Reuse(revoked int) {
	if m == nil {
		return
	}
	m.ReuseDetections.Inc()
	m.CascadeRevocations.Add(float64(revoked))
}

func (m *Metrics) Pruned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.PrunedTokens.Add(float64(n))
}

func (m *Metrics) NotificationDropped() {
	if m == nil {
		return
	}
	m.NotificationsDropped.Inc()
}

func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if he, ok := err.(*echo.HTTPError); ok {
				status = he.Code
			}
			endpoint := c.Path()
			if endpoint == "" {
				endpoint = "unmatched"
			}
			m.RequestCount.WithLabelValues(c.Request().Method, endpoint, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, endpoint).Observe(time.Since(start).Seconds())
			return err
		}
	}
}

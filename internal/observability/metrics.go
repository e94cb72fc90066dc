package observability

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce sync.Once

	launchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scorm",
			Name:      "launch_total",
			Help:      "Launch resolutions by outcome and strategy.",
		},
		[]string{"outcome", "strategy"},
	)
	probeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scorm",
			Name:      "probe_duration_seconds",
			Help:      "Existence probe latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"kind", "found"},
	)
	bridgeMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scorm",
			Subsystem: "bridge",
			Name:      "messages_total",
			Help:      "Bridge messages handled by the host half.",
		},
		[]string{"action", "outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "scorm",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "scorm",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
	activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "scorm",
		Name:      "sessions_active",
		Help:      "Runtime sessions currently held in memory.",
	})
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(launchTotal, probeDuration, bridgeMessages, httpRequests, httpDuration, activeSessions)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	RegisterMetrics()
	return promhttp.Handler()
}

func RecordLaunch(outcome, strategy string) {
	RegisterMetrics()
	launchTotal.WithLabelValues(outcome, strategy).Inc()
}

func RecordProbe(kind string, found bool, d time.Duration) {
	RegisterMetrics()
	probeDuration.WithLabelValues(kind, strconv.FormatBool(found)).Observe(d.Seconds())
}

func RecordBridgeMessage(action, outcome string) {
	RegisterMetrics()
	bridgeMessages.WithLabelValues(action, outcome).Inc()
}

func RecordHTTPRequest(method, route string, status int, d time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, route, statusLabel).Inc()
	httpDuration.WithLabelValues(method, route, statusLabel).Observe(d.Seconds())
}

func SetActiveSessions(n int) {
	RegisterMetrics()
	activeSessions.Set(float64(n))
}

package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tabdeck"

// PrometheusRecorder implements Recorder on a dedicated registry.
type PrometheusRecorder struct {
	registry *prometheus.Registry

	authOperations     *prometheus.CounterVec
	imageFetches       *prometheus.CounterVec
	imageFetchDuration prometheus.Histogram
	breakerState       *prometheus.GaugeVec
	latestImageCache   *prometheus.CounterVec
	httpDuration       *prometheus.HistogramVec
}

// NewPrometheus creates a recorder with Go runtime and process collectors.
func NewPrometheus() *PrometheusRecorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &PrometheusRecorder{
		registry: reg,
		authOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "operations_total",
			Help:      "Auth operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		imageFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "image_fetcher",
			Name:      "runs_total",
			Help:      "Image fetch runs by outcome.",
		}, []string{"outcome"}),
		imageFetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "image_fetcher",
			Name:      "run_duration_seconds",
			Help:      "Duration of image fetch runs in seconds.",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
		breakerState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "circuit_breaker_state",
			Help:      "Current circuit breaker state (0=closed, 1=half-open, 2=open).",
		}, []string{"component"}),
		latestImageCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "latest_image_cache",
			Name:      "lookups_total",
			Help:      "Latest image cache lookups by result.",
		}, []string{"result"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status_code"}),
	}
}

// Handler serves the registry in Prometheus exposition format.
func (p *PrometheusRecorder) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (p *PrometheusRecorder) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusRecorder) IncAuthOperation(op, outcome string) {
	p.authOperations.WithLabelValues(op, outcome).Inc()
}

func (p *PrometheusRecorder) IncImageFetch(outcome string) {
	p.imageFetches.WithLabelValues(outcome).Inc()
}

func (p *PrometheusRecorder) ObserveImageFetchDuration(duration time.Duration) {
	p.imageFetchDuration.Observe(duration.Seconds())
}

func (p *PrometheusRecorder) SetCircuitBreakerState(component string, state int) {
	p.breakerState.WithLabelValues(component).Set(float64(state))
}

func (p *PrometheusRecorder) IncLatestImageCacheHit() {
	p.latestImageCache.WithLabelValues("hit").Inc()
}

func (p *PrometheusRecorder) IncLatestImageCacheMiss() {
	p.latestImageCache.WithLabelValues("miss").Inc()
}

func (p *PrometheusRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	p.httpDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
}

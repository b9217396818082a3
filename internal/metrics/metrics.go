// Package metrics держит коллекторы Prometheus сервиса. Регистрация идёт в
// переданный Registerer, глобальный реестр не используется.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "proofrelay"

const (
	OutcomeSuccess         = "success"
	OutcomeInvalidRequest  = "invalid_request"
	OutcomeUpstreamFailure = "upstream_failure"
)

type Collectors struct {
	Uploads         *prometheus.CounterVec
	IPFSAddDuration prometheus.Histogram
	UploadedBytes   prometheus.Counter
	EventsFailed    prometheus.Counter

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Collectors {
	c := &Collectors{
		Uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploads_total",
			Help:      "Proof uploads by outcome",
		}, []string{"outcome"}),
		IPFSAddDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ipfs_add_duration_seconds",
			Help:      "Duration of /api/v0/add calls to the IPFS node",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}),
		UploadedBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "uploaded_bytes_total",
			Help:      "Bytes successfully added to the IPFS node",
		}),
		EventsFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_failed_total",
			Help:      "Proof events that could not be published",
		}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status",
		}, []string{"method", "route", "status"}),
		HTTPDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 120},
		}, []string{"method", "route"}),
	}

	// предсоздаём серии, чтобы нули были видны до первой загрузки
	for _, outcome := range []string{OutcomeSuccess, OutcomeInvalidRequest, OutcomeUpstreamFailure} {
		c.Uploads.WithLabelValues(outcome)
	}

	if reg != nil {
		reg.MustRegister(
			c.Uploads,
			c.IPFSAddDuration,
			c.UploadedBytes,
			c.EventsFailed,
			c.HTTPRequests,
			c.HTTPDuration,
		)
	}
	return c
}

// NewRegistry создаёт реестр сервиса с процессными и Go-коллекторами.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

func (c *Collectors) UploadOutcome(outcome string) {
	if c == nil {
		return
	}
	c.Uploads.WithLabelValues(outcome).Inc()
}

package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "hrdesk"

type metrics struct {
	chatRequests    *prometheus.CounterVec
	formsCreated    prometheus.Counter
	formSubmissions *prometheus.CounterVec
	ticketsCreated  prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		chatRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "chat_requests_total",
			Help:      "Chat messages answered, by recognised intent",
		}, []string{"intent"}),

		formsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "forms_created_total",
			Help:      "Dynamic forms shown to users",
		}),

		formSubmissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "form_submissions_total",
			Help:      "Form submissions, by result",
		}, []string{"result"}),

		ticketsCreated: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "tickets_created_total",
			Help:      "Support tickets created from submitted forms",
		}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

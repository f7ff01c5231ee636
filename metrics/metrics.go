// Package metrics exposes Prometheus counters for lead intake and webhook
// traffic.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest outcomes.
const (
	OutcomeAccepted   = "accepted"
	OutcomeNoDB       = "no_db"
	OutcomeInvalid    = "invalid"
	OutcomeStoreError = "store_error"
	OutcomeUnexpected = "unexpected"
)

// Metrics holds the service counters. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	leadsTotal    *prometheus.CounterVec
	eventsTotal   *prometheus.CounterVec
	webhooksTotal *prometheus.CounterVec
	itemsTotal    *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "ingest",
			Name:      "leads_total",
			Help:      "Lead submissions by outcome",
		}, []string{"outcome"}),
		eventsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "ingest",
			Name:      "lead_events_total",
			Help:      "Lead event writes by status",
		}, []string{"status"}),
		webhooksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "whatsapp",
			Name:      "webhooks_total",
			Help:      "WhatsApp webhook notifications by status",
		}, []string{"status"}),
		itemsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "leadintake",
			Subsystem: "whatsapp",
			Name:      "items_total",
			Help:      "Messages and delivery statuses carried by WhatsApp webhooks",
		}, []string{"kind"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.leadsTotal, m.eventsTotal, m.webhooksTotal, m.itemsTotal)
	return m
}

func (m *Metrics) ObserveLead(outcome string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveEvent(err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "failed"
	}
	m.eventsTotal.WithLabelValues(status).Inc()
}

func (m *Metrics) ObserveWebhook(status string, messages, statuses int) {
	if m == nil {
		return
	}
	m.webhooksTotal.WithLabelValues(status).Inc()
	m.itemsTotal.WithLabelValues("message").Add(float64(messages))
	m.itemsTotal.WithLabelValues("status").Add(float64(statuses))
}

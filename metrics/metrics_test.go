package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveLead(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveLead(OutcomeAccepted)
	m.ObserveLead(OutcomeAccepted)
	m.ObserveLead(OutcomeInvalid)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.leadsTotal.WithLabelValues(OutcomeAccepted)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.leadsTotal.WithLabelValues(OutcomeInvalid)))
}

func TestObserveEvent(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveEvent(nil)
	m.ObserveEvent(errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsTotal.WithLabelValues("failed")))
}

func TestObserveWebhook(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveWebhook("received", 2, 3)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.webhooksTotal.WithLabelValues("received")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("message")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.itemsTotal.WithLabelValues("status")))
}

func TestNilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveLead(OutcomeAccepted)
	m.ObserveEvent(nil)
	m.ObserveWebhook("received", 1, 1)
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Observe("login", OutcomeSuccess, 10*time.Millisecond)
	m.Observe("login", OutcomeError, 10*time.Millisecond)
	m.Observe("login", OutcomeSuccess, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RequestTotal.WithLabelValues("login", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestTotal.WithLabelValues("login", OutcomeError)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RequestDuration))
}

func TestNewTwiceOnSameRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	first := New(reg)
	second := New(reg)

	first.Observe("search", OutcomeSuccess, time.Millisecond)
	assert.Equal(t, 1.0, testutil.ToFloat64(second.RequestTotal.WithLabelValues("search", OutcomeSuccess)))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.Observe("x", OutcomeSuccess, time.Second) })
}

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestPrometheusRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewPrometheus(reg)

	p.CheckoutFinished(OutcomeCompleted, 150*time.Millisecond)
	p.CheckoutFinished(OutcomeCompleted, 50*time.Millisecond)
	p.CheckoutFinished(OutcomeDeclined, 10*time.Millisecond)
	p.Reconciled(ResultFinalized, 3)
	p.Reconciled(ResultAbandoned, 0)

	families := gather(t, reg)

	checkouts := families["sickfits_checkouts_total"]
	require.NotNil(t, checkouts)
	counts := map[string]float64{}
	for _, m := range checkouts.GetMetric() {
		counts[m.GetLabel()[0].GetValue()] = m.GetCounter().GetValue()
	}
	assert.Equal(t, 2.0, counts[OutcomeCompleted])
	assert.Equal(t, 1.0, counts[OutcomeDeclined])

	hist := families["sickfits_checkout_duration_seconds"].GetMetric()[0].GetHistogram()
	assert.Equal(t, uint64(3), hist.GetSampleCount())

	reconciled := families["sickfits_reconciled_checkouts_total"].GetMetric()
	require.Len(t, reconciled, 1)
	assert.Equal(t, 3.0, reconciled[0].GetCounter().GetValue())
}

func TestTimer(t *testing.T) {
	timer := StartTimer()
	time.Sleep(5 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Duration(), 5*time.Millisecond)
}

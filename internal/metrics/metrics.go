// Package metrics exposes checkout and reconciliation outcomes to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutcomeCompleted = "completed"
	OutcomeReplayed  = "replayed"
	OutcomeDeclined  = "declined"
	OutcomeFailed    = "failed"
	OutcomeLocked    = "locked"
	OutcomeRejected  = "rejected"

	ResultFinalized = "finalized"
	ResultAbandoned = "abandoned"
	ResultError     = "error"
)

// Recorder receives checkout lifecycle events.
type Recorder interface {
	CheckoutFinished(outcome string, took time.Duration)
	Reconciled(result string, n int)
}

type Prometheus struct {
	checkouts  *prometheus.CounterVec
	duration   prometheus.Histogram
	reconciled *prometheus.CounterVec
}

// NewPrometheus builds the collectors and registers them on reg.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	p := &Prometheus{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sickfits_checkouts_total",
			Help: "Checkout attempts by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sickfits_checkout_duration_seconds",
			Help:    "Wall time of createOrder, lock to response.",
			Buckets: prometheus.DefBuckets,
		}),
		reconciled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sickfits_reconciled_checkouts_total",
			Help: "Checkouts resolved by the reconciliation job.",
		}, []string{"result"}),
	}
	reg.MustRegister(p.checkouts, p.duration, p.reconciled)
	return p
}

func (p *Prometheus) CheckoutFinished(outcome string, took time.Duration) {
	p.checkouts.WithLabelValues(outcome).Inc()
	p.duration.Observe(took.Seconds())
}

func (p *Prometheus) Reconciled(result string, n int) {
	if n <= 0 {
		return
	}
	p.reconciled.WithLabelValues(result).Add(float64(n))
}

// Noop discards everything.
type Noop struct{}

func (Noop) CheckoutFinished(string, time.Duration) {}
func (Noop) Reconciled(string, int)                 {}

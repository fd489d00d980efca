// SPDX-License-Identifier: MIT

package irt

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "irtcalc"

// Metrics holds the Prometheus collectors updated while learning.
// A nil *Metrics records nothing.
type Metrics struct {
	// Iterations counts completed Adapt calls.
	Iterations prometheus.Counter

	// ELBO is the evidence lower bound of the last iteration.
	ELBO prometheus.Gauge

	// Traits is the current number of latent traits.
	Traits prometheus.Gauge

	// PhaseSeconds measures each adaptation phase.
	// Labels: phase (precision, scales, groups)
	PhaseSeconds *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
// Panics on duplicate registration.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Iterations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "iterations_total",
			Help:      "Number of completed variational iterations",
		}),
		ELBO: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "elbo",
			Help:      "Evidence lower bound after the last iteration",
		}),
		Traits: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "traits",
			Help:      "Current number of latent traits",
		}),
		PhaseSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "phase_duration_seconds",
			Help:      "Duration of each adaptation phase",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 10),
		}, []string{"phase"}),
	}
	reg.MustRegister(m.Iterations, m.ELBO, m.Traits, m.PhaseSeconds)
	return m
}

func (m *Metrics) observePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseSeconds.WithLabelValues(phase).Observe(d.Seconds())
}

func (m *Metrics) observeIteration(elbo float64, nTraits int) {
	if m == nil {
		return
	}
	m.Iterations.Inc()
	m.ELBO.Set(elbo)
	m.Traits.Set(float64(nTraits))
}

func (m *Metrics) setTraits(nTraits int) {
	if m == nil {
		return
	}
	m.Traits.Set(float64(nTraits))
}

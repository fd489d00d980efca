// SPDX-License-Identifier: MIT

package irt

import (
	"fmt"

	"github.com/katalvlaran/irtcalc/dispatch"
	"github.com/katalvlaran/irtcalc/randx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Defaults for Initialize.
const (
	// DefaultScaleSamples gives point-estimated thresholds.
	DefaultScaleSamples = 1

	// DefaultSubjectSamples is the number of trait samples per subject.
	DefaultSubjectSamples = 50

	// DefaultTraitScale is the assumed initial trait standard deviation used
	// to seed thresholds from response counts.
	DefaultTraitScale = 3.0
)

// tracerName identifies spans emitted by this package.
const tracerName = "github.com/katalvlaran/irtcalc/irt"

// Option configures Initialize and Restore.
type Option func(*options)

type options struct {
	nTraits        int // 0 ⇒ number of items
	scaleSamples   int
	subjectSamples int
	traitScale     float64
	seed           uint64
	conc           dispatch.ConcurrencyConfig
	log            *zap.Logger
	metrics        *Metrics
	tracer         trace.Tracer
}

func defaultOptions() options {
	return options{
		scaleSamples:   DefaultScaleSamples,
		subjectSamples: DefaultSubjectSamples,
		traitScale:     DefaultTraitScale,
		seed:           randx.DefaultSeed,
		conc:           dispatch.DefaultConcurrency(),
		log:            zap.NewNop(),
		tracer:         otel.Tracer(tracerName),
	}
}

func gatherOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithTraits sets the number of latent traits. Panics if n < 1; a value
// above the number of items is rejected by Initialize with ErrTraitCount.
func WithTraits(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("irt: WithTraits(%d): must be >= 1", n))
	}
	return func(o *options) { o.nTraits = n }
}

// WithScaleSamples sets the number of threshold samples per item.
// One sample means a point estimate.
func WithScaleSamples(n int) Option {
	if n < 1 {
		panic(fmt.Sprintf("irt: WithScaleSamples(%d): must be >= 1", n))
	}
	return func(o *options) { o.scaleSamples = n }
}

// WithSubjectSamples sets the number of trait samples per subject.
func WithSubjectSamples(n int) Option {
	if n < 2 {
		panic(fmt.Sprintf("irt: WithSubjectSamples(%d): must be >= 2", n))
	}
	return func(o *options) { o.subjectSamples = n }
}

// WithTraitScale sets the initial trait standard deviation.
func WithTraitScale(s float64) Option {
	if !(s > 0) {
		panic(fmt.Sprintf("irt: WithTraitScale(%v): must be > 0", s))
	}
	return func(o *options) { o.traitScale = s }
}

// WithSeed sets the root seed of every random stream in the model.
func WithSeed(seed uint64) Option {
	return func(o *options) { o.seed = seed }
}

// WithConcurrency sets how item and group updates are executed.
func WithConcurrency(c dispatch.ConcurrencyConfig) Option {
	if c.PoolSize < 0 {
		panic(fmt.Sprintf("irt: WithConcurrency: negative pool size %d", c.PoolSize))
	}
	return func(o *options) { o.conc = c }
}

// WithLogger sets the logger; nil restores the no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l == nil {
			l = zap.NewNop()
		}
		o.log = l
	}
}

// WithMetrics records learning progress into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithTracerProvider takes spans from tp instead of the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	if tp == nil {
		panic("irt: WithTracerProvider(nil)")
	}
	return func(o *options) { o.tracer = tp.Tracer(tracerName) }
}

package telemetry

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Measurer counts an operation and records its duration in milliseconds.
// It is not thread-safe.
type Measurer struct {
	clock      clockwork.Clock
	counter    Counter
	histogram  Histogram
	attributes attribute.Set
	startTime  time.Time
}

func NewMeasurer(meter Meter, clock clockwork.Clock, name string, attrs ...attribute.KeyValue) (*Measurer, error) {
	counter, err := meter.Int64Counter(name)
	if err != nil {
		return nil, err
	}
	histogram, err := meter.Int64Histogram(name+".duration", metric.WithUnit("ms"))
	if err != nil {
		return nil, err
	}
	return &Measurer{
		clock:      clock,
		counter:    counter,
		histogram:  histogram,
		attributes: attribute.NewSet(attrs...),
		startTime:  clock.Now(),
	}, nil
}

func (m *Measurer) Restart() {
	m.startTime = m.clock.Now()
}

func (m *Measurer) Measure(ctx context.Context) time.Duration {
	elapsed := m.clock.Since(m.startTime)
	m.counter.Add(ctx, 1, metric.WithAttributeSet(m.attributes))
	m.histogram.Record(ctx, elapsed.Milliseconds(), metric.WithAttributeSet(m.attributes))
	return elapsed
}

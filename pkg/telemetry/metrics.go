package telemetry

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Counter is a lazily created int64 counter bound to the global meter provider
type Counter struct {
	name string
	desc string

	once sync.Once
	c    metric.Int64Counter
}

// NewCounter declares a counter; the instrument is created on first use so
// that it binds to the provider installed by Init.
func NewCounter(name, description string) *Counter {
	return &Counter{name: name, desc: description}
}

// Add increments the counter by n
func (c *Counter) Add(ctx context.Context, n int64, attrs ...attribute.KeyValue) {
	c.once.Do(func() {
		counter, err := otel.Meter(InstrumentationName).Int64Counter(c.name, metric.WithDescription(c.desc))
		if err == nil {
			c.c = counter
		}
	})
	if c.c == nil {
		return
	}
	c.c.Add(ctx, n, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, attrs...)
}

// Package telemetry provides metrics and tracing middleware for the write
// chain. Both consume only middleware-visible change records; neither touches
// signal internals.
package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/signet-dev/signet/pkg/signet"
)

// Metrics returns middleware exporting write-chain counters and latency to
// the given Prometheus registerer.
//
// Exported series:
//
//	signet_writes_total{signal}            writes entering the chain
//	signet_writes_committed_total{signal}  writes that survived the chain
//	signet_batches_total                   sync batches opened
//	signet_write_duration_seconds          write-to-after-hook latency
//
// Vetoed writes show up as the difference between the first two counters.
func Metrics(reg prometheus.Registerer) signet.Middleware {
	writes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signet_writes_total",
		Help: "Signal writes entering the middleware chain.",
	}, []string{"signal"})

	commits := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signet_writes_committed_total",
		Help: "Signal writes committed after the middleware chain.",
	}, []string{"signal"})

	batches := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "signet_batches_total",
		Help: "Sync batches opened.",
	})

	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "signet_write_duration_seconds",
		Help:    "Latency from write issue to after-hook.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 10, 8),
	})

	reg.MustRegister(writes, commits, batches, latency)

	return signet.Middleware{
		Name: "telemetry.metrics",
		Before: func(c *signet.StateChange) bool {
			writes.WithLabelValues(c.Name).Inc()
			return true
		},
		After: func(c *signet.StateChange) {
			commits.WithLabelValues(c.Name).Inc()
			latency.Observe(time.Since(c.Timestamp).Seconds())
		},
		BatchStart: func() {
			batches.Inc()
		},
	}
}

// Tracing returns middleware emitting one span per committed write and one
// span per top-level sync batch. Write spans start at the change's issue
// timestamp, so they carry the full chain latency. Vetoed writes emit no
// span.
func Tracing(tracer trace.Tracer) signet.Middleware {
	var mu sync.Mutex
	var batchSpan trace.Span

	return signet.Middleware{
		Name: "telemetry.tracing",
		After: func(c *signet.StateChange) {
			_, span := tracer.Start(context.Background(), "signet.write",
				trace.WithTimestamp(c.Timestamp),
				trace.WithAttributes(
					attribute.String("signal", c.Name),
					attribute.String("value.type", c.Type),
					attribute.Bool("stopped", c.Stopped()),
				),
			)
			span.End()
		},
		BatchStart: func() {
			mu.Lock()
			defer mu.Unlock()
			_, batchSpan = tracer.Start(context.Background(), "signet.batch")
		},
		BatchEnd: func() {
			mu.Lock()
			defer mu.Unlock()
			if batchSpan != nil {
				batchSpan.End()
				batchSpan = nil
			}
		},
	}
}

package runtime

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	handlerpkg "github.com/drblury/lambdaflow/internal/runtime/handlers"
	"github.com/drblury/lambdaflow/internal/runtime/invokectx"
	loggingpkg "github.com/drblury/lambdaflow/internal/runtime/logging"
)

// Middleware wraps the raw handler the invocation loop dispatches to.
type Middleware func(next handlerpkg.RawHandler) handlerpkg.RawHandler

// MiddlewareBuilder constructs a middleware using the service instance.
// Returning a nil middleware skips registration (used for config-gated
// middlewares such as metrics).
type MiddlewareBuilder func(*Service) (Middleware, error)

// MiddlewareRegistration captures how a middleware should be registered on a
// Service.
type MiddlewareRegistration struct {
	Name       string
	Middleware Middleware
	Builder    MiddlewareBuilder
}

// DefaultMiddlewares returns the standard middleware chain registered by the
// Service constructor: structured invocation logging, OpenTelemetry tracing,
// and Prometheus metrics. Panics are deliberately not recovered anywhere in
// the chain; a crashing handler must surface as a non-graceful process exit.
func DefaultMiddlewares() []MiddlewareRegistration {
	return []MiddlewareRegistration{
		LogInvocationsMiddleware(nil),
		TracerMiddleware(),
		MetricsMiddleware(),
	}
}

// LogInvocationsMiddleware logs the start and outcome of every invocation.
func LogInvocationsMiddleware(logger loggingpkg.ServiceLogger) MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "log_invocations",
		Builder: func(s *Service) (Middleware, error) {
			l := logger
			if l == nil {
				l = s.Logger
			}
			if l == nil {
				l = loggingpkg.Default()
			}
			return func(next handlerpkg.RawHandler) handlerpkg.RawHandler {
				return func(ctx context.Context, payload []byte) ([]byte, error) {
					fields := loggingpkg.LogFields{"payload_bytes": len(payload)}
					if meta, ok := invokectx.FromContext(ctx); ok {
						fields["request_id"] = meta.RequestID
						fields["function_arn"] = meta.InvokedFunctionARN
					}
					l.Debug("Dispatching invocation", fields)

					started := time.Now()
					out, err := next(ctx, payload)
					fields["duration_ms"] = time.Since(started).Milliseconds()

					if err != nil {
						l.Error("Invocation failed", err, fields)
						return nil, err
					}
					l.Info("Invocation complete", fields)
					return out, nil
				}
			}, nil
		},
	}
}

// TracerMiddleware wraps each invocation with an OpenTelemetry span.
func TracerMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "tracer",
		Middleware: func(next handlerpkg.RawHandler) handlerpkg.RawHandler {
			return func(ctx context.Context, payload []byte) ([]byte, error) {
				tracer := otel.Tracer("lambdaflow-runtime")
				ctx, span := tracer.Start(ctx, "Invoke", trace.WithSpanKind(trace.SpanKindServer))
				defer span.End()

				if meta, ok := invokectx.FromContext(ctx); ok {
					span.SetAttributes(
						attribute.String("faas.invocation_id", meta.RequestID),
						attribute.String("aws.lambda.invoked_arn", meta.InvokedFunctionARN),
						attribute.String("aws.xray.trace_id", meta.XRayTraceID),
					)
				}

				out, err := next(ctx, payload)
				if err != nil {
					span.RecordError(err)
					span.SetStatus(codes.Error, err.Error())
				}
				return out, err
			}
		},
	}
}

// MetricsMiddleware adds Prometheus metrics to the invocation loop. Gated on
// Config.MetricsEnabled; when MetricsPort is set the service also exposes
// /metrics on that port.
func MetricsMiddleware() MiddlewareRegistration {
	return MiddlewareRegistration{
		Name: "metrics",
		Builder: func(s *Service) (Middleware, error) {
			if !s.Conf.MetricsEnabled {
				return nil, nil
			}

			m := newInvocationMetrics(prometheus.DefaultRegisterer)

			if s.Conf.MetricsPort > 0 {
				s.RegisterHTTPHandler(s.Conf.MetricsPort, "/metrics", promhttp.Handler())
			}

			return func(next handlerpkg.RawHandler) handlerpkg.RawHandler {
				return func(ctx context.Context, payload []byte) ([]byte, error) {
					m.inFlight.Inc()
					started := time.Now()

					out, err := next(ctx, payload)

					m.inFlight.Dec()
					m.duration.Observe(time.Since(started).Seconds())
					if err != nil {
						m.invocations.WithLabelValues("error").Inc()
						return nil, err
					}
					m.invocations.WithLabelValues("success").Inc()
					return out, nil
				}
			}, nil
		},
	}
}

type invocationMetrics struct {
	invocations *prometheus.CounterVec
	inFlight    prometheus.Gauge
	duration    prometheus.Histogram
}

func newInvocationMetrics(registerer prometheus.Registerer) *invocationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &invocationMetrics{
		invocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lambdaflow",
			Name:      "invocations_total",
			Help:      "Completed invocations partitioned by result.",
		}, []string{"result"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "lambdaflow",
			Name:      "invocations_in_flight",
			Help:      "Invocations currently being handled. At most 1 per loop.",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lambdaflow",
			Name:      "invocation_duration_seconds",
			Help:      "Handler execution time per invocation.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	for _, collector := range []prometheus.Collector{m.invocations, m.inFlight, m.duration} {
		if err := registerer.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch existing := already.ExistingCollector.(type) {
				case *prometheus.CounterVec:
					m.invocations = existing
				case prometheus.Gauge:
					m.inFlight = existing
				case prometheus.Histogram:
					m.duration = existing
				}
				continue
			}
			panic(err)
		}
	}

	return m
}

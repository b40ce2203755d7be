package core

import (
	"context"
	"time"
)

// Logger is the minimal structured logging surface the pipeline emits to.
// Args follow the slog convention of alternating keys and values.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MetricsRecorder receives one observation per service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

type noopMetricsRecorder struct{}

func (noopMetricsRecorder) Observe(context.Context, string, bool, time.Duration) {}

// Tracer opens one span per service operation.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

// TraceSpan terminates a span, recording the operation's error if any.
type TraceSpan interface {
	End(err error)
}

type noopTracer struct{}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

type noopSpan struct{}

func (noopSpan) End(error) {}

// Clock supplies the timestamps stamped onto run metadata.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a plain function to the Clock interface. A nil function
// falls back to the system clock. Times are always normalized to UTC.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time {
	if f == nil {
		return time.Now().UTC()
	}
	return f().UTC()
}

type serviceOptions struct {
	logger  Logger
	clock   Clock
	metrics MetricsRecorder
	tracer  Tracer
}

func defaultServiceOptions() serviceOptions {
	return serviceOptions{
		logger:  noopLogger{},
		clock:   ClockFunc(nil),
		metrics: noopMetricsRecorder{},
		tracer:  noopTracer{},
	}
}

// ServiceOption customises service construction.
type ServiceOption func(*serviceOptions)

// WithLogger attaches a logger; nil restores the no-op default.
func WithLogger(logger Logger) ServiceOption {
	return func(o *serviceOptions) {
		if logger == nil {
			o.logger = noopLogger{}
			return
		}
		o.logger = logger
	}
}

// WithClock overrides the timestamp source used for run metadata.
func WithClock(clock Clock) ServiceOption {
	return func(o *serviceOptions) {
		if clock == nil {
			o.clock = ClockFunc(nil)
			return
		}
		o.clock = clock
	}
}

// WithMetricsRecorder attaches a metrics recorder; nil restores the no-op
// default.
func WithMetricsRecorder(metrics MetricsRecorder) ServiceOption {
	return func(o *serviceOptions) {
		if metrics == nil {
			o.metrics = noopMetricsRecorder{}
			return
		}
		o.metrics = metrics
	}
}

// WithTracer attaches a tracer; nil restores the no-op default.
func WithTracer(tracer Tracer) ServiceOption {
	return func(o *serviceOptions) {
		if tracer == nil {
			o.tracer = noopTracer{}
			return
		}
		o.tracer = tracer
	}
}

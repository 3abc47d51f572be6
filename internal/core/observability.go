package core

import (
	"context"
	"log"
	"time"
)

// Logger is the minimal structured-ish logging surface consumed by the core.
// Implementations must be safe for concurrent use.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

// NoopLogger discards all log output.
type NoopLogger struct{}

// Infof implements Logger.
func (NoopLogger) Infof(string, ...any) {}

// Warnf implements Logger.
func (NoopLogger) Warnf(string, ...any) {}

// Errorf implements Logger.
func (NoopLogger) Errorf(string, ...any) {}

// StdLogger adapts the standard library logger to the Logger interface.
type StdLogger struct {
	L *log.Logger
}

// Infof implements Logger.
func (s StdLogger) Infof(format string, args ...any) { s.L.Printf("INFO "+format, args...) }

// Warnf implements Logger.
func (s StdLogger) Warnf(format string, args ...any) { s.L.Printf("WARN "+format, args...) }

// Errorf implements Logger.
func (s StdLogger) Errorf(format string, args ...any) { s.L.Printf("ERROR "+format, args...) }

// MetricsRecorder receives one observation per completed service operation.
type MetricsRecorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// TraceSpan terminates a trace started by a Tracer.
type TraceSpan interface {
	End(err error)
}

// Tracer starts spans around service operations.
type Tracer interface {
	Start(ctx context.Context, operation string) (context.Context, TraceSpan)
}

type noopMetrics struct{}

func (noopMetrics) Observe(context.Context, string, bool, time.Duration) {}

type noopTracer struct{}

type noopSpan struct{}

func (noopSpan) End(error) {}

func (noopTracer) Start(ctx context.Context, _ string) (context.Context, TraceSpan) {
	return ctx, noopSpan{}
}

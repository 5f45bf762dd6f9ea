package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/spark/internal/core/ports"
)

// DefaultSlowThreshold is the build duration above which a warning is logged.
const DefaultSlowThreshold = 2 * time.Second

// SlowSpanLogger implements sdktrace.SpanProcessor and warns about builds
// and transforms that take longer than a threshold.
type SlowSpanLogger struct {
	logger    ports.Logger
	threshold time.Duration
	names     map[string]struct{}
}

// NewSlowSpanLogger returns a processor watching spans with the given names.
func NewSlowSpanLogger(logger ports.Logger, threshold time.Duration, names ...string) *SlowSpanLogger {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return &SlowSpanLogger{logger: logger, threshold: threshold, names: set}
}

// OnStart does nothing.
func (b *SlowSpanLogger) OnStart(context.Context, sdktrace.ReadWriteSpan) {}

// OnEnd is called when a span ends.
func (b *SlowSpanLogger) OnEnd(s sdktrace.ReadOnlySpan) {
	if _, watched := b.names[s.Name()]; !watched {
		return
	}
	took := s.EndTime().Sub(s.StartTime())
	if took < b.threshold {
		return
	}

	subject := s.Name()
	for _, kv := range s.Attributes() {
		if kv.Key == attribute.Key("path") || kv.Key == attribute.Key("plugin") {
			subject = fmt.Sprintf("%s %s", s.Name(), kv.Value.Emit())
			break
		}
	}
	b.logger.Warn(fmt.Sprintf("slow %s took %s", subject, took.Round(time.Millisecond)))
}

// ForceFlush does nothing.
func (b *SlowSpanLogger) ForceFlush(context.Context) error {
	return nil
}

// Shutdown does nothing.
func (b *SlowSpanLogger) Shutdown(context.Context) error {
	return nil
}

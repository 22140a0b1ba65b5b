package internal

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

type Telemetry struct {
	componentKind string
	componentName string

	l *Logger

	tracer trace.Tracer
	meter  metric.Meter
}

func NewTelemetry(componentKind, componentName string) *Telemetry {
	return &Telemetry{
		componentKind: componentKind,
		componentName: componentName,

		l: NewLogger(componentKind, componentName),

		tracer: otel.GetTracerProvider().Tracer("cantel"),
		meter:  otel.GetMeterProvider().Meter("cantel"),
	}
}

func (t *Telemetry) Logger() *Logger {
	return t.l
}

func (t *Telemetry) LogInfo(msg string, args ...any) {
	t.l.Info(msg, args...)
}

func (t *Telemetry) LogWarn(msg string, args ...any) {
	t.l.Warn(msg, args...)
}

func (t *Telemetry) LogError(msg string, err error, args ...any) {
	t.l.Error(msg, err, args...)
}

func (t *Telemetry) setDefaultAttributes(span trace.Span) {
	span.SetAttributes(
		attribute.String("cantel.component_kind", t.componentKind),
		attribute.String("cantel.component_name", t.componentName),
	)
}

func (t *Telemetry) NewTrace(ctx context.Context, spanName string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	ctx, span := t.tracer.Start(ctx, spanName, opts...)
	t.setDefaultAttributes(span)
	return ctx, span
}

func (t *Telemetry) getMeterName(name string) string {
	return fmt.Sprintf("%s_%s_%s", t.componentKind, t.componentName, name)
}

func (t *Telemetry) NewCounter(name string, opts ...metric.Int64CounterOption) metric.Int64Counter {
	counterName := t.getMeterName(name)
	counter, err := t.meter.Int64Counter(counterName, opts...)
	if err != nil {
		t.LogError("failed to create counter", err, "name", name)
	}

	return counter
}

func (t *Telemetry) NewUpDownCounter(name string, opts ...metric.Int64UpDownCounterOption) metric.Int64UpDownCounter {
	counterName := t.getMeterName(name)
	counter, err := t.meter.Int64UpDownCounter(counterName, opts...)
	if err != nil {
		t.LogError("failed to create up/down counter", err, "name", name)
	}

	return counter
}

func (t *Telemetry) NewGauge(name string, callback func() int64) {
	gaugeName := t.getMeterName(name)

	_, err := t.meter.Int64ObservableGauge(gaugeName, metric.WithInt64Callback(
		func(_ context.Context, obs metric.Int64Observer) error {
			obs.Observe(callback())
			return nil
		},
	))
	if err != nil {
		t.LogError("failed to create gauge", err, "name", name)
	}
}

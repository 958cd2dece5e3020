// Package tracing wraps OpenTelemetry spans with the prometheus and log hooks
// the services use around their expensive operations.
package tracing

import (
	"context"
	"time"

	"github.com/horizenofficial/sctemplate/ulogger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "sctemplate"

type Options func(s *TraceOptions)

type TraceOptions struct {
	Histogram  prometheus.Histogram
	Counter    prometheus.Counter
	Logger     ulogger.Logger
	LogMessage string
	LogArgs    []interface{}
	Attributes []attribute.KeyValue
}

// WithHistogram sets the prometheus histogram observed, in seconds, when the span ends.
func WithHistogram(histogram prometheus.Histogram) Options {
	return func(s *TraceOptions) {
		s.Histogram = histogram
	}
}

// WithCounter sets the prometheus counter incremented when the span ends.
func WithCounter(counter prometheus.Counter) Options {
	return func(s *TraceOptions) {
		s.Counter = counter
	}
}

// WithDebugLogMessage logs the formatted message at DEBUG when the span starts and ends.
func WithDebugLogMessage(logger ulogger.Logger, format string, args ...interface{}) Options {
	return func(s *TraceOptions) {
		s.Logger = logger
		s.LogMessage = format
		s.LogArgs = args
	}
}

func WithAttributes(attrs ...attribute.KeyValue) Options {
	return func(s *TraceOptions) {
		s.Attributes = append(s.Attributes, attrs...)
	}
}

// Span is a started span. End must be called exactly once.
type Span struct {
	span    trace.Span
	start   time.Time
	options *TraceOptions
}

// Start begins a span named name on the global tracer provider.
func Start(ctx context.Context, name string, setOptions ...Options) (context.Context, *Span) {
	options := &TraceOptions{}
	for _, opt := range setOptions {
		opt(options)
	}

	ctx, span := otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(options.Attributes...))

	if options.Logger != nil && options.LogMessage != "" {
		options.Logger.Debugf(options.LogMessage, options.LogArgs...)
	}

	return ctx, &Span{span: span, start: time.Now(), options: options}
}

func (s *Span) SetAttributes(attrs ...attribute.KeyValue) {
	s.span.SetAttributes(attrs...)
}

// End finishes the span, recording err when it is not nil.
func (s *Span) End(err error) {
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	}

	s.span.End()

	if s.options.Histogram != nil {
		s.options.Histogram.Observe(time.Since(s.start).Seconds())
	}

	if s.options.Counter != nil {
		s.options.Counter.Inc()
	}

	if s.options.Logger != nil && s.options.LogMessage != "" {
		s.options.Logger.Debugf(s.options.LogMessage+" DONE in %s", append(s.options.LogArgs, time.Since(s.start))...)
	}
}

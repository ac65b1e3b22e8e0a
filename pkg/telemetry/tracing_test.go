package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

func TestSetupWithoutEndpoint(t *testing.T) {
	provider, err := Setup(context.Background(), "gatehouse", "test", Options{})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}
	defer provider.Shutdown(context.Background())

	tracer := provider.Tracer("test")
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
}

func TestSpanLoggerEmitsSpans(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	provider, err := Setup(context.Background(), "gatehouse", "test", Options{
		LogSpans: true,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("Setup() error: %v", err)
	}

	tracer := provider.Tracer("test")
	_, span := tracer.Start(context.Background(), "admission.check", trace.WithSpanKind(trace.SpanKindServer))
	span.End()

	if err := provider.Shutdown(context.Background()); err != nil {
		t.Fatalf("Shutdown() error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "admission.check") {
		t.Errorf("span name missing from log output: %s", out)
	}
	if !strings.Contains(out, "trace_id") {
		t.Errorf("trace id missing from log output: %s", out)
	}
}

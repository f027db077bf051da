package telemetry

import (
	"context"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/evans-manyala/enxero/internal/infra/config"
)

func TestDisabledTracerProviderDoesNotRecord(t *testing.T) {
	tp, err := NewTracerProvider(context.Background(), config.TelemetrySettings{}, "test", zaptest.NewLogger(t))
	if err != nil {
		t.Fatalf("NewTracerProvider returned error: %v", err)
	}
	defer func() { _ = tp.Shutdown(context.Background()) }()

	_, span := tp.Tracer().Start(context.Background(), "noop")
	defer span.End()

	if span.IsRecording() {
		t.Fatal("expected span to be dropped when tracing is disabled")
	}
}

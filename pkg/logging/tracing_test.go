package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestSetupTracing_InstallsProvider(t *testing.T) {
	previous := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(previous) })

	cleanup := SetupTracing(context.Background(), "iota-crm-test", "http://127.0.0.1:1/v1/traces")
	require.NotNil(t, cleanup)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	require.True(t, ok)

	_, span := otel.Tracer("test").Start(context.Background(), "noop")
	span.End()
	cleanup()
}

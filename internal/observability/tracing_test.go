package observability

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
)

func TestNewTracer_Disabled(t *testing.T) {
	t.Parallel()

	tracer, err := NewTracer(TracerConfig{ServiceName: "workers"})

	require.NoError(t, err)
	assert.Nil(t, tracer.provider)
	assert.NotNil(t, tracer.Provider())
	assert.NoError(t, tracer.Shutdown(context.Background()))
}

func TestNewResource(t *testing.T) {
	t.Parallel()

	res, err := newResource(TracerConfig{ServiceName: "workers", ServiceVersion: "1.2.3", Region: "ams"})
	require.NoError(t, err)

	attrs := map[string]string{}
	for _, kv := range res.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "workers", attrs[string(semconv.ServiceNameKey)])
	assert.Equal(t, "1.2.3", attrs[string(semconv.ServiceVersionKey)])
	assert.Equal(t, "ams", attrs[string(semconv.CloudRegionKey)])

	res, err = newResource(TracerConfig{ServiceName: "workers"})
	require.NoError(t, err)
	for _, kv := range res.Attributes() {
		assert.NotEqual(t, semconv.CloudRegionKey, kv.Key)
	}
}

func TestCreateSampler(t *testing.T) {
	t.Parallel()

	assert.Equal(t, sdktrace.AlwaysSample().Description(), createSampler(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), createSampler(0).Description())
	assert.Contains(t, createSampler(0.5).Description(), "TraceIDRatioBased")
}

func TestSetSpanStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		code   codes.Code
	}{
		{name: "ok", status: http.StatusOK, code: codes.Unset},
		{name: "client error", status: http.StatusTooManyRequests, code: codes.Unset},
		{name: "server error", status: http.StatusInternalServerError, code: codes.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporter := tracetest.NewInMemoryExporter()
			provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
			defer func() { _ = provider.Shutdown(context.Background()) }()

			_, span := provider.Tracer("test").Start(context.Background(), "op")
			SetSpanStatus(span, tt.status)
			span.End()

			spans := exporter.GetSpans()
			require.Len(t, spans, 1)
			assert.Equal(t, tt.code, spans[0].Status.Code)

			var status int64
			for _, kv := range spans[0].Attributes {
				if kv.Key == AttrStatusCode {
					status = kv.Value.AsInt64()
				}
			}
			assert.Equal(t, int64(tt.status), status)
		})
	}
}

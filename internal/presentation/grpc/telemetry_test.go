package grpc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTelemetryInterceptor(t *testing.T) {
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	interceptor, err := TelemetryInterceptor(tp, mp)
	require.NoError(t, err)

	info := &grpclib.UnaryServerInfo{FullMethod: FullMethod("RecordPayment")}
	ok := func(context.Context, any) (any, error) { return "done", nil }
	denied := func(context.Context, any) (any, error) { return nil, status.Error(codes.PermissionDenied, "no") }

	resp, err := interceptor(context.Background(), nil, info, ok)
	require.NoError(t, err)
	assert.Equal(t, "done", resp)
	_, err = interceptor(context.Background(), nil, info, denied)
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	ended := spans.Ended()
	require.Len(t, ended, 2)
	assert.Equal(t, "/microloan.v1.MicroLoanService/RecordPayment", ended[0].Name())

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)

	var counted int64
	for _, m := range rm.ScopeMetrics[0].Metrics {
		if m.Name != "microloan_transitions" {
			continue
		}
		sum, isSum := m.Data.(metricdata.Sum[int64])
		require.True(t, isSum)
		for _, dp := range sum.DataPoints {
			counted += dp.Value
		}
		assert.Len(t, sum.DataPoints, 2, "ok and rejected outcomes")
	}
	assert.Equal(t, int64(2), counted)
}

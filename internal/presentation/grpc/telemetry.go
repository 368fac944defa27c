package grpc

import (
	"context"
	"path"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const instrumentationName = "github.com/bibbank/microloan/internal/presentation/grpc"

// TelemetryInterceptor opens a server span per call and records
// microloan_transitions_total and microloan_request_duration_seconds,
// labelled by method and outcome. It must run outside ErrorInterceptor so
// that it observes final status codes.
func TelemetryInterceptor(tp trace.TracerProvider, mp metric.MeterProvider) (grpclib.UnaryServerInterceptor, error) {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	if mp == nil {
		mp = otel.GetMeterProvider()
	}
	tracer := tp.Tracer(instrumentationName)
	meter := mp.Meter(instrumentationName)

	transitions, err := meter.Int64Counter("microloan_transitions",
		metric.WithDescription("Ledger operations by method and outcome."))
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram("microloan_request_duration",
		metric.WithUnit("s"),
		metric.WithDescription("Latency of MicroLoan gRPC calls."))
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, req any, info *grpclib.UnaryServerInfo, handler grpclib.UnaryHandler) (any, error) {
		method := path.Base(info.FullMethod)
		ctx, span := tracer.Start(ctx, info.FullMethod,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("rpc.system", "grpc"),
				attribute.String("rpc.method", method),
			),
		)
		defer span.End()

		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)

		span.SetAttributes(attribute.String("rpc.grpc.status_code", code.String()))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(otelcodes.Error, code.String())
		}

		attrs := metric.WithAttributes(
			attribute.String("method", method),
			attribute.String("outcome", outcome(code)),
		)
		transitions.Add(ctx, 1, attrs)
		duration.Record(ctx, time.Since(start).Seconds(), attrs)
		return resp, err
	}, nil
}

func outcome(code codes.Code) string {
	switch code {
	case codes.OK:
		return "ok"
	case codes.Internal, codes.DataLoss, codes.Unavailable, codes.Unknown:
		return "error"
	default:
		return "rejected"
	}
}

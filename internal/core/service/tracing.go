package service

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rl1809/obesho/internal/core/domain"
)

const tracerName = "github.com/rl1809/obesho/internal/core/service"

func newTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

func stockAttributes(key domain.StockKey, quantity int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int64("stock.model_id", int64(key.ModelID)),
		attribute.Int64("stock.size_id", int64(key.SizeID)),
		attribute.Int("stock.quantity", quantity),
	}
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, domain.KindOf(err).String())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

package services

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/go-places-market/internal/domain"
)

// startSpan opens a span named op under the "services/<service>" tracer.
func startSpan(ctx context.Context, service, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return otel.Tracer("services/"+service).Start(ctx, op, trace.WithAttributes(attrs...))
}

// endSpan records err on span (internal failures only) and ends it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.SetAttributes(attribute.String("error.kind", KindOf(err).String()))
		if KindOf(err) == KindInternal {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	span.End()
}

func actorAttr(actor *domain.User) attribute.KeyValue {
	if actor == nil {
		return attribute.Int64("actor.id", 0)
	}
	return attribute.Int64("actor.id", int64(actor.ID))
}

func idAttr(key string, id uint) attribute.KeyValue {
	return attribute.Int64(key, int64(id))
}

func requireActor(actor *domain.User) error {
	if actor == nil || actor.ID == 0 {
		return ErrUnauthenticated
	}
	return nil
}

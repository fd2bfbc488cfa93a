package service

import (
	"context"
	"time"

	"blog-admin/internal/models"
	"blog-admin/internal/util"
)

// EventPublisher delivers security events. *client.KafkaProducer implements it.
type EventPublisher interface {
	Publish(ctx context.Context, event models.SecurityEvent) error
}

// NoopPublisher drops every event.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, models.SecurityEvent) error { return nil }

type requestMetaKey struct{}

// RequestMeta is the caller information attached to security events.
type RequestMeta struct {
	RemoteIP  string
	RequestID string
}

func WithRequestMeta(ctx context.Context, meta RequestMeta) context.Context {
	return context.WithValue(ctx, requestMetaKey{}, meta)
}

func requestMetaFrom(ctx context.Context) RequestMeta {
	meta, _ := ctx.Value(requestMetaKey{}).(RequestMeta)
	return meta
}

// publish is best-effort: errors are logged and swallowed.
func publish(ctx context.Context, events EventPublisher, event models.SecurityEvent) {
	if events == nil {
		return
	}
	meta := requestMetaFrom(ctx)
	event.RemoteIP = meta.RemoteIP
	event.RequestID = meta.RequestID
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	if err := events.Publish(context.WithoutCancel(ctx), event); err != nil {
		util.Warn("Failed to publish security event",
			util.String("event_type", string(event.Type)),
			util.ErrorField(err))
	}
}

// Package pubsub implements the PubSubService contract: topic
// create/publish/subscribe/delete plus the bucket-event marker registry
// MonitorBasedPubSub and FileService backends use to advertise which
// topics are currently wired to synthesized bucket events.
package pubsub

import (
	"context"
	"time"

	"github.com/bkio/crosscloudkit/primitive"
)

// Message is what a subscriber receives. Payload is opaque to the bus;
// callers serialize/deserialize their own wire format (MonitorBasedPubSub
// uses JSON).
type Message struct {
	Topic     string
	Payload   []byte
	CreatedAt time.Time
}

// Handler processes one delivered message. Handlers should be idempotent:
// delivery is at-least-once.
type Handler func(ctx context.Context, msg Message) error

// ErrorHandler is invoked when a Handler returns an error, or when
// delivery itself fails. May be nil.
type ErrorHandler func(err error)

// Subscription is the opaque handle returned by Subscribe. Cancel is
// idempotent; a Service's Close implicitly cancels every outstanding
// subscription.
type Subscription interface {
	Topic() string
	ID() string
	Cancel() error
}

// Stats exposes delivery counters for observability: published, delivered,
// and dropped message totals.
type Stats struct {
	Published int64
	Delivered int64
	Dropped   int64
}

// Service is the PubSubService contract.
type Service interface {
	EnsureTopicExists(ctx context.Context, topic string) primitive.OperationResult[bool]
	Publish(ctx context.Context, topic string, payload []byte) primitive.OperationResult[bool]
	Subscribe(ctx context.Context, topic string, onMessage Handler, onError ErrorHandler) primitive.OperationResult[Subscription]
	DeleteTopic(ctx context.Context, topic string) primitive.OperationResult[bool]

	MarkUsedOnBucketEvent(ctx context.Context, topic string) primitive.OperationResult[bool]
	UnmarkUsedOnBucketEvent(ctx context.Context, topic string) primitive.OperationResult[bool]
	GetTopicsUsedOnBucketEventAsync(ctx context.Context) primitive.OperationResult[[]string]

	Stats() Stats
	Close(ctx context.Context) error
}

package fileservice

import (
	"context"

	"github.com/bkio/crosscloudkit/primitive"
	"github.com/bkio/crosscloudkit/pubsub"
)

// EventNotificationConfig is the registration tuple for synthesized bucket
// events. EventTypes is a sorted set; equality is by full serialized
// content and duplicates are suppressed by the registrar.
type EventNotificationConfig struct {
	TopicName  string
	BucketName string
	PathPrefix string
	EventTypes []pubsub.EventType
}

// NotificationRegistrar is implemented by MonitorBasedPubSub. A
// FileService backend depends on this interface, not on the monitor
// package directly, to avoid a service/chassis import cycle — the monitor
// package in turn depends on fileservice.Service to drive its scan loop.
type NotificationRegistrar interface {
	CreateNotification(ctx context.Context, cfg EventNotificationConfig) primitive.OperationResult[bool]
	DeleteNotifications(ctx context.Context, bucket string) primitive.OperationResult[bool]
	CleanupBucket(ctx context.Context, bucket string) primitive.OperationResult[bool]
}

package monitor

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bkio/crosscloudkit/fileservice"
	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/primitive"
)

const notificationEventsList = "notification_events"

var errNotAStringRecord = errors.New("monitor: list element is not a string-encoded record")

func snapshotListName(bucket string) string { return "file_states_" + bucket }

func (m *MonitorBasedPubSub) configScope() memory.Scope {
	return memory.StringScope(memory.SystemScopeFileServiceNotifications)
}

func encodeRecord(r configRecord) (primitive.Value, error) {
	raw, err := json.Marshal(r)
	if err != nil {
		return primitive.Value{}, err
	}
	return primitive.NewString(string(raw)), nil
}

func decodeRecord(v primitive.Value) (configRecord, error) {
	var r configRecord
	s, ok := v.AsString()
	if !ok {
		return r, errNotAStringRecord
	}
	err := json.Unmarshal([]byte(s), &r)
	return r, err
}

// CreateNotification registers an event subscription. Insertion is
// idempotent on full serialized content; a successful insert marks the
// topic as bucket-event-wired.
func (m *MonitorBasedPubSub) CreateNotification(ctx context.Context, cfg fileservice.EventNotificationConfig) primitive.OperationResult[bool] {
	record := toRecord(cfg)
	if !record.valid() {
		return primitive.Fail[bool](primitive.StatusBadRequest, "notification config requires topicName, bucketName and at least one eventType")
	}

	encoded, err := encodeRecord(record)
	if err != nil {
		return primitive.Fail[bool](primitive.StatusInternalServerError, "encode config: %v", err)
	}

	res := m.mem.PushToListTailIfValuesNotExists(ctx, m.configScope(), notificationEventsList, []primitive.Value{encoded}, false)
	if !res.IsSuccessful() {
		return primitive.Fail[bool](res.StatusCode(), "%v", res.Err())
	}

	if mark := m.pubsub.MarkUsedOnBucketEvent(ctx, cfg.TopicName); !mark.IsSuccessful() {
		return primitive.Fail[bool](mark.StatusCode(), "%v", mark.Err())
	}
	return primitive.Ok(true)
}

// DeleteNotifications removes every config registered for bucket and
// unmarks each affected topic.
func (m *MonitorBasedPubSub) DeleteNotifications(ctx context.Context, bucket string) primitive.OperationResult[bool] {
	all := m.mem.GetAllElementsOfList(ctx, m.configScope(), notificationEventsList)
	if !all.IsSuccessful() {
		return primitive.Fail[bool](all.StatusCode(), "%v", all.Err())
	}

	var toRemove []primitive.Value
	var topics []string
	for _, v := range all.Value() {
		record, err := decodeRecord(v)
		if err != nil || record.BucketName != bucket {
			continue
		}
		toRemove = append(toRemove, v)
		topics = append(topics, record.TopicName)
	}
	if len(toRemove) == 0 {
		return primitive.Ok(true)
	}

	if res := m.mem.RemoveElementsFromList(ctx, m.configScope(), notificationEventsList, toRemove, false); !res.IsSuccessful() {
		return primitive.Fail[bool](res.StatusCode(), "%v", res.Err())
	}
	for _, topic := range topics {
		if res := m.pubsub.UnmarkUsedOnBucketEvent(ctx, topic); !res.IsSuccessful() {
			m.logger.Warn("unmark topic on bucket event failed", "topic", topic, "error", res.ErrorMessage())
		}
	}
	return primitive.Ok(true)
}

// CleanupBucket acquires the scan mutex and empties the bucket's baseline
// snapshot. Configs are untouched; callers issue DeleteNotifications
// separately.
func (m *MonitorBasedPubSub) CleanupBucket(ctx context.Context, bucket string) primitive.OperationResult[bool] {
	guard := m.newScanMutex()
	if err := guard.Acquire(ctx); err != nil {
		return primitive.Fail[bool](primitive.StatusServiceUnavailable, "acquire scan mutex: %v", err)
	}
	defer func() { _ = guard.Release(ctx) }()

	res := m.mem.EmptyList(ctx, m.configScope(), snapshotListName(bucket), false)
	if !res.IsSuccessful() {
		return primitive.Fail[bool](res.StatusCode(), "%v", res.Err())
	}
	return primitive.Ok(true)
}

var _ fileservice.NotificationRegistrar = (*MonitorBasedPubSub)(nil)

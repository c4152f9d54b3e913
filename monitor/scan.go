package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/multierr"

	"github.com/bkio/crosscloudkit/fileservice"
	"github.com/bkio/crosscloudkit/primitive"
	"github.com/bkio/crosscloudkit/pubsub"
)

func encodeFileState(e fileStateEntry) (primitive.Value, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return primitive.Value{}, err
	}
	return primitive.NewString(string(raw)), nil
}

func decodeFileState(s string) (fileStateEntry, error) {
	var e fileStateEntry
	err := json.Unmarshal([]byte(s), &e)
	return e, err
}

func encodeFileStates(states []fileservice.FileState) ([]primitive.Value, error) {
	if len(states) == 0 {
		return nil, nil
	}
	values := make([]primitive.Value, 0, len(states))
	for _, s := range states {
		encoded, err := encodeFileState(fromFileState(s))
		if err != nil {
			return nil, fmt.Errorf("encode file state %s: %w", s.FileKey, err)
		}
		values = append(values, encoded)
	}
	return values, nil
}

// scanPass runs one iteration of the worker loop: list, diff, publish,
// persist. It is non-fatal to skip a cycle when the mutex is contended;
// any other failure is returned so the caller's retry policy applies.
func (m *MonitorBasedPubSub) scanPass(ctx context.Context) error {
	guard := m.newScanMutex()
	acquired, err := guard.TryAcquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire scan mutex: %w", err)
	}
	if !acquired {
		return nil
	}
	defer func() { _ = guard.Release(ctx) }()

	all := m.mem.GetAllElementsOfList(ctx, m.configScope(), notificationEventsList)
	if !all.IsSuccessful() {
		return fmt.Errorf("load notification configs: %w", all.Err())
	}

	byBucket := make(map[string][]configRecord)
	var malformed []primitive.Value
	for _, v := range all.Value() {
		record, decErr := decodeRecord(v)
		if decErr != nil || !record.valid() {
			malformed = append(malformed, v)
			continue
		}
		byBucket[record.BucketName] = append(byBucket[record.BucketName], record)
	}

	for bucket, configs := range byBucket {
		if err := m.scanBucket(ctx, bucket, configs); err != nil {
			return fmt.Errorf("scan bucket %s: %w", bucket, err)
		}
	}

	// Malformed-config removal is best-effort cleanup, not part of the
	// pass's success/failure outcome; each malformed entry is removed by
	// its exact stored value, and errors are aggregated so one failed
	// removal doesn't stop the others from being swept.
	var cleanupErr error
	for _, v := range malformed {
		if res := m.mem.RemoveElementsFromList(ctx, m.configScope(), notificationEventsList, []primitive.Value{v}, false); !res.IsSuccessful() {
			cleanupErr = multierr.Append(cleanupErr, fmt.Errorf("remove malformed config %q: %w", v.String(), res.Err()))
		}
	}
	if cleanupErr != nil {
		m.logger.Warn("malformed notification config cleanup had errors", "error", cleanupErr)
	}
	return nil
}

func (m *MonitorBasedPubSub) scanBucket(ctx context.Context, bucket string, configs []configRecord) error {
	currentStates, err := m.listCurrentStates(ctx, bucket)
	if err != nil {
		return err
	}

	previousStates, err := m.loadSnapshot(ctx, bucket)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if err := m.emitForConfig(ctx, bucket, cfg, previousStates, currentStates); err != nil {
			return err
		}
	}

	return m.updateSnapshot(ctx, bucket, previousStates, currentStates)
}

// listCurrentStates enumerates every object in bucket, following
// NextContinuationToken until exhausted. The listing
// already carries (size, lastModified), so no separate metadata fetch is
// needed for this backend's List implementation.
func (m *MonitorBasedPubSub) listCurrentStates(ctx context.Context, bucket string) (map[string]fileservice.FileState, error) {
	states := make(map[string]fileservice.FileState)
	token := ""
	for {
		page := m.files.List(ctx, bucket, "", 1000, token)
		if !page.IsSuccessful() {
			return nil, fmt.Errorf("list files: %w", page.Err())
		}
		for _, f := range page.Value().Files {
			states[f.Key] = fileservice.FileState{
				FileKey:      f.Key,
				LastModified: f.LastModified,
				Size:         f.Size,
				Exists:       true,
			}
		}
		token = page.Value().NextContinuationToken
		if token == "" {
			break
		}
	}
	return states, nil
}

func (m *MonitorBasedPubSub) loadSnapshot(ctx context.Context, bucket string) (map[string]fileservice.FileState, error) {
	res := m.mem.GetAllElementsOfList(ctx, m.configScope(), snapshotListName(bucket))
	if !res.IsSuccessful() {
		return nil, fmt.Errorf("load snapshot: %w", res.Err())
	}
	states := make(map[string]fileservice.FileState)
	for _, v := range res.Value() {
		s, ok := v.AsString()
		if !ok {
			continue
		}
		entry, err := decodeFileState(s)
		if err != nil {
			continue
		}
		states[entry.FileKey] = entry.toFileState()
	}
	return states, nil
}

// emitForConfig publishes Uploaded/Deleted notifications for one config's
// subscribed event types, scoped to its pathPrefix.
func (m *MonitorBasedPubSub) emitForConfig(ctx context.Context, bucket string, cfg configRecord, previous, current map[string]fileservice.FileState) error {
	if cfg.hasEventType(pubsub.EventUploaded) {
		for key, state := range current {
			if !strings.HasPrefix(key, cfg.PathPrefix) {
				continue
			}
			prior, existed := previous[key]
			if !existed || !fileservice.AreFileStatesEqual(prior, state, false) {
				if err := m.publish(ctx, cfg.TopicName, bucket, key, pubsub.EventUploaded, state); err != nil {
					return err
				}
			}
		}
	}

	if cfg.hasEventType(pubsub.EventDeleted) {
		for key, state := range previous {
			if !strings.HasPrefix(key, cfg.PathPrefix) || !state.Exists {
				continue
			}
			if _, stillPresent := current[key]; !stillPresent {
				if err := m.publish(ctx, cfg.TopicName, bucket, key, pubsub.EventDeleted, state); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (m *MonitorBasedPubSub) publish(ctx context.Context, topic, bucket, key string, eventType pubsub.EventType, state fileservice.FileState) error {
	size := state.Size
	lastModified := state.LastModified.UTC().Format(time.RFC3339)
	notification := pubsub.Notification{
		Bucket:       bucket,
		Key:          key,
		EventType:    eventType,
		Timestamp:    time.Now().UTC(),
		Size:         &size,
		LastModified: &lastModified,
	}
	payload, err := pubsub.MarshalNotification(notification)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	res := m.pubsub.Publish(ctx, topic, payload)
	if !res.IsSuccessful() {
		return fmt.Errorf("publish to %s: %w", topic, res.Err())
	}
	return nil
}

// updateSnapshot reconciles the persisted baseline with currentStates:
// stale entries are dropped, added/changed entries are removed-then-
// reappended since the list is keyed by full serialized content rather
// than by fileKey.
func (m *MonitorBasedPubSub) updateSnapshot(ctx context.Context, bucket string, previous, current map[string]fileservice.FileState) error {
	listName := snapshotListName(bucket)
	scope := m.configScope()

	var toRemove, toAdd []fileservice.FileState
	for key, state := range current {
		prior, existed := previous[key]
		if !existed || !fileservice.AreFileStatesEqual(prior, state, true) {
			if existed {
				toRemove = append(toRemove, prior)
			}
			toAdd = append(toAdd, state)
		}
	}
	for key, state := range previous {
		if _, stillPresent := current[key]; !stillPresent {
			toRemove = append(toRemove, state)
		}
	}

	if removeValues, err := encodeFileStates(toRemove); err != nil {
		return err
	} else if len(removeValues) > 0 {
		if res := m.mem.RemoveElementsFromList(ctx, scope, listName, removeValues, false); !res.IsSuccessful() {
			return fmt.Errorf("remove stale snapshot entries: %w", res.Err())
		}
	}
	if addValues, err := encodeFileStates(toAdd); err != nil {
		return err
	} else if len(addValues) > 0 {
		if res := m.mem.PushToListTail(ctx, scope, listName, addValues, false, false); !res.IsSuccessful() {
			return fmt.Errorf("append snapshot entries: %w", res.Err())
		}
	}
	return nil
}

package pubsub

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishSubscribeDelivery(t *testing.T) {
	svc := New(nil)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	ctx := context.Background()

	var mu sync.Mutex
	var received []string

	sub := svc.Subscribe(ctx, "topic-a", func(_ context.Context, msg Message) error {
		mu.Lock()
		received = append(received, string(msg.Payload))
		mu.Unlock()
		return nil
	}, nil)
	require.True(t, sub.IsSuccessful())

	ok := svc.Publish(ctx, "topic-a", []byte("hello"))
	require.True(t, ok.IsSuccessful())

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, []string{"hello"}, received)
	mu.Unlock()
}

func TestPublishRequiresNonEmptyTopicAndPayload(t *testing.T) {
	svc := New(nil)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	ctx := context.Background()

	r := svc.Publish(ctx, "", []byte("x"))
	assert.False(t, r.IsSuccessful())
	assert.Equal(t, 400, r.StatusCode())

	r = svc.Publish(ctx, "t", nil)
	assert.False(t, r.IsSuccessful())
	assert.Equal(t, 400, r.StatusCode())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	svc := New(nil)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	ctx := context.Background()

	var count int
	var mu sync.Mutex
	sub := svc.Subscribe(ctx, "t", func(_ context.Context, _ Message) error {
		mu.Lock()
		count++
		mu.Unlock()
		return nil
	}, nil)
	require.True(t, sub.IsSuccessful())

	require.NoError(t, sub.Value().Cancel())
	require.NoError(t, sub.Value().Cancel()) // idempotent

	svc.Publish(ctx, "t", []byte("x"))
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	assert.Equal(t, 0, count)
	mu.Unlock()
}

func TestBucketEventMarkers(t *testing.T) {
	svc := New(nil)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	ctx := context.Background()

	svc.MarkUsedOnBucketEvent(ctx, "notif-topic")
	topics := svc.GetTopicsUsedOnBucketEventAsync(ctx)
	assert.Contains(t, topics.Value(), "notif-topic")

	svc.UnmarkUsedOnBucketEvent(ctx, "notif-topic")
	topics = svc.GetTopicsUsedOnBucketEventAsync(ctx)
	assert.NotContains(t, topics.Value(), "notif-topic")
}

func TestDetectNativeEventType(t *testing.T) {
	evt, ok := DetectNativeEventType(`{"eventName":"ObjectCreated:Put"}`)
	assert.True(t, ok)
	assert.Equal(t, EventUploaded, evt)

	evt, ok = DetectNativeEventType(`{"eventName":"OBJECT_DELETE"}`)
	assert.True(t, ok)
	assert.Equal(t, EventDeleted, evt)

	_, ok = DetectNativeEventType(`{"eventName":"SomethingElse"}`)
	assert.False(t, ok)
}

func TestHealthRoundTrip(t *testing.T) {
	svc := New(nil)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })

	report := svc.Health(context.Background())
	assert.Equal(t, "healthy", report.Status.String())
}

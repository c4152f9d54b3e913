package monitor_test

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkio/crosscloudkit/fileservice"
	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/memory"
	"github.com/bkio/crosscloudkit/monitor"
	"github.com/bkio/crosscloudkit/pubsub"
)

type harness struct {
	mem   *memory.InMemoryService
	ps    *pubsub.InMemoryService
	files *fileservice.LocalService
	mon   *monitor.MonitorBasedPubSub
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := &memory.Config{}
	cfg.SetDefaults()
	mem := memory.New(cfg, logging.Nop())
	t.Cleanup(func() { _ = mem.Close(context.Background()) })

	ps := pubsub.New(logging.Nop())
	t.Cleanup(func() { _ = ps.Close(context.Background()) })

	dir, err := os.MkdirTemp("", "ccktool-monitor-*")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	files := fileservice.New(dir, logging.Nop())

	mon := monitor.New(mem, ps, files, logging.Nop(), nil, nil)
	files.SetNotificationRegistrar(mon)

	return &harness{mem: mem, ps: ps, files: files, mon: mon}
}

func (h *harness) put(t *testing.T, bucket, key, body string) {
	t.Helper()
	res := h.files.Upload(context.Background(), bucket, key, bytes.NewReader([]byte(body)), fileservice.Metadata{})
	require.True(t, res.IsSuccessful())
}

func TestCreateNotificationIsIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cfg := fileservice.EventNotificationConfig{
		TopicName:  "topic-a",
		BucketName: "bucket",
		EventTypes: []pubsub.EventType{pubsub.EventUploaded},
	}
	require.True(t, h.mon.CreateNotification(ctx, cfg).IsSuccessful())
	require.True(t, h.mon.CreateNotification(ctx, cfg).IsSuccessful())

	topics := h.ps.GetTopicsUsedOnBucketEventAsync(ctx)
	require.True(t, topics.IsSuccessful())
	assert.Contains(t, topics.Value(), "topic-a")
}

func TestCreateNotificationRejectsIncompleteConfig(t *testing.T) {
	h := newHarness(t)
	res := h.mon.CreateNotification(context.Background(), fileservice.EventNotificationConfig{BucketName: "bucket"})
	assert.False(t, res.IsSuccessful())
	assert.Equal(t, 400, res.StatusCode())
}

func TestScanPassSynthesizesUploadEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cfg := fileservice.EventNotificationConfig{
		TopicName:  "uploads",
		BucketName: "bucket",
		EventTypes: []pubsub.EventType{pubsub.EventUploaded},
	}
	require.True(t, h.mon.CreateNotification(ctx, cfg).IsSuccessful())

	received := make(chan pubsub.Message, 4)
	sub := h.ps.Subscribe(ctx, "uploads", func(_ context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	}, nil)
	require.True(t, sub.IsSuccessful())
	defer sub.Value().Cancel() //nolint:errcheck

	h.put(t, "bucket", "a/one.txt", "hello")

	h.mon.Start(ctx)
	defer h.mon.Stop()

	select {
	case msg := <-received:
		assert.Equal(t, "uploads", msg.Topic)
		assert.Contains(t, string(msg.Payload), `"eventType":"Uploaded"`)
		assert.Contains(t, string(msg.Payload), `"key":"a/one.txt"`)
	case <-time.After(5 * time.Second):
		t.Fatal("expected an Uploaded notification within 5s")
	}
}

func TestScanPassSynthesizesDeleteEvent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cfg := fileservice.EventNotificationConfig{
		TopicName:  "deletes",
		BucketName: "bucket",
		EventTypes: []pubsub.EventType{pubsub.EventDeleted},
	}
	require.True(t, h.mon.CreateNotification(ctx, cfg).IsSuccessful())

	h.put(t, "bucket", "will-delete.txt", "x")

	// Prime the baseline snapshot with a scan pass that sees the file as
	// present before it is removed, mirroring a real worker's first pass.
	// The worker sleeps one full 3s interval before that first pass, so
	// the wait below has to outlast it.
	seed := fileservice.EventNotificationConfig{
		TopicName:  "seed-only",
		BucketName: "bucket",
		EventTypes: []pubsub.EventType{pubsub.EventUploaded},
	}
	require.True(t, h.mon.CreateNotification(ctx, seed).IsSuccessful())

	h.mon.Start(ctx)
	time.Sleep(3500 * time.Millisecond)

	received := make(chan pubsub.Message, 4)
	sub := h.ps.Subscribe(ctx, "deletes", func(_ context.Context, msg pubsub.Message) error {
		received <- msg
		return nil
	}, nil)
	require.True(t, sub.IsSuccessful())
	defer sub.Value().Cancel() //nolint:errcheck

	require.True(t, h.files.Delete(ctx, "bucket", "will-delete.txt").IsSuccessful())
	defer h.mon.Stop()

	select {
	case msg := <-received:
		assert.Contains(t, string(msg.Payload), `"eventType":"Deleted"`)
		assert.Contains(t, string(msg.Payload), `"key":"will-delete.txt"`)
	case <-time.After(8 * time.Second):
		t.Fatal("expected a Deleted notification within 8s")
	}
}

func TestDeleteNotificationsRemovesConfigAndUnmarksTopic(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cfg := fileservice.EventNotificationConfig{
		TopicName:  "topic-b",
		BucketName: "bucket",
		EventTypes: []pubsub.EventType{pubsub.EventUploaded},
	}
	require.True(t, h.mon.CreateNotification(ctx, cfg).IsSuccessful())
	require.True(t, h.mon.DeleteNotifications(ctx, "bucket").IsSuccessful())

	topics := h.ps.GetTopicsUsedOnBucketEventAsync(ctx)
	require.True(t, topics.IsSuccessful())
	assert.NotContains(t, topics.Value(), "topic-b")
}

func TestCleanupBucketEmptiesSnapshotUnderMutex(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	cfg := fileservice.EventNotificationConfig{
		TopicName:  "topic-c",
		BucketName: "bucket",
		EventTypes: []pubsub.EventType{pubsub.EventUploaded},
	}
	require.True(t, h.mon.CreateNotification(ctx, cfg).IsSuccessful())
	h.put(t, "bucket", "k", "v")

	require.True(t, h.mon.CleanupBucket(ctx, "bucket").IsSuccessful())
}

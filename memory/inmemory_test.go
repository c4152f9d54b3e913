package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bkio/crosscloudkit/primitive"
)

func newTestService(t *testing.T) *InMemoryService {
	t.Helper()
	svc := New(&Config{CleanupInterval: 20 * time.Millisecond}, nil)
	t.Cleanup(func() { _ = svc.Close(context.Background()) })
	return svc
}

func TestKeyRoundTrip(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("t1")

	ok := svc.SetKeyValues(ctx, scope, map[string]primitive.Value{"a": primitive.NewInteger(1)}, false)
	require.True(t, ok.Value())

	got := svc.GetKeyValue(ctx, scope, "a")
	require.NotNil(t, got.Value())
	assert.True(t, got.Value().Equal(primitive.NewInteger(1)))

	svc.DeleteKey(ctx, scope, "a", false)
	got = svc.GetKeyValue(ctx, scope, "a")
	assert.Nil(t, got.Value())
}

func TestSetKeyValueConditionally(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("t2")

	first := svc.SetKeyValueConditionally(ctx, scope, "k", primitive.NewString("v1"), false)
	assert.True(t, first.Value())

	second := svc.SetKeyValueConditionally(ctx, scope, "k", primitive.NewString("v2"), false)
	assert.False(t, second.Value())

	got := svc.GetKeyValue(ctx, scope, "k")
	v, _ := got.Value().AsString()
	assert.Equal(t, "v1", v)
}

func TestKeyExpireTimeWindow(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("t3")

	svc.SetKeyValues(ctx, scope, map[string]primitive.Value{"a": primitive.NewInteger(1)}, false)
	svc.SetKeyExpireTime(ctx, scope, 200*time.Millisecond)

	ttl := svc.GetKeyExpireTime(ctx, scope)
	require.NotNil(t, ttl.Value())
	assert.True(t, *ttl.Value() > 0 && *ttl.Value() <= 200*time.Millisecond)

	time.Sleep(300 * time.Millisecond)
	ttl = svc.GetKeyExpireTime(ctx, scope)
	assert.Nil(t, ttl.Value())
	got := svc.GetKeyValue(ctx, scope, "a")
	assert.Nil(t, got.Value())
}

func TestPushToListTailIfValuesNotExistsReturnsOnlyAbsentSubset(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("t4")

	svc.PushToListTail(ctx, scope, "l", []primitive.Value{primitive.NewString("a"), primitive.NewString("b")}, false, false)

	pushed := svc.PushToListTailIfValuesNotExists(ctx, scope, "l",
		[]primitive.Value{primitive.NewString("a"), primitive.NewString("c")}, false)
	require.Len(t, pushed.Value(), 1)
	v, _ := pushed.Value()[0].AsString()
	assert.Equal(t, "c", v)

	all := svc.GetAllElementsOfList(ctx, scope, "l")
	assert.Len(t, all.Value(), 3)
}

func TestAddThenRemoveElementsRestoresArray(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("t5")

	elems := []primitive.Value{primitive.NewString("e1"), primitive.NewString("e2")}
	svc.PushToListTail(ctx, scope, "arr", elems, false, false)
	removed := svc.RemoveElementsFromList(ctx, scope, "arr", elems, false)
	assert.Len(t, removed.Value(), 2)

	size := svc.GetListSize(ctx, scope, "arr")
	assert.Equal(t, int64(0), size.Value())
}

func TestPopFirstAndLast(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("t6")

	svc.PushToListTail(ctx, scope, "l", []primitive.Value{
		primitive.NewInteger(1), primitive.NewInteger(2), primitive.NewInteger(3),
	}, false, false)

	first := svc.PopFirstElementOfList(ctx, scope, "l", false)
	last := svc.PopLastElementOfList(ctx, scope, "l", false)
	f, _ := first.Value().AsInteger()
	l, _ := last.Value().AsInteger()
	assert.Equal(t, int64(1), f)
	assert.Equal(t, int64(3), l)

	remaining := svc.GetAllElementsOfList(ctx, scope, "l")
	require.Len(t, remaining.Value(), 1)
}

func TestMutexMutualExclusionAndTTLSelfHeal(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("mutex-scope")

	a := svc.MemoryMutexLock(ctx, scope, "n", 150*time.Millisecond)
	require.NotNil(t, a.Value())

	b := svc.MemoryMutexLock(ctx, scope, "n", 150*time.Millisecond)
	assert.Nil(t, b.Value(), "second lock should be rejected while first is held")

	released := svc.MemoryMutexUnlock(ctx, scope, "n", *a.Value())
	assert.True(t, released.Value())

	c := svc.MemoryMutexLock(ctx, scope, "n", 150*time.Millisecond)
	require.NotNil(t, c.Value())

	// Wrong token never releases.
	wrong := svc.MemoryMutexUnlock(ctx, scope, "n", "not-the-token")
	assert.False(t, wrong.Value())

	// Once the TTL elapses without an unlock, the lock is free again.
	time.Sleep(200 * time.Millisecond)
	d := svc.MemoryMutexLock(ctx, scope, "n", 150*time.Millisecond)
	assert.NotNil(t, d.Value(), "lock should self-heal after its TTL elapses")
}

func TestScopedMutexAcquireRelease(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("scoped-mutex")

	a := NewScopedMutex(svc, scope, "lock", 2*time.Second, nil)
	require.NoError(t, a.Acquire(ctx))

	okB, err := NewScopedMutex(svc, scope, "lock", 2*time.Second, nil).TryAcquire(ctx)
	require.NoError(t, err)
	assert.False(t, okB)

	require.NoError(t, a.Release(ctx))

	okC, err := NewScopedMutex(svc, scope, "lock", 2*time.Second, nil).TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, okC)
}

func TestChangePublisherInvokedOnlyWhenRequested(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	scope := StringScope("pub-scope")

	var calls int
	svc.SetChangePublisher(func(context.Context, string, string, any) { calls++ })

	svc.SetKeyValues(ctx, scope, map[string]primitive.Value{"a": primitive.NewInteger(1)}, false)
	assert.Equal(t, 0, calls)

	svc.SetKeyValues(ctx, scope, map[string]primitive.Value{"a": primitive.NewInteger(2)}, true)
	assert.Equal(t, 1, calls)
}

func TestHealthRoundTrip(t *testing.T) {
	svc := newTestService(t)

	report := svc.Health(context.Background())
	assert.Equal(t, "healthy", report.Status.String())
}

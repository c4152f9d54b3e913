package memory

import (
	"context"
	"time"

	"github.com/bkio/crosscloudkit/primitive"
)

// ChangePublisher is the callback a Service uses to emit a JSON
// notification of shape {"operation":"...","changes":...} to the scope's
// compiled name when a write is made with publishChange=true. Wiring a
// PubSubService instance behind this hook is the caller's responsibility;
// an unattached publisher makes publishChange a no-op rather than an
// error; see DESIGN.md for the rationale.
type ChangePublisher func(ctx context.Context, scopeName string, operation string, changes any)

// Service is the MemoryService contract: a scoped key/value + ordered
// list store with TTL, distributed-mutex primitives, and an optional
// change-notify hook. All operations return OperationResult so that no
// domain failure crosses the boundary as a Go error.
type Service interface {
	SetChangePublisher(pub ChangePublisher)

	SetKeyExpireTime(ctx context.Context, scope Scope, ttl time.Duration) primitive.OperationResult[bool]
	GetKeyExpireTime(ctx context.Context, scope Scope) primitive.OperationResult[*time.Duration]

	SetKeyValues(ctx context.Context, scope Scope, pairs map[string]primitive.Value, publishChange bool) primitive.OperationResult[bool]
	SetKeyValueConditionally(ctx context.Context, scope Scope, key string, value primitive.Value, publishChange bool) primitive.OperationResult[bool]
	GetKeyValue(ctx context.Context, scope Scope, key string) primitive.OperationResult[*primitive.Value]
	GetKeyValues(ctx context.Context, scope Scope, keys []string) primitive.OperationResult[map[string]primitive.Value]
	GetAllKeyValues(ctx context.Context, scope Scope) primitive.OperationResult[map[string]primitive.Value]
	DeleteKey(ctx context.Context, scope Scope, key string, publishChange bool) primitive.OperationResult[bool]
	DeleteAllKeys(ctx context.Context, scope Scope, publishChange bool) primitive.OperationResult[bool]
	GetKeys(ctx context.Context, scope Scope) primitive.OperationResult[[]string]
	GetKeysCount(ctx context.Context, scope Scope) primitive.OperationResult[int64]

	IncrementKeyValues(ctx context.Context, scope Scope, deltas map[string]int64, publishChange bool) primitive.OperationResult[map[string]int64]
	IncrementKeyByValueAndGet(ctx context.Context, scope Scope, key string, delta int64, publishChange bool) primitive.OperationResult[int64]

	PushToListTail(ctx context.Context, scope Scope, list string, values []primitive.Value, onlyIfListExists, publishChange bool) primitive.OperationResult[bool]
	PushToListHead(ctx context.Context, scope Scope, list string, values []primitive.Value, onlyIfListExists, publishChange bool) primitive.OperationResult[bool]
	PushToListTailIfValuesNotExists(ctx context.Context, scope Scope, list string, values []primitive.Value, publishChange bool) primitive.OperationResult[[]primitive.Value]
	PopLastElementOfList(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[*primitive.Value]
	PopFirstElementOfList(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[*primitive.Value]
	RemoveElementsFromList(ctx context.Context, scope Scope, list string, values []primitive.Value, publishChange bool) primitive.OperationResult[[]primitive.Value]
	GetAllElementsOfList(ctx context.Context, scope Scope, list string) primitive.OperationResult[[]primitive.Value]
	GetListSize(ctx context.Context, scope Scope, list string) primitive.OperationResult[int64]
	ListContains(ctx context.Context, scope Scope, list string, value primitive.Value) primitive.OperationResult[bool]
	EmptyList(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[bool]
	EmptyListAndSublists(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[bool]

	MemoryMutexLock(ctx context.Context, scope Scope, name string, ttl time.Duration) primitive.OperationResult[*string]
	MemoryMutexUnlock(ctx context.Context, scope Scope, name, lockID string) primitive.OperationResult[bool]

	// Close releases any background goroutines (e.g. the TTL janitor).
	Close(ctx context.Context) error
}

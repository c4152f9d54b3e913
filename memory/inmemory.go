package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bkio/crosscloudkit/internal/logging"
	"github.com/bkio/crosscloudkit/primitive"
)

// mutexKeyPrefix namespaces lock tokens inside a scope's value map so that
// GetKeys/GetAllKeyValues never leak internal mutex bookkeeping to callers.
// The engine is a single mutex-guarded map plus a background janitor
// goroutine, with each scope holding both keys and ordered lists.
const mutexKeyPrefix = "\x00mutex:"

type scopeData struct {
	values    map[string]primitive.Value
	lists     map[string][]primitive.Value
	expiresAt time.Time // zero == never expires
}

func newScopeData() *scopeData {
	return &scopeData{
		values: make(map[string]primitive.Value),
		lists:  make(map[string][]primitive.Value),
	}
}

// InMemoryService is the reference Service implementation. Production
// deployments would swap in a Redis- or cloud-native-backed engine behind
// the same Service contract.
type InMemoryService struct {
	config *Config
	logger logging.Logger

	mu     sync.Mutex
	scopes map[string]*scopeData

	publisher ChangePublisher

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates and starts an InMemoryService, including its TTL janitor.
func New(config *Config, logger logging.Logger) *InMemoryService {
	if config == nil {
		config = &Config{}
	}
	config.SetDefaults()

	svc := &InMemoryService{
		config: config,
		logger: logging.OrNop(logger),
		scopes: make(map[string]*scopeData),
	}

	ctx, cancel := context.WithCancel(context.Background())
	svc.cancel = cancel
	svc.wg.Add(1)
	go svc.janitorLoop(ctx)
	return svc
}

func (s *InMemoryService) SetChangePublisher(pub ChangePublisher) { s.publisher = pub }

func (s *InMemoryService) Close(context.Context) error {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	return nil
}

func (s *InMemoryService) janitorLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.config.CleanupInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweepExpired()
		}
	}
}

func (s *InMemoryService) sweepExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for name, sd := range s.scopes {
		if !sd.expiresAt.IsZero() && now.After(sd.expiresAt) {
			delete(s.scopes, name)
		}
	}
}

// expireIfNeededLocked removes name's scope if it has lapsed. Caller must
// hold s.mu.
func (s *InMemoryService) expireIfNeededLocked(name string) {
	sd, ok := s.scopes[name]
	if !ok {
		return
	}
	if !sd.expiresAt.IsZero() && time.Now().After(sd.expiresAt) {
		delete(s.scopes, name)
	}
}

func (s *InMemoryService) getScopeLocked(name string) (*scopeData, bool) {
	s.expireIfNeededLocked(name)
	sd, ok := s.scopes[name]
	return sd, ok
}

func (s *InMemoryService) getOrCreateScopeLocked(name string) *scopeData {
	s.expireIfNeededLocked(name)
	sd, ok := s.scopes[name]
	if !ok {
		sd = newScopeData()
		s.scopes[name] = sd
	}
	return sd
}

func (s *InMemoryService) publish(ctx context.Context, scopeName, operation string, changes any) {
	if s.publisher != nil {
		s.publisher(ctx, scopeName, operation, changes)
	}
}

// --- TTL -----------------------------------------------------------------

func (s *InMemoryService) SetKeyExpireTime(_ context.Context, scope Scope, ttl time.Duration) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	sd := s.getOrCreateScopeLocked(name)
	sd.expiresAt = time.Now().Add(ttl)
	return primitive.Ok(true)
}

func (s *InMemoryService) GetKeyExpireTime(_ context.Context, scope Scope) primitive.OperationResult[*time.Duration] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.getScopeLocked(name)
	if !ok || sd.expiresAt.IsZero() {
		return primitive.Ok[*time.Duration](nil)
	}
	remaining := time.Until(sd.expiresAt)
	if remaining < 0 {
		remaining = 0
	}
	return primitive.Ok(&remaining)
}

// --- Keys ------------------------------------------------------------------

func (s *InMemoryService) SetKeyValues(ctx context.Context, scope Scope, pairs map[string]primitive.Value, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	sd := s.getOrCreateScopeLocked(name)
	for k, v := range pairs {
		sd.values[k] = v
	}
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "SetKeyValues", pairs)
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) SetKeyValueConditionally(ctx context.Context, scope Scope, key string, value primitive.Value, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	sd := s.getOrCreateScopeLocked(name)
	if _, exists := sd.values[key]; exists {
		s.mu.Unlock()
		return primitive.Ok(false)
	}
	sd.values[key] = value
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "SetKeyValueConditionally", map[string]primitive.Value{key: value})
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) GetKeyValue(_ context.Context, scope Scope, key string) primitive.OperationResult[*primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		return primitive.Ok[*primitive.Value](nil)
	}
	v, ok := sd.values[key]
	if !ok {
		return primitive.Ok[*primitive.Value](nil)
	}
	return primitive.Ok(&v)
}

func (s *InMemoryService) GetKeyValues(_ context.Context, scope Scope, keys []string) primitive.OperationResult[map[string]primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]primitive.Value)
	sd, ok := s.getScopeLocked(name)
	if !ok {
		return primitive.Ok(result)
	}
	for _, k := range keys {
		if v, ok := sd.values[k]; ok {
			result[k] = v
		}
	}
	return primitive.Ok(result)
}

func (s *InMemoryService) GetAllKeyValues(_ context.Context, scope Scope) primitive.OperationResult[map[string]primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	result := make(map[string]primitive.Value)
	sd, ok := s.getScopeLocked(name)
	if !ok {
		return primitive.Ok(result)
	}
	for k, v := range sd.values {
		if len(k) > 0 && k[0] == 0 {
			continue // internal mutex bookkeeping, never surfaced
		}
		result[k] = v
	}
	return primitive.Ok(result)
}

func (s *InMemoryService) DeleteKey(ctx context.Context, scope Scope, key string, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	sd, ok := s.getScopeLocked(name)
	existed := false
	if ok {
		_, existed = sd.values[key]
		delete(sd.values, key)
	}
	s.mu.Unlock()

	if publishChange && existed {
		s.publish(ctx, name, "DeleteKey", key)
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) DeleteAllKeys(ctx context.Context, scope Scope, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	delete(s.scopes, name)
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "DeleteAllKeys", nil)
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) GetKeys(_ context.Context, scope Scope) primitive.OperationResult[[]string] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		return primitive.Ok([]string{})
	}
	keys := make([]string, 0, len(sd.values))
	for k := range sd.values {
		if len(k) > 0 && k[0] == 0 {
			continue
		}
		keys = append(keys, k)
	}
	return primitive.Ok(keys)
}

func (s *InMemoryService) GetKeysCount(ctx context.Context, scope Scope) primitive.OperationResult[int64] {
	r := s.GetKeys(ctx, scope)
	return primitive.Ok(int64(len(r.Value())))
}

// --- Increments --------------------------------------------------------------

func (s *InMemoryService) IncrementKeyValues(ctx context.Context, scope Scope, deltas map[string]int64, publishChange bool) primitive.OperationResult[map[string]int64] {
	name := scope.Compile()
	s.mu.Lock()
	sd := s.getOrCreateScopeLocked(name)
	result := make(map[string]int64, len(deltas))
	for k, delta := range deltas {
		var current int64
		if v, ok := sd.values[k]; ok {
			if i, ok := v.AsInteger(); ok {
				current = i
			}
		}
		current += delta
		sd.values[k] = primitive.NewInteger(current)
		result[k] = current
	}
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "IncrementKeyValues", result)
	}
	return primitive.Ok(result)
}

func (s *InMemoryService) IncrementKeyByValueAndGet(ctx context.Context, scope Scope, key string, delta int64, publishChange bool) primitive.OperationResult[int64] {
	r := s.IncrementKeyValues(ctx, scope, map[string]int64{key: delta}, publishChange)
	return primitive.Ok(r.Value()[key])
}

// --- Lists -------------------------------------------------------------------

func valueIndexEqual(haystack []primitive.Value, v primitive.Value) int {
	for i, item := range haystack {
		if item.Equal(v) {
			return i
		}
	}
	return -1
}

func (s *InMemoryService) PushToListTail(ctx context.Context, scope Scope, list string, values []primitive.Value, onlyIfListExists, publishChange bool) primitive.OperationResult[bool] {
	return s.pushToList(ctx, scope, list, values, true, onlyIfListExists, publishChange)
}

func (s *InMemoryService) PushToListHead(ctx context.Context, scope Scope, list string, values []primitive.Value, onlyIfListExists, publishChange bool) primitive.OperationResult[bool] {
	return s.pushToList(ctx, scope, list, values, false, onlyIfListExists, publishChange)
}

func (s *InMemoryService) pushToList(ctx context.Context, scope Scope, list string, values []primitive.Value, tail, onlyIfListExists, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	sd := s.getOrCreateScopeLocked(name)
	existing, exists := sd.lists[list]
	if !exists && onlyIfListExists {
		s.mu.Unlock()
		return primitive.Ok(false)
	}
	if tail {
		existing = append(existing, values...)
	} else {
		existing = append(append([]primitive.Value{}, values...), existing...)
	}
	sd.lists[list] = existing
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "PushToList", map[string]any{"list": list, "values": values})
	}
	return primitive.Ok(true)
}

func (s *InMemoryService) PushToListTailIfValuesNotExists(ctx context.Context, scope Scope, list string, values []primitive.Value, publishChange bool) primitive.OperationResult[[]primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	sd := s.getOrCreateScopeLocked(name)
	existing := sd.lists[list]

	pushed := make([]primitive.Value, 0, len(values))
	for _, v := range values {
		if valueIndexEqual(existing, v) == -1 {
			pushed = append(pushed, v)
		}
	}
	sd.lists[list] = append(existing, pushed...)
	s.mu.Unlock()

	if publishChange && len(pushed) > 0 {
		s.publish(ctx, name, "PushToListTailIfValuesNotExists", map[string]any{"list": list, "values": pushed})
	}
	return primitive.Ok(pushed)
}

func (s *InMemoryService) PopLastElementOfList(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[*primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		s.mu.Unlock()
		return primitive.Ok[*primitive.Value](nil)
	}
	items := sd.lists[list]
	if len(items) == 0 {
		s.mu.Unlock()
		return primitive.Ok[*primitive.Value](nil)
	}
	popped := items[len(items)-1]
	sd.lists[list] = items[:len(items)-1]
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "PopLastElementOfList", map[string]any{"list": list, "value": popped})
	}
	return primitive.Ok(&popped)
}

func (s *InMemoryService) PopFirstElementOfList(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[*primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		s.mu.Unlock()
		return primitive.Ok[*primitive.Value](nil)
	}
	items := sd.lists[list]
	if len(items) == 0 {
		s.mu.Unlock()
		return primitive.Ok[*primitive.Value](nil)
	}
	popped := items[0]
	sd.lists[list] = items[1:]
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "PopFirstElementOfList", map[string]any{"list": list, "value": popped})
	}
	return primitive.Ok(&popped)
}

func (s *InMemoryService) RemoveElementsFromList(ctx context.Context, scope Scope, list string, values []primitive.Value, publishChange bool) primitive.OperationResult[[]primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		s.mu.Unlock()
		return primitive.Ok([]primitive.Value{})
	}
	items := sd.lists[list]
	kept := make([]primitive.Value, 0, len(items))
	removed := make([]primitive.Value, 0)
	for _, item := range items {
		if valueIndexEqual(values, item) != -1 {
			removed = append(removed, item)
			continue
		}
		kept = append(kept, item)
	}
	sd.lists[list] = kept
	s.mu.Unlock()

	if publishChange && len(removed) > 0 {
		s.publish(ctx, name, "RemoveElementsFromList", map[string]any{"list": list, "values": removed})
	}
	return primitive.Ok(removed)
}

func (s *InMemoryService) GetAllElementsOfList(_ context.Context, scope Scope, list string) primitive.OperationResult[[]primitive.Value] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		return primitive.Ok([]primitive.Value{})
	}
	items := sd.lists[list]
	cp := make([]primitive.Value, len(items))
	copy(cp, items)
	return primitive.Ok(cp)
}

func (s *InMemoryService) GetListSize(ctx context.Context, scope Scope, list string) primitive.OperationResult[int64] {
	r := s.GetAllElementsOfList(ctx, scope, list)
	return primitive.Ok(int64(len(r.Value())))
}

func (s *InMemoryService) ListContains(_ context.Context, scope Scope, list string, value primitive.Value) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.getScopeLocked(name)
	if !ok {
		return primitive.Ok(false)
	}
	return primitive.Ok(valueIndexEqual(sd.lists[list], value) != -1)
}

func (s *InMemoryService) EmptyList(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	s.mu.Lock()
	sd, ok := s.getScopeLocked(name)
	if ok {
		delete(sd.lists, list)
	}
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "EmptyList", list)
	}
	return primitive.Ok(true)
}

// EmptyListAndSublists empties the named list plus any list whose name is
// namespaced under it with a "." separator (e.g. "file_states_b" and
// "file_states_b.partN"). See DESIGN.md Open Questions for the rationale
// behind this convention.
func (s *InMemoryService) EmptyListAndSublists(ctx context.Context, scope Scope, list string, publishChange bool) primitive.OperationResult[bool] {
	name := scope.Compile()
	prefix := list + "."
	s.mu.Lock()
	sd, ok := s.getScopeLocked(name)
	if ok {
		delete(sd.lists, list)
		for k := range sd.lists {
			if len(k) > len(prefix) && k[:len(prefix)] == prefix {
				delete(sd.lists, k)
			}
		}
	}
	s.mu.Unlock()

	if publishChange {
		s.publish(ctx, name, "EmptyListAndSublists", list)
	}
	return primitive.Ok(true)
}

// --- Mutex -------------------------------------------------------------------

// MemoryMutexLock atomically installs a unique lock token under the scope
// if absent. The scope's TTL is (re)applied to the lock's ttl — callers
// must isolate mutex scopes, as the whole scope shares one expiry.
func (s *InMemoryService) MemoryMutexLock(_ context.Context, scope Scope, name string, ttl time.Duration) primitive.OperationResult[*string] {
	scopeName := scope.Compile()
	lockKey := mutexKeyPrefix + name

	s.mu.Lock()
	defer s.mu.Unlock()
	sd := s.getOrCreateScopeLocked(scopeName)
	if _, held := sd.values[lockKey]; held {
		return primitive.Ok[*string](nil)
	}

	token := uuid.NewString()
	sd.values[lockKey] = primitive.NewString(token)
	sd.expiresAt = time.Now().Add(ttl)
	return primitive.Ok(&token)
}

func (s *InMemoryService) MemoryMutexUnlock(_ context.Context, scope Scope, name, lockID string) primitive.OperationResult[bool] {
	scopeName := scope.Compile()
	lockKey := mutexKeyPrefix + name

	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.getScopeLocked(scopeName)
	if !ok {
		return primitive.Ok(false)
	}
	stored, ok := sd.values[lockKey]
	if !ok {
		return primitive.Ok(false)
	}
	if token, _ := stored.AsString(); token != lockID {
		return primitive.Ok(false)
	}
	delete(sd.values, lockKey)
	return primitive.Ok(true)
}

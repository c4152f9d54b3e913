package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/bkio/crosscloudkit/internal/logging"
)

var _ Service = (*InMemoryService)(nil)

// retryBackoff is the fixed delay between lock acquisition attempts.
const retryBackoff = 100 * time.Millisecond

// ScopedMutex is a RAII-style distributed mutex guard built on top of a
// Service's mutexLock/mutexUnlock primitives. Acquire blocks,
// retrying on a fixed backoff, until either the lock is obtained or ctx is
// cancelled; Release is safe to call multiple times and never panics on a
// stale lock.
type ScopedMutex struct {
	svc    Service
	scope  Scope
	name   string
	ttl    time.Duration
	logger logging.Logger

	lockID string
	held   bool
}

// NewScopedMutex constructs a guard for (scope, name). The caller must
// ensure scope is not shared with any other TTL-bearing state, since the
// lock's ttl governs the entire scope.
func NewScopedMutex(svc Service, scope Scope, name string, ttl time.Duration, logger logging.Logger) *ScopedMutex {
	return &ScopedMutex{svc: svc, scope: scope, name: name, ttl: ttl, logger: logging.OrNop(logger)}
}

// Acquire attempts the lock in a loop, backing off ~100ms between retries,
// until ctx is cancelled. A fatal (non-retryable) condition from the
// backend surfaces immediately rather than retrying forever.
func (m *ScopedMutex) Acquire(ctx context.Context) error {
	for {
		result := m.svc.MemoryMutexLock(ctx, m.scope, m.name, m.ttl)
		if !result.IsSuccessful() {
			return fmt.Errorf("scoped mutex acquire %s/%s: %w", m.scope.Compile(), m.name, result.Err())
		}
		if token := result.Value(); token != nil {
			m.lockID = *token
			m.held = true
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(retryBackoff):
		}
	}
}

// TryAcquire attempts the lock exactly once, returning (false, nil) if it
// is already held by someone else, used by callers (e.g. the scan-pass
// dispatcher) that must skip rather than block when contended.
func (m *ScopedMutex) TryAcquire(ctx context.Context) (bool, error) {
	result := m.svc.MemoryMutexLock(ctx, m.scope, m.name, m.ttl)
	if !result.IsSuccessful() {
		return false, fmt.Errorf("scoped mutex try-acquire %s/%s: %w", m.scope.Compile(), m.name, result.Err())
	}
	token := result.Value()
	if token == nil {
		return false, nil
	}
	m.lockID = *token
	m.held = true
	return true, nil
}

// Release unlocks on any exit path. A failed release is logged and
// returned as an error, but is non-fatal to the caller: the lock will
// self-heal via TTL expiry.
func (m *ScopedMutex) Release(ctx context.Context) error {
	if !m.held {
		return nil
	}
	result := m.svc.MemoryMutexUnlock(ctx, m.scope, m.name, m.lockID)
	m.held = false
	if !result.IsSuccessful() {
		err := fmt.Errorf("scoped mutex release %s/%s: %w", m.scope.Compile(), m.name, result.Err())
		m.logger.Warn("mutex release failed, relying on TTL self-heal", "scope", m.scope.Compile(), "name", m.name, "error", err)
		return err
	}
	if !result.Value() {
		err := fmt.Errorf("scoped mutex release %s/%s: lock not held by this token", m.scope.Compile(), m.name)
		m.logger.Warn("mutex release no-op, token mismatch", "scope", m.scope.Compile(), "name", m.name)
		return err
	}
	return nil
}

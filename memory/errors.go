package memory

import "errors"

// Error definitions, following a static-sentinel convention.
var (
	ErrNotConnected  = errors.New("memory service: not connected")
	ErrInvalidScope  = errors.New("memory service: invalid scope")
	ErrInvalidKey    = errors.New("memory service: invalid key")
	ErrLockNotHeld   = errors.New("memory service: lock not held by caller")
	ErrAcquireFailed = errors.New("memory service: mutex acquisition failed")
)

package memory

import "fmt"

// ListKeyDelimiter is the reserved sentinel used to compose a scope and a
// list name into a single on-the-wire string when a backend needs to
// address a list as if it were a flat key. Implementations of list-backed
// keys must not let this sequence appear inside a user scope or list name.
const ListKeyDelimiter = "<<<--->>>"

// Scope is an opaque, compilable namespace identifier shared across all
// memory operations. It may be a precomputed string (StringScope) or a
// function that derives the namespace dynamically (FuncScope), e.g. from a
// tenant ID known only at call time.
type Scope interface {
	// Compile yields the scope's on-the-wire form.
	Compile() string
}

// StringScope is a Scope backed by a fixed string.
type StringScope string

func (s StringScope) Compile() string { return string(s) }

// FuncScope is a Scope computed lazily.
type FuncScope func() string

func (f FuncScope) Compile() string { return f() }

// ListKey composes a scope and list name into the reserved wire form.
func ListKey(scope Scope, list string) string {
	return fmt.Sprintf("%s%s%s", scope.Compile(), ListKeyDelimiter, list)
}

// System-reserved scopes that implementations must not let user code
// collide with.
const (
	SystemScopeFileServiceNotifications = "MonitorBasedPubSub.FileService"
	SystemScopeScanDispatchMutex        = "MonitorBasedPubSub.ObserveFileServiceAndDispatchEvents"
)

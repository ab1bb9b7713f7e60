// Package resource is the process-wide registry mapping request ids to
// their cleanup handlers and cancellation state (spec.md §5 "Resource
// manager"). One request owns one registration; cleanup runs in reverse
// registration order, mirroring the teacher's interrupt.Handler's
// single-owner discipline but generalized from OS signals to per-request
// cleanup lists.
package resource

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// CleanupFunc releases one registered resource. Its error is logged by the
// caller, never re-raised past Release (spec.md §5 "failures are logged,
// never re-raised past cleanup").
type CleanupFunc func() error

// entry is one request's registration: its cancellation and its cleanup
// stack.
type entry struct {
	cancel   context.CancelFunc
	cleanups []CleanupFunc
}

// Manager is the process-wide registry. Lookups/insertions are guarded by a
// mutex; mutation of a single id's entry is expected to come from one owner
// at a time (the controller handling that request), per spec.md §5.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
}

// NewManager constructs an empty Manager. A single process-wide instance is
// normally enough; NewManager is exposed for test isolation.
func NewManager() *Manager {
	return &Manager{entries: make(map[string]*entry)}
}

// Register creates a new resource id with its own cancellable context
// derived from parent, and returns the id plus that context. The returned
// context is canceled when Release is called or when ctx itself expires.
func (m *Manager) Register(parent context.Context) (string, context.Context) {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(parent)

	m.mu.Lock()
	m.entries[id] = &entry{cancel: cancel}
	m.mu.Unlock()

	return id, ctx
}

// AddCleanup appends a cleanup handler to id's stack. Handlers run in
// reverse registration order on Release (spec.md §5 "released in reverse
// registration order").
func (m *Manager) AddCleanup(id string, fn CleanupFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok {
		return
	}
	e.cleanups = append(e.cleanups, fn)
}

// Cancel cancels id's derived context without running cleanup handlers or
// forgetting the registration, letting in-flight work observe cancellation
// before Release tears everything down.
func (m *Manager) Cancel(id string) {
	m.mu.Lock()
	e, ok := m.entries[id]
	m.mu.Unlock()
	if !ok {
		return
	}
	e.cancel()
}

// Release cancels id's context, runs its cleanup handlers in reverse
// registration order collecting (not propagating) their errors, and forgets
// the registration.
func (m *Manager) Release(id string) []error {
	m.mu.Lock()
	e, ok := m.entries[id]
	delete(m.entries, id)
	m.mu.Unlock()
	if !ok {
		return nil
	}

	e.cancel()

	var errs []error
	for i := len(e.cleanups) - 1; i >= 0; i-- {
		if err := e.cleanups[i](); err != nil {
			errs = append(errs, fmt.Errorf("cleanup %d for resource %s: %w", i, id, err))
		}
	}
	return errs
}

// Active reports whether id is still registered (not yet Released).
func (m *Manager) Active(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.entries[id]
	return ok
}

// defaultManager is the process-wide singleton most callers should use
// (spec.md §9 "Global singletons ... allowed as process-wide services with
// explicit init/shutdown lifecycle").
var defaultManager = NewManager()

// Default returns the process-wide Manager.
func Default() *Manager { return defaultManager }

// Package threads provides the in-memory conversation thread registry.
// Clean Architecture: Adapter implementing ports.ThreadRegistry.
//
// A thread is a second-level handle decoupling conversational continuity from
// session identity. The registry does not validate bindings - the Q&A
// coordinator does - and threads of expired sessions are simply left behind
// until removed, since a thread whose session is gone resolves to nothing
// useful anyway.
package threads

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// MemoryRegistry keeps thread bindings in process memory.
type MemoryRegistry struct {
	mu      sync.RWMutex
	threads map[string]entities.ConversationThread

	now   func() time.Time
	newID func() string
}

// Option configures the registry.
type Option func(*MemoryRegistry)

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(r *MemoryRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithIDGenerator injects the thread id source.
func WithIDGenerator(newID func() string) Option {
	return func(r *MemoryRegistry) {
		if newID != nil {
			r.newID = newID
		}
	}
}

// NewMemoryRegistry creates a new in-memory thread registry.
func NewMemoryRegistry(opts ...Option) *MemoryRegistry {
	r := &MemoryRegistry{
		threads: make(map[string]entities.ConversationThread),
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Create allocates a new opaque thread bound to the session.
func (r *MemoryRegistry) Create(ctx context.Context, sessionID string) (*entities.ConversationThread, error) {
	thread := entities.ConversationThread{
		ThreadID:  r.newID(),
		SessionID: sessionID,
		CreatedAt: r.now(),
	}

	r.mu.Lock()
	r.threads[thread.ThreadID] = thread
	r.mu.Unlock()

	return &thread, nil
}

// Get resolves a thread. Unknown ids yield a ThreadMismatchError with an
// empty actual session id; the coordinator fills in the expected one.
func (r *MemoryRegistry) Get(ctx context.Context, threadID string) (*entities.ConversationThread, error) {
	r.mu.RLock()
	thread, ok := r.threads[threadID]
	r.mu.RUnlock()

	if !ok {
		return nil, &entities.ThreadMismatchError{ThreadID: threadID}
	}
	return &thread, nil
}

// Remove deletes the thread. Removing an unknown id is not an error.
func (r *MemoryRegistry) Remove(ctx context.Context, threadID string) error {
	r.mu.Lock()
	delete(r.threads, threadID)
	r.mu.Unlock()
	return nil
}

// Package sessionstore provides the in-memory document session store.
// Clean Architecture: Adapter implementing ports.SessionStore.
package sessionstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// entry pairs a stored session with its own mutex, so mutations of one
// session never block operations on another.
type entry struct {
	mu   sync.Mutex
	sess *entities.DocumentSession
}

// MemoryStore keeps sessions in process memory with sliding TTLs.
// Expiration is lazy: expired sessions are reported as gone on read even
// before the periodic sweep reclaims them.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*entry

	now   func() time.Time
	newID func() string
	log   *zap.Logger

	sweepEvery time.Duration
	stopSweep  chan struct{}
	sweepOnce  sync.Once
}

// Option configures the store.
type Option func(*MemoryStore)

// WithClock injects the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator injects the session id source.
func WithIDGenerator(newID func() string) Option {
	return func(s *MemoryStore) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithSweepInterval enables a background sweep that purges expired sessions.
// Correctness does not depend on it; it only reclaims memory from abandoned
// sessions.
func WithSweepInterval(interval time.Duration) Option {
	return func(s *MemoryStore) {
		s.sweepEvery = interval
	}
}

// WithLogger injects the store's logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *MemoryStore) {
		if log != nil {
			s.log = log
		}
	}
}

// NewMemoryStore creates a new in-memory session store.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		sessions:  make(map[string]*entry),
		now:       time.Now,
		newID:     uuid.NewString,
		log:       zap.NewNop(),
		stopSweep: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.sweepEvery > 0 {
		go s.sweepLoop()
	}
	return s
}

// Create allocates a new session around the given chunks.
func (s *MemoryStore) Create(ctx context.Context, chunks []entities.Chunk, ttl time.Duration) (*entities.DocumentSession, error) {
	now := s.now()
	sess := &entities.DocumentSession{
		SessionID:      s.newID(),
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
		DocumentChunks: append([]entities.Chunk(nil), chunks...),
	}

	s.mu.Lock()
	s.sessions[sess.SessionID] = &entry{sess: sess}
	s.mu.Unlock()

	return sess.Clone(), nil
}

// Get returns a copy of the session. Expired sessions are logically absent:
// they yield a SessionExpiredError even if not yet physically purged. Get
// never extends the TTL.
func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*entities.DocumentSession, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.checkExpiry(e.sess); err != nil {
		return nil, err
	}
	return e.sess.Clone(), nil
}

// Update runs fn against the live session under that session's lock.
// Operations on different session ids proceed independently.
func (s *MemoryStore) Update(ctx context.Context, sessionID string, fn func(*entities.DocumentSession) error) error {
	e, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.checkExpiry(e.sess); err != nil {
		return err
	}
	return fn(e.sess)
}

// Touch slides the expiration window to now + ttl.
func (s *MemoryStore) Touch(ctx context.Context, sessionID string, ttl time.Duration) error {
	e, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.checkExpiry(e.sess); err != nil {
		return err
	}
	e.sess.ExpiresAt = s.now().Add(ttl)
	return nil
}

// Remove deletes the session. Removing an unknown id is not an error.
func (s *MemoryStore) Remove(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Close stops the background sweep, if any.
func (s *MemoryStore) Close() error {
	s.sweepOnce.Do(func() { close(s.stopSweep) })
	return nil
}

func (s *MemoryStore) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, &entities.SessionNotFoundError{SessionID: sessionID}
	}
	return e, nil
}

// checkExpiry must be called with the entry's lock held.
func (s *MemoryStore) checkExpiry(sess *entities.DocumentSession) error {
	if !sess.ExpiresAt.After(s.now()) {
		return &entities.SessionExpiredError{SessionID: sess.SessionID, ExpiresAt: sess.ExpiresAt}
	}
	return nil
}

func (s *MemoryStore) sweepLoop() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopSweep:
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep purges sessions whose TTL has elapsed.
func (s *MemoryStore) sweep() {
	now := s.now()

	s.mu.RLock()
	var expired []string
	for id, e := range s.sessions {
		e.mu.Lock()
		if !e.sess.ExpiresAt.After(now) {
			expired = append(expired, id)
		}
		e.mu.Unlock()
	}
	s.mu.RUnlock()

	if len(expired) == 0 {
		return
	}

	s.mu.Lock()
	for _, id := range expired {
		delete(s.sessions, id)
	}
	s.mu.Unlock()

	s.log.Debug("swept expired sessions", zap.Int("count", len(expired)))
}

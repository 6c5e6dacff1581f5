package entities

import (
	"fmt"
	"time"
)

// RateLimitKind discriminates the two budget variants of RateLimitError.
type RateLimitKind string

const (
	RateLimitQuestions RateLimitKind = "questions"
	RateLimitTokens    RateLimitKind = "tokens"
)

// SessionNotFoundError is returned when a session id is unknown.
type SessionNotFoundError struct {
	SessionID string
}

func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session %s not found", e.SessionID)
}

// SessionExpiredError is returned when a session exists but its TTL has
// elapsed. ExpiresAt carries the stored expiry for the user-facing message.
type SessionExpiredError struct {
	SessionID string
	ExpiresAt time.Time
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("session %s expired at %s", e.SessionID, e.ExpiresAt.UTC().Format(time.RFC3339))
}

// ThreadMismatchError is returned when a caller-supplied thread id is unknown
// (ActualSessionID empty) or bound to a different session.
type ThreadMismatchError struct {
	ThreadID          string
	ExpectedSessionID string
	ActualSessionID   string
}

func (e *ThreadMismatchError) Error() string {
	if e.ActualSessionID == "" {
		return fmt.Sprintf("thread %s not found for session %s", e.ThreadID, e.ExpectedSessionID)
	}
	return fmt.Sprintf("thread %s belongs to session %s, not %s", e.ThreadID, e.ActualSessionID, e.ExpectedSessionID)
}

// RateLimitError is returned when a session has exhausted its question or
// token budget. Limit and Current let callers render an actionable message.
type RateLimitError struct {
	SessionID string
	Kind      RateLimitKind
	Limit     int
	Current   int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("session %s exceeded %s budget: %d of %d used", e.SessionID, e.Kind, e.Current, e.Limit)
}

// QAProcessingError wraps any unexpected failure during question processing
// so callers never see an unclassified error.
type QAProcessingError struct {
	SessionID string
	ThreadID  string
	Err       error
}

func (e *QAProcessingError) Error() string {
	return fmt.Sprintf("processing question for session %s (thread %s): %v", e.SessionID, e.ThreadID, e.Err)
}

func (e *QAProcessingError) Unwrap() error { return e.Err }

// Package ports defines interfaces for external dependencies.
// Clean Architecture: These are the boundaries - usecases depend on these abstractions,
// not concrete implementations. Adapters implement these interfaces.
// This follows Dependency Inversion Principle (DIP) strictly.
package ports

import (
	"context"
	"time"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// ModelService invokes the external language model.
// Single Responsibility: Only model inference, no session logic.
type ModelService interface {
	// AskQuestion answers a question against the document chunks, given the
	// conversation so far. Returns the raw model response string, which may
	// or may not be well-formed JSON.
	AskQuestion(ctx context.Context, question string, chunks []entities.Chunk, threadID string, history []entities.ConversationMessage) (string, error)

	// Summarize produces a short summary of the given text.
	Summarize(ctx context.Context, text string) (string, error)
}

// SessionStore owns the map of session id to session state, including
// expiration and budget counters.
//
// Concurrency contract: Update calls for the same session id are mutually
// exclusive; operations on different session ids must not block each other.
// Get performs lazy expiration and never extends the TTL.
type SessionStore interface {
	// Create allocates a new session around the given chunks. The returned
	// session is a copy owned by the caller.
	Create(ctx context.Context, chunks []entities.Chunk, ttl time.Duration) (*entities.DocumentSession, error)

	// Get returns a copy of the session, a SessionNotFoundError when the id
	// is unknown, or a SessionExpiredError when its TTL has elapsed.
	Get(ctx context.Context, sessionID string) (*entities.DocumentSession, error)

	// Update runs fn against the live session under that session's lock.
	// Mutations made by fn are committed when fn returns nil.
	Update(ctx context.Context, sessionID string, fn func(*entities.DocumentSession) error) error

	// Touch slides the expiration window to now + ttl.
	Touch(ctx context.Context, sessionID string, ttl time.Duration) error

	// Remove deletes the session. Removing an unknown id is not an error.
	Remove(ctx context.Context, sessionID string) error
}

// ThreadRegistry owns the map of thread id to session binding. It does not
// validate bindings; the Q&A coordinator does.
type ThreadRegistry interface {
	// Create allocates a new opaque thread bound to the session.
	Create(ctx context.Context, sessionID string) (*entities.ConversationThread, error)

	// Get resolves a thread, or returns a ThreadMismatchError with an empty
	// actual session id when the thread is unknown.
	Get(ctx context.Context, threadID string) (*entities.ConversationThread, error)

	// Remove deletes the thread. Removing an unknown id is not an error.
	Remove(ctx context.Context, threadID string) error
}

// TranscriptProvider fetches video transcripts from the transcript sidecar.
type TranscriptProvider interface {
	// Fetch retrieves the transcript segments for a video in the first
	// available of the requested languages.
	Fetch(ctx context.Context, videoID string, languages []string) ([]entities.TranscriptSegment, error)

	// List returns the transcript languages available for a video.
	List(ctx context.Context, videoID string) ([]entities.TranscriptInfo, error)
}

// DocumentLoader reads and parses documents from various formats.
type DocumentLoader interface {
	// Load reads a document from the given path.
	Load(ctx context.Context, path string) (*entities.Document, error)

	// SupportedExtensions returns file extensions this loader handles.
	SupportedExtensions() []string
}

// AnalysisCache memoizes one-shot analysis results keyed by document content
// hash, so re-uploading the same file skips the model call.
type AnalysisCache interface {
	// Get returns the cached summary for the hash, or ok=false on a miss.
	Get(ctx context.Context, contentHash string) (summary string, ok bool, err error)

	// Put stores the summary for the hash, replacing any previous entry.
	Put(ctx context.Context, contentHash, summary string) error

	// Close releases the cache's resources.
	Close() error
}

// FileWatcher monitors a directory for changes.
type FileWatcher interface {
	// Watch starts monitoring the directory and emits events.
	Watch(ctx context.Context, dir string) (<-chan FileEvent, error)

	// Stop stops the watcher.
	Stop() error
}

// FileEvent represents a file system change.
type FileEvent struct {
	Path      string
	Operation FileOperation
}

// FileOperation is the type of file change.
type FileOperation int

const (
	FileCreated FileOperation = iota
	FileModified
	FileDeleted
)

// Package entities contains core business entities.
// These are the enterprise business rules - pure domain objects with no external dependencies.
package entities

import "time"

// Document represents a source document (TXT, MD) or a video transcript
// flattened to plain text.
type Document struct {
	ID        string
	Name      string
	Path      string
	Content   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a contiguous, offset-tracked slice of source text sized for model
// context windows. Offsets are rune positions into the original text.
// Chunks are created once per document and immutable thereafter.
type Chunk struct {
	Content     string
	Index       int // 0-based, contiguous
	StartOffset int
	EndOffset   int
}

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ConversationMessage is a single turn in a session's history.
// ChunkReferences is set only on assistant messages, pointing at the chunk
// indices the model claimed to have used.
type ConversationMessage struct {
	Role            Role
	Content         string
	Timestamp       time.Time
	ChunkReferences []int
}

// DocumentSession is the bounded-lifetime conversational context tying a
// document's chunks to a growing message history.
//
// Invariants: ExpiresAt > CreatedAt; TotalTokensUsed never decreases;
// ConversationHistory grows by exactly two messages per successful question
// and never shrinks.
type DocumentSession struct {
	SessionID           string
	CreatedAt           time.Time
	ExpiresAt           time.Time
	DocumentChunks      []Chunk
	ConversationHistory []ConversationMessage
	TotalTokensUsed     int
}

// QuestionCount returns the number of user-role messages in the history,
// i.e. how many questions have been asked so far.
func (s *DocumentSession) QuestionCount() int {
	n := 0
	for _, m := range s.ConversationHistory {
		if m.Role == RoleUser {
			n++
		}
	}
	return n
}

// Clone returns a deep copy of the session. Stores hand out clones so callers
// can never mutate stored state outside the store's locking.
func (s *DocumentSession) Clone() *DocumentSession {
	if s == nil {
		return nil
	}
	cp := *s
	cp.DocumentChunks = append([]Chunk(nil), s.DocumentChunks...)
	cp.ConversationHistory = make([]ConversationMessage, len(s.ConversationHistory))
	for i, m := range s.ConversationHistory {
		m.ChunkReferences = append([]int(nil), m.ChunkReferences...)
		cp.ConversationHistory[i] = m
	}
	return &cp
}

// ConversationThread is an opaque handle a caller uses to continue a
// conversation within a session across calls. A thread whose session is gone
// is treated as not found, never repaired.
type ConversationThread struct {
	ThreadID  string
	SessionID string
	CreatedAt time.Time
}

// AnswerResult is the structured payload recovered from a model response.
type AnswerResult struct {
	Answer               string
	RelevantChunkIndices []int
}

// AskResult is returned to the caller after a successful question.
type AskResult struct {
	Answer               string
	RelevantChunkIndices []int
	ConversationHistory  []ConversationMessage
	ThreadID             string
	TokensUsed           int
	ExpiresAt            time.Time
}

// AnalysisResult is returned by the document analysis entry point.
type AnalysisResult struct {
	SessionID  string
	Summary    string
	ChunkCount int
	ExpiresAt  time.Time
	Cached     bool
}

// TranscriptSegment is one caption segment of a video transcript.
type TranscriptSegment struct {
	Text     string  `json:"text"`
	Start    float64 `json:"start"`
	Duration float64 `json:"duration"`
}

// TranscriptInfo describes one available transcript language for a video.
type TranscriptInfo struct {
	Language     string `json:"language"`
	LanguageCode string `json:"language_code"`
	IsGenerated  bool   `json:"is_generated"`
}

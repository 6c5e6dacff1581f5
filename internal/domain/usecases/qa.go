// Package usecases - qa.go orchestrates one question against a document session.
package usecases

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/docchat/docchat-go/internal/domain/entities"
	"github.com/docchat/docchat-go/internal/domain/ports"
)

// QAConfig bounds a session's lifetime and budget.
type QAConfig struct {
	MaxQuestionsPerSession     int
	MaxTokensPerSession        int
	EstimatedTokensPerQuestion int
	EstimatedTokensPerAnswer   int
	SessionTTL                 time.Duration
}

// QAUseCase coordinates the per-question flow: session gate, budget gate,
// thread resolution, model invocation, answer extraction, history commit.
type QAUseCase struct {
	model    ports.ModelService
	sessions ports.SessionStore
	threads  ports.ThreadRegistry
	cfg      QAConfig
	log      *zap.Logger
	now      func() time.Time
}

// NewQAUseCase creates a QAUseCase with injected dependencies.
// Dependency Injection: Adapters are passed in, not created here.
func NewQAUseCase(
	model ports.ModelService,
	sessions ports.SessionStore,
	threads ports.ThreadRegistry,
	cfg QAConfig,
	log *zap.Logger,
) *QAUseCase {
	if cfg.MaxQuestionsPerSession <= 0 {
		cfg.MaxQuestionsPerSession = 50
	}
	if cfg.MaxTokensPerSession <= 0 {
		cfg.MaxTokensPerSession = 100000
	}
	if cfg.EstimatedTokensPerQuestion <= 0 {
		cfg.EstimatedTokensPerQuestion = 500
	}
	if cfg.EstimatedTokensPerAnswer <= 0 {
		cfg.EstimatedTokensPerAnswer = 1000
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = 15 * time.Minute
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &QAUseCase{
		model:    model,
		sessions: sessions,
		threads:  threads,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// CreateSession stores a new session around the given chunks, using the
// configured TTL.
func (uc *QAUseCase) CreateSession(ctx context.Context, chunks []entities.Chunk) (*entities.DocumentSession, error) {
	sess, err := uc.sessions.Create(ctx, chunks, uc.cfg.SessionTTL)
	if err != nil {
		return nil, err
	}
	uc.log.Info("session created",
		zap.String("session_id", sess.SessionID),
		zap.Int("chunks", len(sess.DocumentChunks)),
		zap.Time("expires_at", sess.ExpiresAt))
	return sess, nil
}

// RemoveSession deletes a session. Removing an unknown id is not an error.
func (uc *QAUseCase) RemoveSession(ctx context.Context, sessionID string) error {
	return uc.sessions.Remove(ctx, sessionID)
}

// AskQuestion runs the full per-question state machine. The four named domain
// errors (session not found/expired, rate limit, thread mismatch) surface
// verbatim; anything unexpected is wrapped in a QAProcessingError.
//
// The model call is the single suspension point and runs without any store
// lock held. If ctx is cancelled before the answer is observed, the session
// is left untouched - commits are atomic-or-nothing per question.
func (uc *QAUseCase) AskQuestion(ctx context.Context, sessionID, question, threadID string) (*entities.AskResult, error) {
	sess, err := uc.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if err := uc.checkBudget(sess); err != nil {
		return nil, err
	}

	threadID, err = uc.resolveThread(ctx, sessionID, threadID)
	if err != nil {
		return nil, err
	}

	log := uc.log.With(zap.String("session_id", sessionID), zap.String("thread_id", threadID))
	log.Debug("invoking model", zap.Int("chunks", len(sess.DocumentChunks)), zap.Int("history", len(sess.ConversationHistory)))

	raw, err := uc.model.AskQuestion(ctx, question, sess.DocumentChunks, threadID, sess.ConversationHistory)
	if err != nil {
		log.Error("model invocation failed", zap.Error(err))
		return nil, &entities.QAProcessingError{SessionID: sessionID, ThreadID: threadID, Err: err}
	}

	answer := ExtractAnswer(raw)

	// The caller gave up while the model call was in flight; discard the
	// result rather than committing it past the deadline.
	if err := ctx.Err(); err != nil {
		log.Warn("discarding answer, context done", zap.Error(err))
		return nil, &entities.QAProcessingError{SessionID: sessionID, ThreadID: threadID, Err: err}
	}

	questionTokens := EstimateTokens(question)
	answerTokens := EstimateTokens(answer.Answer)
	now := uc.now()

	var history []entities.ConversationMessage
	err = uc.sessions.Update(ctx, sessionID, func(live *entities.DocumentSession) error {
		live.ConversationHistory = append(live.ConversationHistory,
			entities.ConversationMessage{
				Role:      entities.RoleUser,
				Content:   question,
				Timestamp: now,
			},
			entities.ConversationMessage{
				Role:            entities.RoleAssistant,
				Content:         answer.Answer,
				Timestamp:       now,
				ChunkReferences: answer.RelevantChunkIndices,
			})
		live.TotalTokensUsed += questionTokens + answerTokens
		history = live.Clone().ConversationHistory
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := uc.sessions.Touch(ctx, sessionID, uc.cfg.SessionTTL); err != nil {
		return nil, err
	}

	log.Info("question answered",
		zap.Int("answer_len", len(answer.Answer)),
		zap.Ints("relevant_chunks", answer.RelevantChunkIndices),
		zap.Int("tokens", questionTokens+answerTokens))

	return &entities.AskResult{
		Answer:               answer.Answer,
		RelevantChunkIndices: answer.RelevantChunkIndices,
		ConversationHistory:  history,
		ThreadID:             threadID,
		TokensUsed:           questionTokens + answerTokens,
		ExpiresAt:            now.Add(uc.cfg.SessionTTL),
	}, nil
}

// checkBudget enforces admission control on a session snapshot. The question
// count gate runs before the token gate.
func (uc *QAUseCase) checkBudget(sess *entities.DocumentSession) error {
	if count := sess.QuestionCount(); count >= uc.cfg.MaxQuestionsPerSession {
		return &entities.RateLimitError{
			SessionID: sess.SessionID,
			Kind:      entities.RateLimitQuestions,
			Limit:     uc.cfg.MaxQuestionsPerSession,
			Current:   count,
		}
	}

	projected := uc.cfg.EstimatedTokensPerQuestion + uc.cfg.EstimatedTokensPerAnswer
	if sess.TotalTokensUsed+projected > uc.cfg.MaxTokensPerSession {
		return &entities.RateLimitError{
			SessionID: sess.SessionID,
			Kind:      entities.RateLimitTokens,
			Limit:     uc.cfg.MaxTokensPerSession,
			Current:   sess.TotalTokensUsed,
		}
	}
	return nil
}

// resolveThread creates a thread when the caller supplied none, otherwise
// validates that the supplied thread belongs to this session.
func (uc *QAUseCase) resolveThread(ctx context.Context, sessionID, threadID string) (string, error) {
	if threadID == "" {
		thread, err := uc.threads.Create(ctx, sessionID)
		if err != nil {
			return "", &entities.QAProcessingError{SessionID: sessionID, Err: err}
		}
		return thread.ThreadID, nil
	}

	thread, err := uc.threads.Get(ctx, threadID)
	if err != nil {
		var mismatch *entities.ThreadMismatchError
		if errors.As(err, &mismatch) {
			mismatch.ExpectedSessionID = sessionID
			return "", mismatch
		}
		return "", &entities.QAProcessingError{SessionID: sessionID, ThreadID: threadID, Err: err}
	}
	if thread.SessionID != sessionID {
		return "", &entities.ThreadMismatchError{
			ThreadID:          threadID,
			ExpectedSessionID: sessionID,
			ActualSessionID:   thread.SessionID,
		}
	}
	return threadID, nil
}

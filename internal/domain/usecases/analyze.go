// Package usecases - analyze.go is the document analysis entry point.
package usecases

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/docchat/docchat-go/internal/domain/entities"
	"github.com/docchat/docchat-go/internal/domain/ports"
)

// AnalysisUseCase turns a document or transcript into a summary plus a live
// Q&A session. Summaries are memoized by content hash so re-uploading the
// same file skips the model call.
type AnalysisUseCase struct {
	model        ports.ModelService
	qa           *QAUseCase
	transcripts  ports.TranscriptProvider
	cache        ports.AnalysisCache
	chunkSize    int
	chunkOverlap int
	log          *zap.Logger
}

// NewAnalysisUseCase creates an AnalysisUseCase with injected dependencies.
// transcripts and cache may be nil; video analysis and memoization are then
// disabled.
func NewAnalysisUseCase(
	model ports.ModelService,
	qa *QAUseCase,
	transcripts ports.TranscriptProvider,
	cache ports.AnalysisCache,
	chunkSize, chunkOverlap int,
	log *zap.Logger,
) *AnalysisUseCase {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &AnalysisUseCase{
		model:        model,
		qa:           qa,
		transcripts:  transcripts,
		cache:        cache,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
		log:          log,
	}
}

// Analyze summarizes the document, chunks it, and opens a session over the
// chunks. An empty document still gets a session - just one with no chunks
// and no summary.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, doc *entities.Document) (*entities.AnalysisResult, error) {
	log := uc.log.With(zap.String("document", doc.Name))

	summary := ""
	cached := false
	if strings.TrimSpace(doc.Content) != "" {
		hash := contentHash(doc.Content)

		if uc.cache != nil {
			s, ok, err := uc.cache.Get(ctx, hash)
			if err != nil {
				log.Warn("analysis cache read failed", zap.Error(err))
			} else if ok {
				summary = s
				cached = true
			}
		}

		if !cached {
			s, err := uc.model.Summarize(ctx, doc.Content)
			if err != nil {
				return nil, fmt.Errorf("summarizing document: %w", err)
			}
			summary = s
			if uc.cache != nil {
				if err := uc.cache.Put(ctx, hash, summary); err != nil {
					log.Warn("analysis cache write failed", zap.Error(err))
				}
			}
		}
	}

	chunks := ChunkText(doc.Content, uc.chunkSize, uc.chunkOverlap)

	sess, err := uc.qa.CreateSession(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	log.Info("document analyzed",
		zap.String("session_id", sess.SessionID),
		zap.Int("chunks", len(chunks)),
		zap.Bool("cached", cached))

	return &entities.AnalysisResult{
		SessionID:  sess.SessionID,
		Summary:    summary,
		ChunkCount: len(chunks),
		ExpiresAt:  sess.ExpiresAt,
		Cached:     cached,
	}, nil
}

// AnalyzeVideo fetches a video transcript, flattens it to plain text, and
// runs the document pipeline on it.
func (uc *AnalysisUseCase) AnalyzeVideo(ctx context.Context, videoID string, languages []string) (*entities.AnalysisResult, error) {
	if uc.transcripts == nil {
		return nil, fmt.Errorf("transcript provider not configured")
	}

	segments, err := uc.transcripts.Fetch(ctx, videoID, languages)
	if err != nil {
		return nil, fmt.Errorf("fetching transcript for %s: %w", videoID, err)
	}

	parts := make([]string, 0, len(segments))
	for _, seg := range segments {
		if t := strings.TrimSpace(seg.Text); t != "" {
			parts = append(parts, t)
		}
	}

	return uc.Analyze(ctx, &entities.Document{
		ID:      videoID,
		Name:    "video:" + videoID,
		Content: strings.Join(parts, " "),
	})
}

// ListTranscripts returns the transcript languages available for a video.
func (uc *AnalysisUseCase) ListTranscripts(ctx context.Context, videoID string) ([]entities.TranscriptInfo, error) {
	if uc.transcripts == nil {
		return nil, fmt.Errorf("transcript provider not configured")
	}
	return uc.transcripts.List(ctx, videoID)
}

// contentHash returns the hex SHA-256 of the document content, the cache key
// for memoized analysis.
func contentHash(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// Package http provides the HTTP server infrastructure.
// Clean Architecture: Framework/driver layer - outermost circle. The server
// is thin plumbing: it decodes requests, calls the use cases, and maps domain
// errors to status codes.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/docchat/docchat-go/internal/domain/entities"
	"github.com/docchat/docchat-go/internal/domain/usecases"
)

// Server is the HTTP server for the document Q&A API.
type Server struct {
	analysis *usecases.AnalysisUseCase
	qa       *usecases.QAUseCase
	log      *zap.Logger
	addr     string
}

// NewServer creates a new HTTP server.
func NewServer(analysis *usecases.AnalysisUseCase, qa *usecases.QAUseCase, addr string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{
		analysis: analysis,
		qa:       qa,
		log:      log,
		addr:     addr,
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/documents", s.handleAnalyzeDocument)
	mux.HandleFunc("POST /api/videos/{id}/analyze", s.handleAnalyzeVideo)
	mux.HandleFunc("GET /api/videos/{id}/transcripts", s.handleListTranscripts)
	mux.HandleFunc("POST /api/sessions/{id}/questions", s.handleAskQuestion)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.handleRemoveSession)
	mux.HandleFunc("GET /api/health", s.handleHealth)

	return corsMiddleware(s.loggingMiddleware(mux))
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:         s.addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 300 * time.Second, // model calls can be slow
	}

	s.log.Info("docchat server starting", zap.String("addr", s.addr))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	return server.ListenAndServe()
}

type analyzeDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleAnalyzeDocument(w http.ResponseWriter, r *http.Request) {
	var req analyzeDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}

	result, err := s.analysis.Analyze(r.Context(), &entities.Document{
		Name:    req.Name,
		Content: req.Content,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse(result))
}

type analyzeVideoRequest struct {
	Languages []string `json:"languages"`
}

func (s *Server) handleAnalyzeVideo(w http.ResponseWriter, r *http.Request) {
	videoID := r.PathValue("id")

	var req analyzeVideoRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
			return
		}
	}

	result, err := s.analysis.AnalyzeVideo(r.Context(), videoID, req.Languages)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysisResponse(result))
}

type askQuestionRequest struct {
	Question string `json:"question"`
	ThreadID string `json:"thread_id"`
}

func (s *Server) handleAskQuestion(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")

	var req askQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "invalid JSON body"})
		return
	}
	if req.Question == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "question is required"})
		return
	}

	result, err := s.qa.AskQuestion(r.Context(), sessionID, req.Question, req.ThreadID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	history := make([]map[string]any, len(result.ConversationHistory))
	for i, msg := range result.ConversationHistory {
		history[i] = map[string]any{
			"role":      msg.Role,
			"content":   msg.Content,
			"timestamp": msg.Timestamp.UTC().Format(time.RFC3339),
		}
		if msg.ChunkReferences != nil {
			history[i]["chunk_references"] = msg.ChunkReferences
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"answer":          result.Answer,
		"relevant_chunks": result.RelevantChunkIndices,
		"history":         history,
		"thread_id":       result.ThreadID,
		"tokens_used":     result.TokensUsed,
		"expires_at":      result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleListTranscripts(w http.ResponseWriter, r *http.Request) {
	infos, err := s.analysis.ListTranscripts(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]map[string]any, len(infos))
	for i, info := range infos {
		out[i] = map[string]any{
			"language":      info.Language,
			"language_code": info.LanguageCode,
			"is_generated":  info.IsGenerated,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"available_transcripts": out})
}

func (s *Server) handleRemoveSession(w http.ResponseWriter, r *http.Request) {
	if err := s.qa.RemoveSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "healthy", "service": "docchat"})
}

func analysisResponse(result *entities.AnalysisResult) map[string]any {
	return map[string]any{
		"session_id":  result.SessionID,
		"summary":     result.Summary,
		"chunk_count": result.ChunkCount,
		"expires_at":  result.ExpiresAt.UTC().Format(time.RFC3339),
		"cached":      result.Cached,
	}
}

// writeError maps domain errors to status codes, carrying enough payload for
// the caller to render an actionable message.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var (
		notFound *entities.SessionNotFoundError
		expired  *entities.SessionExpiredError
		mismatch *entities.ThreadMismatchError
		limited  *entities.RateLimitError
		failed   *entities.QAProcessingError
	)

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error":      notFound.Error(),
			"code":       "SESSION_NOT_FOUND",
			"session_id": notFound.SessionID,
		})
	case errors.As(err, &expired):
		writeJSON(w, http.StatusGone, map[string]any{
			"error":      expired.Error(),
			"code":       "SESSION_EXPIRED",
			"session_id": expired.SessionID,
			"expired_at": expired.ExpiresAt.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &mismatch):
		payload := map[string]any{
			"error":               mismatch.Error(),
			"code":                "THREAD_MISMATCH",
			"thread_id":           mismatch.ThreadID,
			"expected_session_id": mismatch.ExpectedSessionID,
		}
		if mismatch.ActualSessionID != "" {
			payload["actual_session_id"] = mismatch.ActualSessionID
		}
		writeJSON(w, http.StatusConflict, payload)
	case errors.As(err, &limited):
		writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"error":      limited.Error(),
			"code":       "RATE_LIMIT_EXCEEDED",
			"session_id": limited.SessionID,
			"kind":       limited.Kind,
			"limit":      limited.Limit,
			"current":    limited.Current,
		})
	case errors.As(err, &failed):
		s.log.Error("question processing failed", zap.Error(err))
		writeJSON(w, http.StatusBadGateway, map[string]any{
			"error": "question processing failed",
			"code":  "QA_PROCESSING_FAILED",
		})
	default:
		s.log.Error("internal error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]any{
			"error": "internal error",
			"code":  "INTERNAL_ERROR",
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// loggingMiddleware logs each request with its duration.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Duration("took", time.Since(start)))
	})
}

// corsMiddleware allows browser clients from any origin.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

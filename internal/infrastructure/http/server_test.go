package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docchat/docchat-go/internal/adapters/sessionstore"
	"github.com/docchat/docchat-go/internal/adapters/threads"
	"github.com/docchat/docchat-go/internal/domain/entities"
	"github.com/docchat/docchat-go/internal/domain/usecases"
)

type stubModel struct {
	askResponse string
	askErr      error
	summary     string
}

func (m *stubModel) AskQuestion(ctx context.Context, question string, chunks []entities.Chunk, threadID string, history []entities.ConversationMessage) (string, error) {
	if m.askErr != nil {
		return "", m.askErr
	}
	return m.askResponse, nil
}

func (m *stubModel) Summarize(ctx context.Context, text string) (string, error) {
	return m.summary, nil
}

type serverFixture struct {
	handler http.Handler
	qa      *usecases.QAUseCase
	model   *stubModel
}

func newServerFixture(t *testing.T, cfg usecases.QAConfig) *serverFixture {
	t.Helper()

	model := &stubModel{
		askResponse: `{"answer": "the answer", "relevantChunks": [0]}`,
		summary:     "a summary",
	}
	store := sessionstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })
	registry := threads.NewMemoryRegistry()

	qa := usecases.NewQAUseCase(model, store, registry, cfg, nil)
	analysis := usecases.NewAnalysisUseCase(model, qa, nil, nil, 100, 20, nil)
	server := NewServer(analysis, qa, ":0", nil)

	return &serverFixture{handler: server.Handler(), qa: qa, model: model}
}

func (f *serverFixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (f *serverFixture) analyzeDocument(t *testing.T, content string) map[string]any {
	t.Helper()
	rec := f.do(t, "POST", "/api/documents", map[string]string{
		"name":    "doc.txt",
		"content": content,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	return decodeBody(t, rec)
}

func TestServer_Health(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	rec := f.do(t, "GET", "/api/health", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestServer_AnalyzeDocument(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	body := f.analyzeDocument(t, strings.Repeat("0123456789", 25))

	assert.NotEmpty(t, body["session_id"])
	assert.Equal(t, "a summary", body["summary"])
	assert.Equal(t, float64(3), body["chunk_count"])
	assert.Equal(t, false, body["cached"])
	_, err := time.Parse(time.RFC3339, body["expires_at"].(string))
	assert.NoError(t, err)
}

func TestServer_AnalyzeDocumentBadJSON(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	req := httptest.NewRequest("POST", "/api/documents", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_AskQuestion(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})
	sessionID := f.analyzeDocument(t, "some document text")["session_id"].(string)

	rec := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions", map[string]string{
		"question": "what is this about?",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "the answer", body["answer"])
	assert.Equal(t, []any{float64(0)}, body["relevant_chunks"])
	assert.NotEmpty(t, body["thread_id"])
	assert.Len(t, body["history"], 2)

	history := body["history"].([]any)
	first := history[0].(map[string]any)
	assert.Equal(t, "user", first["role"])
	assert.Equal(t, "what is this about?", first["content"])
}

func TestServer_AskQuestionReusesThread(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})
	sessionID := f.analyzeDocument(t, "some document text")["session_id"].(string)

	first := decodeBody(t, f.do(t, "POST", "/api/sessions/"+sessionID+"/questions",
		map[string]string{"question": "first?"}))
	threadID := first["thread_id"].(string)

	rec := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions",
		map[string]string{"question": "second?", "thread_id": threadID})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, threadID, body["thread_id"])
	assert.Len(t, body["history"], 4)
}

func TestServer_AskQuestionMissingQuestion(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	rec := f.do(t, "POST", "/api/sessions/whatever/questions", map[string]string{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_UnknownSessionIs404(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	rec := f.do(t, "POST", "/api/sessions/ghost/questions", map[string]string{
		"question": "anyone home?",
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "SESSION_NOT_FOUND", body["code"])
	assert.Equal(t, "ghost", body["session_id"])
}

func TestServer_ExpiredSessionIs410(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{SessionTTL: time.Nanosecond})
	sessionID := f.analyzeDocument(t, "short lived")["session_id"].(string)

	time.Sleep(time.Millisecond)
	rec := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions", map[string]string{
		"question": "too late?",
	})

	assert.Equal(t, http.StatusGone, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "SESSION_EXPIRED", body["code"])
	assert.NotEmpty(t, body["expired_at"])
}

func TestServer_ThreadMismatchIs409(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})
	sessionID := f.analyzeDocument(t, "some document text")["session_id"].(string)

	rec := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions", map[string]string{
		"question":  "who are you?",
		"thread_id": "ghost-thread",
	})

	assert.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "THREAD_MISMATCH", body["code"])
	assert.Equal(t, "ghost-thread", body["thread_id"])
	assert.Equal(t, sessionID, body["expected_session_id"])
	assert.NotContains(t, body, "actual_session_id")
}

func TestServer_QuestionLimitIs429(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{MaxQuestionsPerSession: 1})
	sessionID := f.analyzeDocument(t, "some document text")["session_id"].(string)

	first := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions",
		map[string]string{"question": "one"})
	require.Equal(t, http.StatusOK, first.Code)

	rec := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions",
		map[string]string{"question": "two"})

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", body["code"])
	assert.Equal(t, "questions", body["kind"])
	assert.Equal(t, float64(1), body["limit"])
}

func TestServer_ModelFailureIs502(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})
	f.model.askErr = errors.New("model fell over")
	sessionID := f.analyzeDocument(t, "some document text")["session_id"].(string)

	rec := f.do(t, "POST", "/api/sessions/"+sessionID+"/questions", map[string]string{
		"question": "still there?",
	})

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, "QA_PROCESSING_FAILED", decodeBody(t, rec)["code"])
}

func TestServer_RemoveSession(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})
	sessionID := f.analyzeDocument(t, "some document text")["session_id"].(string)

	rec := f.do(t, "DELETE", "/api/sessions/"+sessionID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, "POST", "/api/sessions/"+sessionID+"/questions", map[string]string{
		"question": "gone?",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

type stubTranscripts struct {
	infos []entities.TranscriptInfo
}

func (s *stubTranscripts) Fetch(ctx context.Context, videoID string, languages []string) ([]entities.TranscriptSegment, error) {
	return nil, nil
}

func (s *stubTranscripts) List(ctx context.Context, videoID string) ([]entities.TranscriptInfo, error) {
	return s.infos, nil
}

func TestServer_ListTranscripts(t *testing.T) {
	model := &stubModel{summary: "a summary"}
	store := sessionstore.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	qa := usecases.NewQAUseCase(model, store, threads.NewMemoryRegistry(), usecases.QAConfig{}, nil)
	transcripts := &stubTranscripts{infos: []entities.TranscriptInfo{
		{Language: "English", LanguageCode: "en", IsGenerated: false},
	}}
	analysis := usecases.NewAnalysisUseCase(model, qa, transcripts, nil, 100, 20, nil)
	f := &serverFixture{handler: NewServer(analysis, qa, ":0", nil).Handler()}

	rec := f.do(t, "GET", "/api/videos/abc123/transcripts", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	available := body["available_transcripts"].([]any)
	require.Len(t, available, 1)
	assert.Equal(t, "en", available[0].(map[string]any)["language_code"])
}

func TestServer_AnalyzeVideoWithoutProvider(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	rec := f.do(t, "POST", "/api/videos/abc123/analyze", nil)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestServer_CORSPreflight(t *testing.T) {
	f := newServerFixture(t, usecases.QAConfig{})

	rec := f.do(t, "OPTIONS", "/api/health", nil)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

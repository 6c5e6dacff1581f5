// Package llm provides the Ollama model adapter.
// Clean Architecture: Adapter implementing ports.ModelService.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// OllamaAdapter implements ports.ModelService using the Ollama generate API.
//
// The raw response string is returned as-is; recovering a structured answer
// from it is the answer extractor's job, not the adapter's.
type OllamaAdapter struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllamaAdapter creates a new Ollama model adapter.
func NewOllamaAdapter(baseURL, model string) *OllamaAdapter {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.2"
	}
	return &OllamaAdapter{
		baseURL: baseURL,
		model:   model,
		client: &http.Client{
			Timeout: 300 * time.Second,
		},
	}
}

// ollamaGenerateRequest is the Ollama generate API request.
type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// ollamaGenerateResponse is the Ollama generate API response.
type ollamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// AskQuestion answers a question against the document chunks, given the
// conversation so far.
func (a *OllamaAdapter) AskQuestion(ctx context.Context, question string, chunks []entities.Chunk, threadID string, history []entities.ConversationMessage) (string, error) {
	return a.generate(ctx, buildQuestionPrompt(question, chunks, history))
}

// Summarize produces a short summary of the given text.
func (a *OllamaAdapter) Summarize(ctx context.Context, text string) (string, error) {
	var sb strings.Builder
	sb.WriteString("Summarize the following document in a few short paragraphs. ")
	sb.WriteString("Cover the main topics and conclusions. Respond with the summary only.\n\n")
	sb.WriteString(text)
	return a.generate(ctx, sb.String())
}

// generate performs one non-streaming generate call.
func (a *OllamaAdapter) generate(ctx context.Context, prompt string) (string, error) {
	reqBody := ollamaGenerateRequest{
		Model:  a.model,
		Prompt: prompt,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.baseURL+"/api/generate", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("Ollama returned status %d", resp.StatusCode)
	}

	var genResp ollamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("decoding response: %w", err)
	}

	return genResp.Response, nil
}

// buildQuestionPrompt lays out the chunks, the conversation so far, and the
// question, and asks the model for the JSON shape the extractor expects.
func buildQuestionPrompt(question string, chunks []entities.Chunk, history []entities.ConversationMessage) string {
	var sb strings.Builder
	sb.WriteString("You are answering questions about a document. ")
	sb.WriteString("Use only the numbered chunks below.\n\n")
	sb.WriteString("Document chunks:\n")
	for _, chunk := range chunks {
		fmt.Fprintf(&sb, "[Chunk %d]\n%s\n\n", chunk.Index, chunk.Content)
	}

	if len(history) > 0 {
		sb.WriteString("Conversation so far:\n")
		for _, msg := range history {
			fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\nRespond with ONLY valid JSON in this shape:\n")
	sb.WriteString(`{"answer": "your answer", "relevantChunks": [0, 1]}`)
	sb.WriteString("\nwhere relevantChunks lists the chunk indices you used.")
	return sb.String()
}

// Package usecases - extract.go recovers structured answers from raw model output.
package usecases

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/docchat/docchat-go/internal/domain/entities"
)

// parseStrategy attempts one way of reading a structured answer out of a raw
// model response. Each strategy is total: it reports failure instead of
// panicking or returning an error.
type parseStrategy func(string) (entities.AnswerResult, bool)

// answerStrategies is the ordered recovery ladder. First success wins; the
// terminal fallback in ExtractAnswer runs when every strategy fails.
var answerStrategies = []parseStrategy{
	parseStrictJSON,
	parseCleanedJSON,
}

var (
	codeFenceRe   = regexp.MustCompile("```(?:json)?")
	htmlCommentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	jsonPrefixRe  = regexp.MustCompile(`^"?json"?\s*`)
)

// ExtractAnswer recovers an {answer, relevantChunks} payload from an
// untrusted model response. It never fails outward: malformed output degrades
// to the full raw text as the answer with no chunk attribution, since an
// unhelpful literal answer beats a failed request.
func ExtractAnswer(raw string) entities.AnswerResult {
	for _, strategy := range answerStrategies {
		if result, ok := strategy(raw); ok {
			return result
		}
	}
	return entities.AnswerResult{
		Answer:               raw,
		RelevantChunkIndices: []int{},
	}
}

// parseStrictJSON requires the response to already be a valid JSON object.
func parseStrictJSON(raw string) (entities.AnswerResult, bool) {
	var payload map[string]any
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return entities.AnswerResult{}, false
	}
	return resultFromPayload(payload)
}

// parseCleanedJSON strips the decorations models like to wrap JSON in and
// retries. If the cleaned string still fails, it parses the substring between
// the first '{' and the last '}'.
func parseCleanedJSON(raw string) (entities.AnswerResult, bool) {
	s := cleanModelResponse(raw)

	var payload map[string]any
	if err := json.Unmarshal([]byte(s), &payload); err != nil {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end <= start {
			return entities.AnswerResult{}, false
		}
		if err := json.Unmarshal([]byte(s[start:end+1]), &payload); err != nil {
			return entities.AnswerResult{}, false
		}
	}
	return resultFromPayload(payload)
}

// cleanModelResponse removes a stray leading `json` marker (quoted or not),
// markdown code fences, and HTML comments.
func cleanModelResponse(s string) string {
	s = strings.TrimSpace(s)
	s = jsonPrefixRe.ReplaceAllString(s, "")
	s = codeFenceRe.ReplaceAllString(s, "")
	s = htmlCommentRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// resultFromPayload extracts the answer string and chunk indices from a
// decoded JSON object. The chunk array may appear under either key;
// non-numeric entries are dropped rather than treated as errors.
func resultFromPayload(payload map[string]any) (entities.AnswerResult, bool) {
	answer, ok := payload["answer"].(string)
	if !ok {
		return entities.AnswerResult{}, false
	}

	entries, ok := payload["relevantChunks"].([]any)
	if !ok {
		entries, _ = payload["relevantChunkIndices"].([]any)
	}

	indices := make([]int, 0, len(entries))
	for _, entry := range entries {
		if n, ok := entry.(float64); ok {
			indices = append(indices, int(n))
		}
	}

	return entities.AnswerResult{
		Answer:               answer,
		RelevantChunkIndices: indices,
	}, true
}

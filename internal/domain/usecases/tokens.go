// Package usecases - tokens.go holds the token estimation heuristic.
package usecases

// EstimateTokens gives a conservative, model-agnostic token estimate for a
// piece of text: ceil(len/4). It is deliberately not tokenizer-accurate; the
// same estimate is used for the pre-call budget check and the post-call
// accounting so the two never disagree.
func EstimateTokens(text string) int {
	return (len(text) + 3) / 4
}

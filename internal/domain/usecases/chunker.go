// Package usecases contains application business rules.
// Clean Architecture: Usecases orchestrate entities and depend on port interfaces.
// They contain NO framework code, NO external dependencies - just pure business logic.
package usecases

import (
	"github.com/docchat/docchat-go/internal/domain/entities"
)

// DefaultChunkSize is the default window size in characters.
const DefaultChunkSize = 4000

// DefaultChunkOverlap is the default overlap between consecutive chunks.
const DefaultChunkOverlap = 400

// ChunkText splits text into overlapping, position-tracked chunks.
//
// The window advances with a stride of chunkSize - overlapSize, so every
// chunk except the last shares overlapSize characters with its successor.
// The final chunk is truncated to the remaining length, never padded.
// Offsets are rune positions into text. Empty text yields no chunks -
// callers treat that as "no content", not an error.
//
// Deterministic: identical input always yields identical output. The
// analysis cache relies on this.
func ChunkText(text string, chunkSize, overlapSize int) []entities.Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapSize < 0 || overlapSize >= chunkSize {
		overlapSize = chunkSize / 10
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	stride := chunkSize - overlapSize
	chunks := make([]entities.Chunk, 0, total/stride+1)

	index := 0
	for start := 0; start < total; start += stride {
		end := start + chunkSize
		if end > total {
			end = total
		}

		chunks = append(chunks, entities.Chunk{
			Content:     string(runes[start:end]),
			Index:       index,
			StartOffset: start,
			EndOffset:   end,
		})
		index++

		if end == total {
			break
		}
	}

	return chunks
}

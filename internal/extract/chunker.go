package extract

import (
	"fmt"

	"github.com/xxxsen/mrecall/internal/model"
)

// Chunk splits a transcript into non-overlapping, order-preserving chunks of
// at most maxChunkSize messages. The last chunk may be shorter. An empty
// transcript yields no chunks.
func Chunk(sessionID string, msgs []model.Message, maxChunkSize int) ([]model.ConversationChunk, error) {
	if maxChunkSize < 1 {
		return nil, fmt.Errorf("max chunk size must be >= 1, got %d", maxChunkSize)
	}
	var chunks []model.ConversationChunk
	for start := 0; start < len(msgs); start += maxChunkSize {
		end := start + maxChunkSize
		if end > len(msgs) {
			end = len(msgs)
		}
		chunks = append(chunks, model.ConversationChunk{
			SessionID:  sessionID,
			ChunkIndex: len(chunks),
			Messages:   msgs[start:end],
		})
	}
	return chunks, nil
}

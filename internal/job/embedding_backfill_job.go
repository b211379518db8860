package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/model"
	"github.com/xxxsen/mrecall/internal/repo"
)

// EmbeddingBackfillJob upgrades memories persisted with mock vectors once the
// real embedding endpoint is reachable again. Without it, an outage at write
// time would permanently degrade semantic retrieval for those memories.
type EmbeddingBackfillJob struct {
	memories  *repo.MemoryRepo
	embedder  embed.IEmbedder
	batchSize int
}

func NewEmbeddingBackfillJob(memories *repo.MemoryRepo, embedder embed.IEmbedder, batchSize int) *EmbeddingBackfillJob {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &EmbeddingBackfillJob{memories: memories, embedder: embedder, batchSize: batchSize}
}

func (j *EmbeddingBackfillJob) Name() string {
	return "embedding_backfill"
}

func (j *EmbeddingBackfillJob) Run(ctx context.Context) error {
	if j.memories == nil || j.embedder == nil {
		return nil
	}
	status := j.embedder.Status(ctx)
	if status.Mode != model.VectorModeReal {
		return nil
	}
	pending, err := j.memories.ListMockEmbeddings(ctx, j.batchSize)
	if err != nil {
		return err
	}
	logger := logutil.GetLogger(ctx)
	upgraded := 0
	for _, mem := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}
		vec, err := j.embedder.Embed(ctx, mem.Title+"\n"+mem.Content)
		if err != nil {
			return err
		}
		// The endpoint may have dropped out again mid-batch.
		if vec.Mode != model.VectorModeReal {
			break
		}
		if err := j.memories.UpdateEmbedding(ctx, mem.ID, vec); err != nil {
			return err
		}
		upgraded++
	}
	if upgraded > 0 {
		logger.Info("mock embeddings upgraded", zap.Int("count", upgraded))
	}
	return nil
}

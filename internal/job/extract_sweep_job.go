package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/service"
)

// ExtractSweepJob distills every session with messages past its extraction
// cursor, so transcripts ingested between manual extract calls still become
// memories.
type ExtractSweepJob struct {
	memories *service.MemoryService
}

func NewExtractSweepJob(memories *service.MemoryService) *ExtractSweepJob {
	return &ExtractSweepJob{memories: memories}
}

func (j *ExtractSweepJob) Name() string {
	return "extract_sweep"
}

func (j *ExtractSweepJob) Run(ctx context.Context) error {
	if j.memories == nil {
		return nil
	}
	count, err := j.memories.ExtractPending(ctx)
	if count > 0 {
		logutil.GetLogger(ctx).Info("sweep extracted memories", zap.Int("new_memories", count))
	}
	return err
}

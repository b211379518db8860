package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/extract"
	"github.com/xxxsen/mrecall/internal/model"
)

// SessionSource is the read side of the transcript store.
type SessionSource interface {
	Get(ctx context.Context, sessionID string) (*model.Session, error)
	GetMessagesAfter(ctx context.Context, sessionID string, afterSeq int64) ([]model.Message, int64, error)
	ListPending(ctx context.Context, limit int) ([]model.Session, error)
	MarkExtracted(ctx context.Context, sessionID string, seq int64) error
}

// MemoryWriter is the write side of the memory store.
type MemoryWriter interface {
	Insert(ctx context.Context, mem *model.Memory) error
}

// Extractor turns one chunk into candidates; failures degrade to empty.
type Extractor interface {
	ExtractChunk(ctx context.Context, chunk model.ConversationChunk) []model.MemoryCandidate
}

type MemoryService struct {
	sessions     SessionSource
	memories     MemoryWriter
	extractor    Extractor
	embedder     embed.IEmbedder
	maxChunkSize int
	concurrency  int

	// Writes are serialized per store instance. IDs are client-generated
	// UUIDs, so serialization is about write ordering, not collisions.
	writeMu sync.Mutex
}

func NewMemoryService(sessions SessionSource, memories MemoryWriter, extractor Extractor, embedder embed.IEmbedder, maxChunkSize, concurrency int) *MemoryService {
	if maxChunkSize <= 0 {
		maxChunkSize = 15
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	return &MemoryService{
		sessions:     sessions,
		memories:     memories,
		extractor:    extractor,
		embedder:     embedder,
		maxChunkSize: maxChunkSize,
		concurrency:  concurrency,
	}
}

// ExtractSession distills everything past the session's extraction cursor and
// returns the number of memories persisted. Cancellation is honored between
// chunks only, so a stop request costs at most one chunk of latency.
func (s *MemoryService) ExtractSession(ctx context.Context, sessionID string) (int, error) {
	sess, err := s.sessions.Get(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return s.extractAfter(ctx, sessionID, sess.ExtractedSeq)
}

func (s *MemoryService) extractAfter(ctx context.Context, sessionID string, afterSeq int64) (int, error) {
	logger := logutil.GetLogger(ctx).With(zap.String("session_id", sessionID))
	msgs, lastSeq, err := s.sessions.GetMessagesAfter(ctx, sessionID, afterSeq)
	if err != nil {
		return 0, err
	}
	if len(msgs) == 0 {
		logger.Debug("no new messages to extract")
		return 0, nil
	}
	chunks, err := extract.Chunk(sessionID, msgs, s.maxChunkSize)
	if err != nil {
		return 0, err
	}

	stored := 0
	for _, chunk := range chunks {
		if err := ctx.Err(); err != nil {
			return stored, err
		}
		n, err := s.processChunk(ctx, chunk)
		if err != nil {
			return stored, err
		}
		stored += n
	}
	if err := s.sessions.MarkExtracted(ctx, sessionID, lastSeq); err != nil {
		logger.Warn("failed to advance extraction cursor", zap.Error(err))
	}
	logger.Info("session extracted",
		zap.Int("chunks", len(chunks)),
		zap.Int("new_memories", stored),
	)
	return stored, nil
}

func (s *MemoryService) processChunk(ctx context.Context, chunk model.ConversationChunk) (int, error) {
	cands := s.extractor.ExtractChunk(ctx, chunk)
	if len(cands) == 0 {
		return 0, nil
	}
	texts := make([]string, 0, len(cands))
	for _, cand := range cands {
		texts = append(texts, cand.Title+"\n"+cand.Content)
	}
	vecs, err := s.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return 0, err
	}

	now := time.Now().UnixMilli()
	memories := make([]*model.Memory, 0, len(cands))
	for i, cand := range cands {
		memories = append(memories, &model.Memory{
			ID:              uuid.NewString(),
			Type:            cand.Type,
			Category:        cand.Category,
			Title:           cand.Title,
			Content:         cand.Content,
			SourceChunkRef:  cand.SourceChunkRef,
			RelatedEntities: cand.RelatedEntities,
			ConfidenceScore: extract.Score(cand.RawConfidence, cand.Type, cand.Content),
			Reasoning:       cand.Reasoning,
			Evidence:        cand.Evidence,
			Embedding:       vecs[i],
			Ctime:           now,
		})
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	stored := 0
	for _, mem := range memories {
		if err := s.memories.Insert(ctx, mem); err != nil {
			return stored, err
		}
		stored++
	}
	return stored, nil
}

// ExtractPending sweeps every session with unextracted messages. Independent
// sessions run in parallel; there is no shared mutable state between them and
// the store writes stay serialized behind writeMu.
func (s *MemoryService) ExtractPending(ctx context.Context) (int, error) {
	sessions, err := s.sessions.ListPending(ctx, 1000)
	if err != nil {
		return 0, err
	}
	if len(sessions) == 0 {
		return 0, nil
	}

	var total atomic.Int64
	grp, grpCtx := errgroup.WithContext(ctx)
	grp.SetLimit(s.concurrency)
	for _, sess := range sessions {
		grp.Go(func() error {
			n, err := s.extractAfter(grpCtx, sess.ID, sess.ExtractedSeq)
			total.Add(int64(n))
			return err
		})
	}
	if err := grp.Wait(); err != nil {
		return int(total.Load()), err
	}
	return int(total.Load()), nil
}

package service

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/extract"
	"github.com/xxxsen/mrecall/internal/model"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

type fakeSessionSource struct {
	mu        sync.Mutex
	sessions  map[string]*model.Session
	messages  map[string][]model.Message
	extracted map[string]int64
}

func newFakeSessionSource() *fakeSessionSource {
	return &fakeSessionSource{
		sessions:  map[string]*model.Session{},
		messages:  map[string][]model.Message{},
		extracted: map[string]int64{},
	}
}

func (f *fakeSessionSource) addSession(id string, msgs []model.Message, extractedSeq int64) {
	f.sessions[id] = &model.Session{ID: id, LastSeq: int64(len(msgs)), ExtractedSeq: extractedSeq}
	f.messages[id] = msgs
}

func (f *fakeSessionSource) Get(ctx context.Context, sessionID string) (*model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, appErr.ErrNotFound
	}
	copied := *sess
	return &copied, nil
}

func (f *fakeSessionSource) GetMessagesAfter(ctx context.Context, sessionID string, afterSeq int64) ([]model.Message, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := f.messages[sessionID]
	if afterSeq >= int64(len(msgs)) {
		return nil, afterSeq, nil
	}
	return msgs[afterSeq:], int64(len(msgs)), nil
}

func (f *fakeSessionSource) ListPending(ctx context.Context, limit int) ([]model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pending []model.Session
	for _, sess := range f.sessions {
		if sess.LastSeq > sess.ExtractedSeq {
			pending = append(pending, *sess)
		}
	}
	return pending, nil
}

func (f *fakeSessionSource) MarkExtracted(ctx context.Context, sessionID string, seq int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.extracted[sessionID] = seq
	if sess, ok := f.sessions[sessionID]; ok && seq > sess.ExtractedSeq {
		sess.ExtractedSeq = seq
	}
	return nil
}

type fakeMemoryWriter struct {
	mu       sync.Mutex
	inserted []*model.Memory
}

func (f *fakeMemoryWriter) Insert(ctx context.Context, mem *model.Memory) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, mem)
	return nil
}

type fakeExtractor struct {
	perChunk int
}

func (f *fakeExtractor) ExtractChunk(ctx context.Context, chunk model.ConversationChunk) []model.MemoryCandidate {
	cands := make([]model.MemoryCandidate, 0, f.perChunk)
	for i := 0; i < f.perChunk; i++ {
		cands = append(cands, model.MemoryCandidate{
			Type:           model.MemoryTypeDecision,
			Category:       "testing",
			Title:          fmt.Sprintf("title %s/%d/%d", chunk.SessionID, chunk.ChunkIndex, i),
			Content:        "we must ship this",
			SourceChunkRef: fmt.Sprintf("%s#%d", chunk.SessionID, chunk.ChunkIndex),
			RawConfidence:  80,
		})
	}
	return cands
}

func sessionMessages(n int) []model.Message {
	msgs := make([]model.Message, 0, n)
	for i := 0; i < n; i++ {
		msgs = append(msgs, model.Message{Role: "user", Content: fmt.Sprintf("msg %d", i)})
	}
	return msgs
}

func TestExtractSessionStoresMemories(t *testing.T) {
	sessions := newFakeSessionSource()
	sessions.addSession("sess-1", sessionMessages(16), 0)
	writer := &fakeMemoryWriter{}
	embedder := embed.NewService(nil, "mock", 8, true)
	svc := NewMemoryService(sessions, writer, &fakeExtractor{perChunk: 2}, embedder, 15, 4)

	count, err := svc.ExtractSession(context.Background(), "sess-1")
	require.NoError(t, err)
	// 16 messages split into 2 chunks, 2 candidates each.
	require.Equal(t, 4, count)
	require.Len(t, writer.inserted, 4)

	for _, mem := range writer.inserted {
		require.NotEmpty(t, mem.ID)
		require.Equal(t, model.MemoryTypeDecision, mem.Type)
		require.Equal(t, model.VectorModeMock, mem.Embedding.Mode)
		require.Len(t, mem.Embedding.Values, 8)
		require.NotZero(t, mem.Ctime)
		// base 0.80 + type boost 0.15 + strong bonus 0.10
		require.InDelta(t, extract.Score(80, model.MemoryTypeDecision, "we must ship this"), mem.ConfidenceScore, 1e-9)
	}
	require.Equal(t, int64(16), sessions.extracted["sess-1"])
}

func TestExtractSessionRespectsCursor(t *testing.T) {
	sessions := newFakeSessionSource()
	sessions.addSession("sess-1", sessionMessages(10), 8)
	writer := &fakeMemoryWriter{}
	embedder := embed.NewService(nil, "mock", 8, true)
	svc := NewMemoryService(sessions, writer, &fakeExtractor{perChunk: 1}, embedder, 15, 4)

	count, err := svc.ExtractSession(context.Background(), "sess-1")
	require.NoError(t, err)
	// Only the 2 messages past the cursor form a single chunk.
	require.Equal(t, 1, count)
	require.Equal(t, int64(10), sessions.extracted["sess-1"])
}

func TestExtractSessionNothingNew(t *testing.T) {
	sessions := newFakeSessionSource()
	sessions.addSession("sess-1", sessionMessages(5), 5)
	writer := &fakeMemoryWriter{}
	embedder := embed.NewService(nil, "mock", 8, true)
	svc := NewMemoryService(sessions, writer, &fakeExtractor{perChunk: 1}, embedder, 15, 4)

	count, err := svc.ExtractSession(context.Background(), "sess-1")
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, writer.inserted)
}

func TestExtractSessionUnknownSession(t *testing.T) {
	sessions := newFakeSessionSource()
	embedder := embed.NewService(nil, "mock", 8, true)
	svc := NewMemoryService(sessions, &fakeMemoryWriter{}, &fakeExtractor{perChunk: 1}, embedder, 15, 4)

	_, err := svc.ExtractSession(context.Background(), "missing")
	require.ErrorIs(t, err, appErr.ErrNotFound)
}

func TestExtractSessionHonorsCancellation(t *testing.T) {
	sessions := newFakeSessionSource()
	sessions.addSession("sess-1", sessionMessages(30), 0)
	writer := &fakeMemoryWriter{}
	embedder := embed.NewService(nil, "mock", 8, true)
	svc := NewMemoryService(sessions, writer, &fakeExtractor{perChunk: 1}, embedder, 15, 4)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := svc.ExtractSession(ctx, "sess-1")
	require.ErrorIs(t, err, context.Canceled)
	require.Zero(t, count)
	require.Empty(t, writer.inserted)
	// The cursor never advances past work that did not happen.
	require.Zero(t, sessions.extracted["sess-1"])
}

func TestExtractPendingSweepsAllSessions(t *testing.T) {
	sessions := newFakeSessionSource()
	sessions.addSession("sess-1", sessionMessages(4), 0)
	sessions.addSession("sess-2", sessionMessages(7), 0)
	sessions.addSession("sess-3", sessionMessages(5), 5)
	writer := &fakeMemoryWriter{}
	embedder := embed.NewService(nil, "mock", 8, true)
	svc := NewMemoryService(sessions, writer, &fakeExtractor{perChunk: 3}, embedder, 15, 4)

	total, err := svc.ExtractPending(context.Background())
	require.NoError(t, err)
	// Two pending sessions, one chunk each, three candidates per chunk.
	require.Equal(t, 6, total)
	require.Equal(t, int64(4), sessions.extracted["sess-1"])
	require.Equal(t, int64(7), sessions.extracted["sess-2"])
	_, ok := sessions.extracted["sess-3"]
	require.False(t, ok, "fully extracted session must be skipped")

	// A second sweep finds nothing.
	total, err = svc.ExtractPending(context.Background())
	require.NoError(t, err)
	require.Zero(t, total)
}

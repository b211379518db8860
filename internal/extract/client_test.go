package extract

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mrecall/internal/model"
)

type fakeProvider struct {
	name      string
	available bool
	response  string
	err       error
	calls     int
}

func (p *fakeProvider) Name() string {
	return p.name
}

func (p *fakeProvider) Available(ctx context.Context) bool {
	return p.available
}

func (p *fakeProvider) Send(ctx context.Context, systemPrompt string, userPrompt string) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.response, nil
}

func testChunk() model.ConversationChunk {
	return model.ConversationChunk{
		SessionID:  "sess-1",
		ChunkIndex: 0,
		Messages: []model.Message{
			{Role: "user", Content: "use spaces, never tabs"},
		},
	}
}

const validResponse = `[
	{"type": "workflow_note", "category": "style", "title": "Indentation",
	 "content": "User always wants spaces", "related_entities": ["gofmt"],
	 "confidence": 80, "reasoning": "stated directly", "evidence": "never tabs"}
]`

func TestExtractChunkFallbackToSecondProvider(t *testing.T) {
	cli := &fakeProvider{name: "cli", available: true, err: errors.New("agent timed out")}
	api := &fakeProvider{name: "openai", available: true, response: validResponse}
	client := NewClient([]IProvider{cli, api}, time.Second)

	cands := client.ExtractChunk(context.Background(), testChunk())
	require.Len(t, cands, 1)
	require.Equal(t, model.MemoryTypeWorkflowNote, cands[0].Type)
	require.Equal(t, "sess-1#0", cands[0].SourceChunkRef)
	require.Equal(t, 1, cli.calls)
	require.Equal(t, 1, api.calls)
}

func TestExtractChunkSkipsUnavailableProvider(t *testing.T) {
	cli := &fakeProvider{name: "cli", available: false, response: validResponse}
	api := &fakeProvider{name: "openai", available: true, response: validResponse}
	client := NewClient([]IProvider{cli, api}, time.Second)

	cands := client.ExtractChunk(context.Background(), testChunk())
	require.Len(t, cands, 1)
	require.Equal(t, 0, cli.calls, "unavailable provider must not be called")
	require.Equal(t, 1, api.calls)
}

func TestExtractChunkNoProvider(t *testing.T) {
	client := NewClient([]IProvider{
		&fakeProvider{name: "cli", available: false},
		&fakeProvider{name: "openai", available: false},
	}, time.Second)

	cands := client.ExtractChunk(context.Background(), testChunk())
	require.Empty(t, cands)
}

func TestExtractChunkTopLevelParseFailureTriggersFallback(t *testing.T) {
	cli := &fakeProvider{name: "cli", available: true, response: "I could not find any memories."}
	api := &fakeProvider{name: "openai", available: true, response: validResponse}
	client := NewClient([]IProvider{cli, api}, time.Second)

	cands := client.ExtractChunk(context.Background(), testChunk())
	require.Len(t, cands, 1)
	require.Equal(t, 1, cli.calls)
	require.Equal(t, 1, api.calls)
}

func TestExtractChunkFirstProviderWins(t *testing.T) {
	cli := &fakeProvider{name: "cli", available: true, response: validResponse}
	api := &fakeProvider{name: "openai", available: true, response: validResponse}
	client := NewClient([]IProvider{cli, api}, time.Second)

	cands := client.ExtractChunk(context.Background(), testChunk())
	require.Len(t, cands, 1)
	require.Equal(t, 1, cli.calls)
	require.Equal(t, 0, api.calls, "exactly one provider succeeds per chunk")
}

func TestParseCandidatesFencedArray(t *testing.T) {
	raw := "```json\n" + validResponse + "\n```"
	cands, err := parseCandidates(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, cands, 1)
}

func TestParseCandidatesDropsInvalidItems(t *testing.T) {
	raw := `[
		{"type": "workflow_note", "title": "ok", "content": "keep me", "confidence": 70},
		{"type": "not_a_type", "title": "bad type", "content": "drop me", "confidence": 70},
		{"type": "decision", "title": "", "content": "missing title", "confidence": 70},
		{"type": "decision", "title": "no content", "content": "", "confidence": 70},
		{"type": "insight", "title": "clamped", "content": "keep me too", "confidence": 200}
	]`
	cands, err := parseCandidates(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, cands, 2)
	require.Equal(t, "ok", cands[0].Title)
	require.Equal(t, 100, cands[1].RawConfidence)
}

func TestParseCandidatesEmptyArray(t *testing.T) {
	cands, err := parseCandidates(context.Background(), "[]")
	require.NoError(t, err)
	require.Empty(t, cands)
}

func TestParseCandidatesNotAnArray(t *testing.T) {
	_, err := parseCandidates(context.Background(), `{"type": "decision"}`)
	require.Error(t, err)
}

func TestSystemPromptCoversAllTypes(t *testing.T) {
	for _, typ := range model.MemoryTypes {
		require.True(t, strings.Contains(systemPrompt, string(typ)), "prompt missing type %s", typ)
	}
	require.Contains(t, systemPrompt, "JSON array")
}

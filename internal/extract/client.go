package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/model"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

type Client struct {
	providers []IProvider
	timeout   time.Duration
}

func NewClient(providers []IProvider, timeout time.Duration) *Client {
	return &Client{providers: providers, timeout: timeout}
}

// ExtractChunk runs the provider chain for one chunk. It never returns an
// error: every failure mode degrades to an empty slice, and the outcome is
// logged with chosen_method/chunk_id/success/memory_count so that "nothing
// extracted" and "extraction failed" can be told apart from the logs.
func (c *Client) ExtractChunk(ctx context.Context, chunk model.ConversationChunk) []model.MemoryCandidate {
	ref := ChunkRef(chunk)
	logger := logutil.GetLogger(ctx).With(zap.String("chunk_id", ref))
	userPrompt := BuildUserPrompt(chunk)

	for _, p := range c.providers {
		if p == nil {
			continue
		}
		if !p.Available(ctx) {
			logger.Debug("extract provider unavailable", zap.String("provider", p.Name()))
			continue
		}
		raw, err := c.send(ctx, p, userPrompt)
		if err != nil {
			logger.Warn("extract provider failed",
				zap.String("chosen_method", p.Name()),
				zap.Bool("success", false),
				zap.Int("memory_count", 0),
				zap.Error(err),
			)
			continue
		}
		cands, err := parseCandidates(ctx, raw)
		if err != nil {
			// Top-level parse failure counts as a provider failure.
			logger.Warn("extract response unparsable",
				zap.String("chosen_method", p.Name()),
				zap.Bool("success", false),
				zap.Int("memory_count", 0),
				zap.Error(err),
			)
			continue
		}
		for i := range cands {
			cands[i].SourceChunkRef = ref
		}
		logger.Info("chunk extracted",
			zap.String("chosen_method", p.Name()),
			zap.Bool("success", true),
			zap.Int("memory_count", len(cands)),
		)
		return cands
	}

	logger.Warn("no extract provider usable",
		zap.String("chosen_method", "none"),
		zap.String("reason", "no_provider"),
		zap.Bool("success", false),
		zap.Int("memory_count", 0),
	)
	return nil
}

func (c *Client) send(ctx context.Context, p IProvider, userPrompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return p.Send(ctx, systemPrompt, userPrompt)
}

// parseCandidates expects a JSON array at the top level; anything else is a
// provider failure. Items that fail their own validation are dropped without
// aborting the rest of the array.
func parseCandidates(ctx context.Context, raw string) ([]model.MemoryCandidate, error) {
	clean := stripFences(raw)
	start := strings.Index(clean, "[")
	end := strings.LastIndex(clean, "]")
	if start < 0 || end <= start {
		return nil, fmt.Errorf("%w: no JSON array in response", appErr.ErrParse)
	}
	clean = clean[start : end+1]

	var items []json.RawMessage
	if err := json.Unmarshal([]byte(clean), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrParse, err)
	}

	logger := logutil.GetLogger(ctx)
	cands := make([]model.MemoryCandidate, 0, len(items))
	for i, item := range items {
		var cand model.MemoryCandidate
		if err := json.Unmarshal(item, &cand); err != nil {
			logger.Debug("candidate dropped: bad json", zap.Int("index", i), zap.Error(err))
			continue
		}
		if err := validateCandidate(&cand); err != nil {
			logger.Debug("candidate dropped: invalid", zap.Int("index", i), zap.Error(err))
			continue
		}
		cands = append(cands, cand)
	}
	return cands, nil
}

func validateCandidate(cand *model.MemoryCandidate) error {
	if !cand.Type.Valid() {
		return fmt.Errorf("%w: unknown memory type %q", appErr.ErrValidation, cand.Type)
	}
	if strings.TrimSpace(cand.Title) == "" {
		return fmt.Errorf("%w: missing title", appErr.ErrValidation)
	}
	if strings.TrimSpace(cand.Content) == "" {
		return fmt.Errorf("%w: missing content", appErr.ErrValidation)
	}
	if cand.RawConfidence < 0 {
		cand.RawConfidence = 0
	}
	if cand.RawConfidence > 100 {
		cand.RawConfidence = 100
	}
	return nil
}

func stripFences(raw string) string {
	clean := strings.TrimSpace(raw)
	clean = strings.TrimPrefix(clean, "```json")
	clean = strings.TrimPrefix(clean, "```")
	clean = strings.TrimSuffix(clean, "```")
	return strings.TrimSpace(clean)
}

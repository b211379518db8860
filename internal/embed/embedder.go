package embed

import (
	"context"

	"github.com/xxxsen/mrecall/internal/model"
)

// IEmbedder produces fixed-dimension vectors. Implementations must tag every
// vector with how it was produced so callers can tell when semantic quality
// is degraded.
type IEmbedder interface {
	Embed(ctx context.Context, text string) (model.Vector, error)
	// EmbedBatch preserves input order. Fallback policy is per item: one text
	// failing in real mode drops only that item to mock mode.
	EmbedBatch(ctx context.Context, texts []string) ([]model.Vector, error)
	Status(ctx context.Context) model.EmbeddingStatus
	Dimension() int
	ModelName() string
}

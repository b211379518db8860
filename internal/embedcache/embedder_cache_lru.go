package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/model"
)

// WrapLruCacheToEmbedder memoizes single-text embeddings. Cached vectors keep
// their mode tag, so a mock vector cached during an outage stays visibly mock
// until the TTL expires or the backfill job replaces the persisted copy.
func WrapLruCacheToEmbedder(e embed.IEmbedder, size int, ttl time.Duration) embed.IEmbedder {
	if e == nil || size <= 0 || ttl <= 0 {
		return e
	}
	return &lruEmbedder{
		next:  e,
		cache: expirable.NewLRU[string, model.Vector](size, nil, ttl),
	}
}

type lruEmbedder struct {
	next  embed.IEmbedder
	cache *expirable.LRU[string, model.Vector]
}

func (l *lruEmbedder) Embed(ctx context.Context, text string) (model.Vector, error) {
	key := buildCacheKey(l.next.ModelName(), text)
	if cached, ok := l.cache.Get(key); ok {
		logutil.GetLogger(ctx).Debug("embedding cache hit", zap.String("mode", string(cached.Mode)))
		return cloneVector(cached), nil
	}
	vec, err := l.next.Embed(ctx, text)
	if err != nil {
		return model.Vector{}, err
	}
	l.cache.Add(key, cloneVector(vec))
	return vec, nil
}

func (l *lruEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]model.Vector, error) {
	vecs := make([]model.Vector, 0, len(texts))
	for _, text := range texts {
		vec, err := l.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

func (l *lruEmbedder) Status(ctx context.Context) model.EmbeddingStatus {
	return l.next.Status(ctx)
}

func (l *lruEmbedder) Dimension() int {
	return l.next.Dimension()
}

func (l *lruEmbedder) ModelName() string {
	return l.next.ModelName()
}

func buildCacheKey(modelName, text string) string {
	hash := sha256.Sum256([]byte(text))
	return "embed:" + modelName + ":" + hex.EncodeToString(hash[:])
}

func cloneVector(vec model.Vector) model.Vector {
	if len(vec.Values) == 0 {
		return vec
	}
	values := make([]float32, len(vec.Values))
	copy(values, vec.Values)
	return model.Vector{Values: values, Mode: vec.Mode}
}

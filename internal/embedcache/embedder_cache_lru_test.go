package embedcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/model"
)

type countingEmbedder struct {
	inner *embed.Service
	calls int
}

func newCountingEmbedder(dimension int) *countingEmbedder {
	return &countingEmbedder{inner: embed.NewService(nil, "mock", dimension, true)}
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) (model.Vector, error) {
	c.calls++
	return c.inner.Embed(ctx, text)
}

func (c *countingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([]model.Vector, error) {
	vecs := make([]model.Vector, 0, len(texts))
	for _, text := range texts {
		vec, err := c.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

func (c *countingEmbedder) Status(ctx context.Context) model.EmbeddingStatus {
	return c.inner.Status(ctx)
}

func (c *countingEmbedder) Dimension() int {
	return c.inner.Dimension()
}

func (c *countingEmbedder) ModelName() string {
	return c.inner.ModelName()
}

func TestLruEmbedderCachesRepeatedText(t *testing.T) {
	next := newCountingEmbedder(8)
	cached := WrapLruCacheToEmbedder(next, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "same text")
	require.NoError(t, err)
	second, err := cached.Embed(context.Background(), "same text")
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, 1, next.calls)

	_, err = cached.Embed(context.Background(), "other text")
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestLruEmbedderBatchUsesCache(t *testing.T) {
	next := newCountingEmbedder(8)
	cached := WrapLruCacheToEmbedder(next, 16, time.Minute)

	_, err := cached.EmbedBatch(context.Background(), []string{"a", "b", "a"})
	require.NoError(t, err)
	require.Equal(t, 2, next.calls)
}

func TestLruEmbedderReturnsCopies(t *testing.T) {
	next := newCountingEmbedder(8)
	cached := WrapLruCacheToEmbedder(next, 16, time.Minute)

	first, err := cached.Embed(context.Background(), "mutate me")
	require.NoError(t, err)
	first.Values[0] = 999

	second, err := cached.Embed(context.Background(), "mutate me")
	require.NoError(t, err)
	require.NotEqual(t, float32(999), second.Values[0])
}

func TestWrapLruCacheDisabled(t *testing.T) {
	next := newCountingEmbedder(8)
	require.Equal(t, embed.IEmbedder(next), WrapLruCacheToEmbedder(next, 0, time.Minute))
	require.Equal(t, embed.IEmbedder(next), WrapLruCacheToEmbedder(next, 16, 0))
	require.Nil(t, WrapLruCacheToEmbedder(nil, 16, time.Minute))
}

func TestLruEmbedderDelegatesMetadata(t *testing.T) {
	next := newCountingEmbedder(8)
	cached := WrapLruCacheToEmbedder(next, 16, time.Minute)

	require.Equal(t, 8, cached.Dimension())
	require.Equal(t, "mock", cached.ModelName())
	require.Equal(t, model.VectorModeMock, cached.Status(context.Background()).Mode)
}

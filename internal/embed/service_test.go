package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/mrecall/internal/model"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

func fakeEmbeddingServer(t *testing.T, dimension int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/embeddings", func(w http.ResponseWriter, r *http.Request) {
		var req localEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		vec := make([]float32, dimension)
		for i := range vec {
			vec[i] = float32(i+len(req.Prompt)) * 0.01
		}
		_ = json.NewEncoder(w).Encode(localEmbedResponse{Embedding: vec})
	})
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return httptest.NewServer(mux)
}

func TestServiceRealPath(t *testing.T) {
	srv := fakeEmbeddingServer(t, 8)
	defer srv.Close()

	endpoint := NewLocalEndpoint(srv.URL, "test-model", 8, time.Second)
	svc := NewService(endpoint, "test-model", 8, false)

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, model.VectorModeReal, vec.Mode)
	require.Len(t, vec.Values, 8)

	status := svc.Status(context.Background())
	require.Equal(t, model.VectorModeReal, status.Mode)
	require.True(t, status.Reachable)
	require.Equal(t, 8, status.Dimension)
	require.Equal(t, "test-model", svc.ModelName())
}

func TestServiceDimensionMismatchIsHardError(t *testing.T) {
	srv := fakeEmbeddingServer(t, 8)
	defer srv.Close()

	// The service expects 16 but the endpoint returns 8.
	endpoint := NewLocalEndpoint(srv.URL, "test-model", 16, time.Second)
	svc := NewService(endpoint, "test-model", 16, false)

	_, err := svc.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)

	_, err = svc.EmbedBatch(context.Background(), []string{"a", "b"})
	require.ErrorIs(t, err, appErr.ErrDimensionMismatch)
}

func TestServiceUnreachableFallsBackToMock(t *testing.T) {
	endpoint := NewLocalEndpoint("http://127.0.0.1:1", "test-model", 8, 200*time.Millisecond)
	svc := NewService(endpoint, "test-model", 8, false)

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, model.VectorModeMock, vec.Mode)
	require.Len(t, vec.Values, 8)

	status := svc.Status(context.Background())
	require.Equal(t, model.VectorModeMock, status.Mode)
	require.False(t, status.Reachable)
}

func TestServiceForceMock(t *testing.T) {
	srv := fakeEmbeddingServer(t, 8)
	defer srv.Close()

	endpoint := NewLocalEndpoint(srv.URL, "test-model", 8, time.Second)
	svc := NewService(endpoint, "test-model", 8, true)

	vec, err := svc.Embed(context.Background(), "hello")
	require.NoError(t, err)
	require.Equal(t, model.VectorModeMock, vec.Mode)
	require.Equal(t, "mock", svc.ModelName())

	status := svc.Status(context.Background())
	require.Equal(t, model.VectorModeMock, status.Mode)
	require.False(t, status.Reachable)
}

func TestServiceEmbedBatchPreservesOrder(t *testing.T) {
	svc := NewService(nil, "mock", 8, true)

	texts := []string{"alpha", "beta", "gamma"}
	vecs, err := svc.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vecs, len(texts))
	for i, text := range texts {
		single, err := svc.Embed(context.Background(), text)
		require.NoError(t, err)
		require.Equal(t, single, vecs[i])
	}
}

func TestLocalEndpointServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	endpoint := NewLocalEndpoint(srv.URL, "test-model", 8, time.Second)
	_, err := endpoint.Embed(context.Background(), "hello")
	require.ErrorIs(t, err, appErr.ErrEmbeddingUnavailable)
}

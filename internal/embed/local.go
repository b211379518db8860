package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

// LocalEndpoint talks to an Ollama-compatible embedding model over loopback.
type LocalEndpoint struct {
	endpoint  string
	model     string
	dimension int
	client    *http.Client
}

type localEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type localEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

func NewLocalEndpoint(endpoint, model string, dimension int, timeout time.Duration) *LocalEndpoint {
	return &LocalEndpoint{
		endpoint:  strings.TrimRight(endpoint, "/"),
		model:     model,
		dimension: dimension,
		client:    &http.Client{Timeout: timeout},
	}
}

func (l *LocalEndpoint) Embed(ctx context.Context, text string) ([]float32, error) {
	reqBody := localEmbedRequest{Model: l.model, Prompt: text}
	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint+"/api/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("%w: %s: %s", appErr.ErrEmbeddingUnavailable, resp.Status, strings.TrimSpace(string(body)))
	}
	var out localEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %v", appErr.ErrEmbeddingUnavailable, err)
	}
	// A wrong dimension is a broken integration, never something to pad or
	// truncate around.
	if len(out.Embedding) != l.dimension {
		return nil, fmt.Errorf("%w: got %d, want %d", appErr.ErrDimensionMismatch, len(out.Embedding), l.dimension)
	}
	return out.Embedding, nil
}

// Reachable probes the endpoint with a short deadline.
func (l *LocalEndpoint) Reachable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, l.endpoint+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

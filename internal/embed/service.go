package embed

import (
	"context"
	"errors"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/model"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

// Service is the real-first embedder: it tries the local endpoint and drops
// to the deterministic mock when the endpoint is unreachable or disabled.
// A dimension mismatch from the real endpoint is NOT papered over with a mock
// vector; it surfaces as an error because the deployment is misconfigured.
type Service struct {
	real      *LocalEndpoint
	mock      *MockEmbedder
	modelName string
	forceMock bool
}

func NewService(real *LocalEndpoint, modelName string, dimension int, forceMock bool) *Service {
	return &Service{
		real:      real,
		mock:      NewMockEmbedder(dimension),
		modelName: modelName,
		forceMock: forceMock,
	}
}

func (s *Service) Embed(ctx context.Context, text string) (model.Vector, error) {
	if s.forceMock || s.real == nil {
		return model.Vector{Values: s.mock.Embed(text), Mode: model.VectorModeMock}, nil
	}
	values, err := s.real.Embed(ctx, text)
	if err == nil {
		return model.Vector{Values: values, Mode: model.VectorModeReal}, nil
	}
	if errors.Is(err, appErr.ErrDimensionMismatch) {
		return model.Vector{}, err
	}
	logutil.GetLogger(ctx).Warn("embedding endpoint unreachable, using mock vector", zap.Error(err))
	return model.Vector{Values: s.mock.Embed(text), Mode: model.VectorModeMock}, nil
}

func (s *Service) EmbedBatch(ctx context.Context, texts []string) ([]model.Vector, error) {
	vecs := make([]model.Vector, 0, len(texts))
	for _, text := range texts {
		vec, err := s.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		vecs = append(vecs, vec)
	}
	return vecs, nil
}

func (s *Service) Status(ctx context.Context) model.EmbeddingStatus {
	status := model.EmbeddingStatus{
		Mode:      model.VectorModeMock,
		Dimension: s.mock.Dimension(),
	}
	if s.forceMock || s.real == nil {
		return status
	}
	if s.real.Reachable(ctx) {
		status.Mode = model.VectorModeReal
		status.Reachable = true
	}
	return status
}

func (s *Service) Dimension() int {
	return s.mock.Dimension()
}

func (s *Service) ModelName() string {
	if s.forceMock || s.real == nil {
		return "mock"
	}
	return s.modelName
}

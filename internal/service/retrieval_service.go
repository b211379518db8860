package service

import (
	"context"
	"math"
	"sort"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/xxxsen/mrecall/internal/embed"
	"github.com/xxxsen/mrecall/internal/model"
	appErr "github.com/xxxsen/mrecall/internal/pkg/errors"
)

// MemoryIndex is what dual retrieval needs from the store: a literal scan
// over entities/title/content and a bulk vector enumeration.
type MemoryIndex interface {
	ScanEntity(ctx context.Context, terms []string, queryText string) ([]string, error)
	ListVectors(ctx context.Context) ([]model.MemoryVector, error)
}

type RetrievalService struct {
	memories         MemoryIndex
	embedder         embed.IEmbedder
	defaultThreshold float64
	defaultTopK      int
}

func NewRetrievalService(memories MemoryIndex, embedder embed.IEmbedder, defaultThreshold float64, defaultTopK int) *RetrievalService {
	return &RetrievalService{
		memories:         memories,
		embedder:         embedder,
		defaultThreshold: defaultThreshold,
		defaultTopK:      defaultTopK,
	}
}

// Retrieve merges literal entity matches with vector-semantic matches.
// Entity hits form one flat tier at rank 1.0; semantic hits rank at their
// similarity; a memory found by both ranks at 1.0+similarity so it always
// tops both tiers. Against an empty store it returns an empty list.
func (s *RetrievalService) Retrieve(ctx context.Context, query model.RetrievalQuery) ([]model.RetrievalResult, error) {
	if query.Threshold == 0 {
		query.Threshold = s.defaultThreshold
	}
	if query.Threshold < 0 || query.Threshold > 1 {
		return nil, appErr.ErrInvalid
	}
	if query.TopK == 0 {
		query.TopK = s.defaultTopK
	}
	if query.TopK < 0 {
		return nil, appErr.ErrInvalid
	}
	logger := logutil.GetLogger(ctx).With(zap.String("query", query.Text))

	entityIDs, err := s.memories.ScanEntity(ctx, query.EntityFilters, query.Text)
	if err != nil {
		return nil, err
	}
	entitySet := make(map[string]struct{}, len(entityIDs))
	for _, id := range entityIDs {
		entitySet[id] = struct{}{}
	}

	vectors, err := s.memories.ListVectors(ctx)
	if err != nil {
		return nil, err
	}
	ctimes := make(map[string]int64, len(vectors))
	for _, item := range vectors {
		ctimes[item.ID] = item.Ctime
	}

	semantic := map[string]float64{}
	if query.Text != "" && len(vectors) > 0 {
		queryVec, err := s.embedder.Embed(ctx, query.Text)
		if err != nil {
			// Embedding must never block retrieval; fall back to the
			// entity tier alone.
			logger.Warn("query embedding failed, entity matches only", zap.Error(err))
		} else {
			// No truncation yet: a hit past topK in the pure-semantic order
			// may still merge with an entity hit and outrank everything.
			for _, hit := range rankBySimilarity(queryVec.Values, vectors, query.Threshold, 0) {
				semantic[hit.ID] = hit.Similarity
			}
		}
	}

	results := make([]model.RetrievalResult, 0, len(entitySet)+len(semantic))
	for id := range entitySet {
		if sim, ok := semantic[id]; ok {
			simCopy := sim
			results = append(results, model.RetrievalResult{
				MemoryID:     id,
				MatchType:    model.MatchTypeBoth,
				CombinedRank: 1.0 + sim,
				Similarity:   &simCopy,
			})
			continue
		}
		results = append(results, model.RetrievalResult{
			MemoryID:     id,
			MatchType:    model.MatchTypeEntity,
			CombinedRank: 1.0,
		})
	}
	for id, sim := range semantic {
		if _, ok := entitySet[id]; ok {
			continue
		}
		simCopy := sim
		results = append(results, model.RetrievalResult{
			MemoryID:     id,
			MatchType:    model.MatchTypeSemantic,
			CombinedRank: sim,
			Similarity:   &simCopy,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.CombinedRank != b.CombinedRank {
			return a.CombinedRank > b.CombinedRank
		}
		// Exact tie (a semantic similarity of exactly 1.0 against the flat
		// entity tier): entity confirmation wins.
		if pa, pb := matchPriority(a.MatchType), matchPriority(b.MatchType); pa != pb {
			return pa > pb
		}
		if ca, cb := ctimes[a.MemoryID], ctimes[b.MemoryID]; ca != cb {
			return ca > cb
		}
		return a.MemoryID < b.MemoryID
	})
	if len(results) > query.TopK {
		results = results[:query.TopK]
	}
	logger.Debug("retrieval done",
		zap.Int("entity_hits", len(entitySet)),
		zap.Int("semantic_hits", len(semantic)),
		zap.Int("results", len(results)),
	)
	return results, nil
}

func (s *RetrievalService) EmbeddingStatus(ctx context.Context) model.EmbeddingStatus {
	return s.embedder.Status(ctx)
}

func matchPriority(t model.MatchType) int {
	switch t {
	case model.MatchTypeBoth:
		return 2
	case model.MatchTypeEntity:
		return 1
	default:
		return 0
	}
}

type similarityHit struct {
	ID         string
	Similarity float64
	Ctime      int64
}

// rankBySimilarity filters to similarity >= threshold, sorts descending and
// truncates to topK. Equal similarity prefers the newer memory, then the
// smaller id, so the ordering is total.
func rankBySimilarity(query []float32, candidates []model.MemoryVector, threshold float64, topK int) []similarityHit {
	hits := make([]similarityHit, 0, len(candidates))
	for _, cand := range candidates {
		sim := cosineSimilarity(query, cand.Embedding)
		if sim >= threshold {
			hits = append(hits, similarityHit{ID: cand.ID, Similarity: sim, Ctime: cand.Ctime})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Similarity != hits[j].Similarity {
			return hits[i].Similarity > hits[j].Similarity
		}
		if hits[i].Ctime != hits[j].Ctime {
			return hits[i].Ctime > hits[j].Ctime
		}
		return hits[i].ID < hits[j].ID
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// cosineSimilarity is 0 on length mismatch or zero norm, never NaN.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

package model

type MatchType string

const (
	MatchTypeEntity   MatchType = "entity"
	MatchTypeSemantic MatchType = "semantic"
	MatchTypeBoth     MatchType = "both"
)

type RetrievalQuery struct {
	Text          string   `json:"text"`
	EntityFilters []string `json:"entity_filters"`
	Threshold     float64  `json:"threshold"`
	TopK          int      `json:"top_k"`
}

// RetrievalResult carries one ranked hit. Similarity is set for semantic and
// both matches only.
type RetrievalResult struct {
	MemoryID     string    `json:"memory_id"`
	MatchType    MatchType `json:"match_type"`
	CombinedRank float64   `json:"combined_rank"`
	Similarity   *float64  `json:"similarity,omitempty"`
}

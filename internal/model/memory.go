package model

type MemoryType string

const (
	MemoryTypeCorrection   MemoryType = "correction"
	MemoryTypeDecision     MemoryType = "decision"
	MemoryTypeCommitment   MemoryType = "commitment"
	MemoryTypeInsight      MemoryType = "insight"
	MemoryTypeLearning     MemoryType = "learning"
	MemoryTypeConfidence   MemoryType = "confidence"
	MemoryTypePatternSeed  MemoryType = "pattern_seed"
	MemoryTypeCrossAgent   MemoryType = "cross_agent"
	MemoryTypeWorkflowNote MemoryType = "workflow_note"
	MemoryTypeGap          MemoryType = "gap"
)

// MemoryTypes lists every type the extraction prompt asks for.
var MemoryTypes = []MemoryType{
	MemoryTypeCorrection,
	MemoryTypeDecision,
	MemoryTypeCommitment,
	MemoryTypeInsight,
	MemoryTypeLearning,
	MemoryTypeConfidence,
	MemoryTypePatternSeed,
	MemoryTypeCrossAgent,
	MemoryTypeWorkflowNote,
	MemoryTypeGap,
}

func (t MemoryType) Valid() bool {
	switch t {
	case MemoryTypeCorrection, MemoryTypeDecision, MemoryTypeCommitment,
		MemoryTypeInsight, MemoryTypeLearning, MemoryTypeConfidence,
		MemoryTypePatternSeed, MemoryTypeCrossAgent, MemoryTypeWorkflowNote,
		MemoryTypeGap:
		return true
	}
	return false
}

// MemoryCandidate is what a provider reports for one extracted fact.
// It only lives between extraction and scoring; Memory is the persisted form.
type MemoryCandidate struct {
	Type            MemoryType `json:"type"`
	Category        string     `json:"category"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	SourceChunkRef  string     `json:"source_chunk_ref"`
	RelatedEntities []string   `json:"related_entities"`
	RawConfidence   int        `json:"confidence"`
	Reasoning       string     `json:"reasoning"`
	Evidence        string     `json:"evidence"`
}

type Memory struct {
	ID              string     `json:"id"`
	Type            MemoryType `json:"type"`
	Category        string     `json:"category"`
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	SourceChunkRef  string     `json:"source_chunk_ref"`
	RelatedEntities []string   `json:"related_entities"`
	ConfidenceScore float64    `json:"confidence_score"`
	Reasoning       string     `json:"reasoning"`
	Evidence        string     `json:"evidence"`
	Embedding       Vector     `json:"embedding"`
	Ctime           int64      `json:"ctime"`
}

// MemoryVector is the bulk enumeration shape used by the similarity ranker.
type MemoryVector struct {
	ID        string
	Embedding []float32
	Ctime     int64
}

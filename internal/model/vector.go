package model

type VectorMode string

const (
	VectorModeReal VectorMode = "real"
	VectorModeMock VectorMode = "mock"
)

// Vector is a fixed-dimension embedding tagged with how it was produced.
// Mock vectors are deterministic placeholders with no semantic meaning.
type Vector struct {
	Values []float32  `json:"values"`
	Mode   VectorMode `json:"mode"`
}

type EmbeddingStatus struct {
	Mode      VectorMode `json:"mode"`
	Dimension int        `json:"dimension"`
	Reachable bool       `json:"reachable"`
}

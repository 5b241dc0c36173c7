package models

// Dataset is a dense training matrix. X is row-major; NaN marks a missing
// feature value.
type Dataset struct {
	Features []string
	X        [][]float64
	Y        []float64
}

// Rows returns the number of samples.
func (d Dataset) Rows() int { return len(d.Y) }

// ModelArtifact is a fitted model in serialized form.
type ModelArtifact struct {
	Format   string   `json:"format"`
	Features []string `json:"features"`
	Payload  []byte   `json:"payload"`
}

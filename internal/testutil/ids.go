package testutil

// ConstantIDGenerator returns the same call id every time.
//
// Log output of a scenario then carries a stable id, which keeps captured
// logs comparable between runs.
//
// Implements engine.IDGenerator. Stateless and safe for concurrent use.
type ConstantIDGenerator struct {
	id string
}

// NewConstantIDGenerator creates a generator returning id.
// If id is empty, Generate() returns "test-call".
func NewConstantIDGenerator(id string) *ConstantIDGenerator {
	if id == "" {
		id = "test-call"
	}
	return &ConstantIDGenerator{id: id}
}

// Generate returns the fixed id.
func (g *ConstantIDGenerator) Generate() string {
	return g.id
}

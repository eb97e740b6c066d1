package generate

import (
	"context"
	"fmt"

	"github.com/paperbase/paperbase/internal/models"
)

// MockGenerator is a deterministic generator for tests and offline runs.
type MockGenerator struct{}

// NewMockGenerator returns a generator that echoes the query and context size.
func NewMockGenerator() *MockGenerator {
	return &MockGenerator{}
}

// GenerateAnswer returns a canned answer describing its inputs.
func (g *MockGenerator) GenerateAnswer(ctx context.Context, query string, results []models.QueryResult) (string, error) {
	return fmt.Sprintf("mock answer for %q based on %d excerpt(s)", query, len(results)), nil
}

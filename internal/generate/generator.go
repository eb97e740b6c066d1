// Package generate produces answers from a query and retrieved context.
package generate

import (
	"context"

	"github.com/paperbase/paperbase/internal/models"
)

// Generator turns a query and its retrieved context chunks into an answer.
type Generator interface {
	GenerateAnswer(ctx context.Context, query string, results []models.QueryResult) (string, error)
}

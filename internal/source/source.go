// Package source provides the producers of unvalidated candidate topics: a model-backed
// generator and a deterministic sample pool.
package source

import (
	"context"

	"github.com/jonathan/interview-topics/internal/types"
)

// Source produces candidate topics for a requested count and difficulty focus.
// The output is not validated.
type Source interface {
	Generate(ctx context.Context, count int, difficultyFocus string) ([]types.Candidate, error)
	// Model names the generator, recorded on the run document.
	Model() string
}

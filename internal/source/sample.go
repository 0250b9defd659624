package source

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/jonathan/interview-topics/internal/topics"
	"github.com/jonathan/interview-topics/internal/types"
)

// SampleModel is recorded as the model of runs generated from the sample pool.
const SampleModel = "sample"

// MaxSamplePasses bounds how many times the pool is cycled.
const MaxSamplePasses = 10

//go:embed samples.json
var samplesJSON []byte

// SampleSource returns candidates from a fixed pool without calling a model.
type SampleSource struct {
	pool []types.Candidate
}

// NewSampleSource creates a SampleSource over the built-in pool.
func NewSampleSource() (*SampleSource, error) {
	var pool []types.Candidate
	if err := json.Unmarshal(samplesJSON, &pool); err != nil {
		return nil, &MalformedOutputError{Message: "invalid built-in sample pool", Cause: err}
	}
	return NewSampleSourceFromPool(pool), nil
}

// NewSampleSourceFromPool creates a SampleSource over pool.
func NewSampleSourceFromPool(pool []types.Candidate) *SampleSource {
	return &SampleSource{pool: pool}
}

// Model returns SampleModel.
func (s *SampleSource) Model() string {
	return SampleModel
}

// Generate cycles the pool, filtered to difficultyFocus unless it is "mixed", until count
// items are collected or MaxSamplePasses passes are done. Titles on pass N > 1 get a
// " (Variation N)" suffix. A filter that matches nothing falls back to the whole pool.
func (s *SampleSource) Generate(ctx context.Context, count int, difficultyFocus string) ([]types.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if count <= 0 || len(s.pool) == 0 {
		return []types.Candidate{}, nil
	}

	pool := s.filter(difficultyFocus)

	result := make([]types.Candidate, 0, count)
	for pass := 1; pass <= MaxSamplePasses && len(result) < count; pass++ {
		for _, candidate := range pool {
			if pass > 1 {
				candidate = withVariation(candidate, pass)
			}
			result = append(result, candidate)
		}
	}

	if len(result) > count {
		result = result[:count]
	}
	return result, nil
}

func (s *SampleSource) filter(difficultyFocus string) []types.Candidate {
	if difficultyFocus == "" || difficultyFocus == topics.DifficultyMixed {
		return s.pool
	}

	var filtered []types.Candidate
	for _, candidate := range s.pool {
		if difficulty, ok := candidate.Difficulty.Value.(string); ok && difficulty == difficultyFocus {
			filtered = append(filtered, candidate)
		}
	}
	if len(filtered) == 0 {
		return s.pool
	}
	return filtered
}

func withVariation(c types.Candidate, pass int) types.Candidate {
	if title, ok := c.Title.Value.(string); ok {
		c.Title = types.Present(fmt.Sprintf("%s (Variation %d)", title, pass))
	}
	return c
}

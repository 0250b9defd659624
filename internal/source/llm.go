package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/interview-topics/internal/llm"
	"github.com/jonathan/interview-topics/internal/prompts"
	"github.com/jonathan/interview-topics/internal/topics"
	"github.com/jonathan/interview-topics/internal/types"
)

const promptFile = "topics.json"

// Sampling parameters for topic generation.
const (
	Temperature     float32 = 0.8
	TopP            float32 = 0.9
	TopK            int32   = 40
	MaxOutputTokens int32   = 4000
)

// LLMSource generates candidate topics with a language model.
type LLMSource struct {
	gen    llm.TextGenerator
	model  string
	tier   llm.ModelTier
	retry  llm.RetryPolicy
	logger *logrus.Logger
}

// LLMOption customizes an LLMSource.
type LLMOption func(*LLMSource)

// WithRetryPolicy replaces the default retry policy.
func WithRetryPolicy(policy llm.RetryPolicy) LLMOption {
	return func(s *LLMSource) {
		s.retry = policy
	}
}

// WithTier selects the model tier used for generation.
func WithTier(tier llm.ModelTier) LLMOption {
	return func(s *LLMSource) {
		s.tier = tier
	}
}

// NewLLMSource creates a Source backed by gen. model is the name recorded on run documents.
func NewLLMSource(gen llm.TextGenerator, model string, logger *logrus.Logger, opts ...LLMOption) *LLMSource {
	s := &LLMSource{
		gen:    gen,
		model:  model,
		tier:   llm.TierStandard,
		retry:  llm.DefaultRetryPolicy(),
		logger: logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.retry.Logger == nil {
		s.retry.Logger = logger
	}
	return s
}

// Model returns the model name.
func (s *LLMSource) Model() string {
	return s.model
}

// Generate asks the model for count topics and decodes the first JSON array of objects
// in its answer. Failed or empty calls are retried according to the retry policy.
func (s *LLMSource) Generate(ctx context.Context, count int, difficultyFocus string) ([]types.Candidate, error) {
	if s.gen == nil {
		return nil, &GenerationError{Message: "no text generator configured"}
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{
			"count": count,
			"focus": difficultyFocus,
			"model": s.model,
		}).Info("generating interview topics")
	}

	opts := llm.GenerateOptions{
		Tier:              s.tier,
		SystemInstruction: BuildSystemPrompt(),
		Temperature:       Temperature,
		TopP:              TopP,
		TopK:              TopK,
		MaxOutputTokens:   MaxOutputTokens,
	}

	text, err := llm.GenerateWithRetry(ctx, s.gen, BuildUserPrompt(count, difficultyFocus), opts, s.retry)
	if err != nil {
		return nil, &GenerationError{Message: "model call failed", Cause: err}
	}

	candidates, err := ParseCandidates(text)
	if err != nil {
		if s.logger != nil {
			s.logger.WithField("response", truncate(text, 500)).Error("could not parse model output")
		}
		return nil, err
	}
	return candidates, nil
}

// ParseCandidates decodes the topic list in text. Among the well-formed JSON arrays found,
// it takes the first one holding an object, else the first non-empty one, else the first.
// Elements that are not objects become candidates with no fields set.
func ParseCandidates(text string) ([]types.Candidate, error) {
	arrays := llm.JSONArrays(text)
	if len(arrays) == 0 {
		return nil, &MalformedOutputError{Message: "no JSON array in response", Cause: llm.ErrNoJSONArray}
	}

	chosen := ""
	rank := -1
	for _, raw := range arrays {
		if r := arrayRank(raw); r > rank {
			chosen, rank = raw, r
		}
		if rank == rankHasObject {
			break
		}
	}

	var candidates []types.Candidate
	if err := json.Unmarshal([]byte(chosen), &candidates); err != nil {
		return nil, &MalformedOutputError{Message: "response array could not be decoded", Cause: err}
	}
	return candidates, nil
}

const (
	rankEmpty = iota
	rankNoObject
	rankHasObject
)

func arrayRank(raw string) int {
	var elements []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &elements); err != nil {
		return -1
	}
	if len(elements) == 0 {
		return rankEmpty
	}
	for _, element := range elements {
		if types.IsObject(element) {
			return rankHasObject
		}
	}
	return rankNoObject
}

// BuildSystemPrompt renders the system prompt with the category and difficulty catalogs.
func BuildSystemPrompt() string {
	tags := make([]string, len(topics.Difficulties))
	for i, d := range topics.Difficulties {
		tags[i] = d.Tag
	}
	return prompts.Format(prompts.MustGet(promptFile, "system"), map[string]string{
		"Categories":     formatCatalog(topics.Categories),
		"Difficulties":   formatCatalog(topics.Difficulties),
		"DifficultyTags": strings.Join(tags, ", "),
	})
}

// BuildUserPrompt renders the request for count topics with the given focus.
func BuildUserPrompt(count int, difficultyFocus string) string {
	return prompts.Format(prompts.MustGet(promptFile, "user"), map[string]string{
		"Count":            strconv.Itoa(count),
		"FocusInstruction": focusInstruction(difficultyFocus),
	})
}

func focusInstruction(difficultyFocus string) string {
	if difficultyFocus == "" || difficultyFocus == topics.DifficultyMixed {
		return prompts.MustGet(promptFile, "focus-mixed")
	}
	return prompts.Format(prompts.MustGet(promptFile, "focus-difficulty"), map[string]string{
		"Difficulty": difficultyFocus,
	})
}

func formatCatalog(entries []topics.Entry) string {
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = fmt.Sprintf("- %s: %s", e.Tag, e.Description)
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IsMalformedOutput reports whether err is or wraps a *MalformedOutputError.
func IsMalformedOutput(err error) bool {
	var target *MalformedOutputError
	return errors.As(err, &target)
}

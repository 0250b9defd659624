// Package pipeline orchestrates a topic generation run: source, validation and persistence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/interview-topics/internal/source"
	"github.com/jonathan/interview-topics/internal/topics"
	"github.com/jonathan/interview-topics/internal/types"
)

// Steps reported through ProgressCallback.
const (
	StepGenerate = "generate"
	StepValidate = "validate"
	StepPersist  = "persist"
)

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step    string `json:"step"`
	Message string `json:"message"`
	RunID   string `json:"run_id,omitempty"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// RunWriter persists run documents. storage.Store satisfies it.
type RunWriter interface {
	InsertRun(ctx context.Context, doc *types.RunDocument) (string, error)
}

// ResultMetadata describes a generation result.
type ResultMetadata struct {
	GeneratedCount  int    `json:"generatedCount"`
	RequestedCount  int    `json:"requestedCount"`
	DifficultyFocus string `json:"difficultyFocus"`
	Model           string `json:"model"`
}

// Result holds the validated topics of one generation.
type Result struct {
	Topics   []types.Topic  `json:"topics"`
	Metadata ResultMetadata `json:"metadata"`
}

// RunOptions holds configuration for a full run
type RunOptions struct {
	Count           int
	DifficultyFocus string
	// RunID is generated when empty.
	RunID string
}

// Pipeline runs a Source through the topic Validator.
type Pipeline struct {
	source     source.Source
	validator  *topics.Validator
	logger     *logrus.Logger
	now        func() time.Time
	onProgress ProgressCallback
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithProgress registers a progress callback.
func WithProgress(cb ProgressCallback) Option {
	return func(p *Pipeline) {
		p.onProgress = cb
	}
}

// WithClock replaces time.Now for run timestamps.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) {
		p.now = now
	}
}

// New creates a Pipeline over src.
func New(src source.Source, logger *logrus.Logger, opts ...Option) *Pipeline {
	p := &Pipeline{
		source:    src,
		validator: topics.NewValidator(logger),
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// GenerateTopics asks the source for count candidates and validates them. Source errors
// and *topics.InsufficientYieldError are returned unmodified.
func (p *Pipeline) GenerateTopics(ctx context.Context, count int, difficultyFocus string) (*Result, error) {
	if difficultyFocus == "" {
		difficultyFocus = topics.DifficultyMixed
	}
	if count < 1 {
		return nil, &RequestError{Field: "count", Message: fmt.Sprintf("must be at least 1, got %d", count)}
	}
	if !topics.IsDifficultyFocus(difficultyFocus) {
		return nil, &RequestError{Field: "difficultyFocus", Message: fmt.Sprintf("unknown difficulty %q", difficultyFocus)}
	}

	p.emit(StepGenerate, fmt.Sprintf("Generating %d topics (focus: %s) with %s", count, difficultyFocus, p.source.Model()), "")
	candidates, err := p.source.Generate(ctx, count, difficultyFocus)
	if err != nil {
		return nil, err
	}

	p.emit(StepValidate, fmt.Sprintf("Validating %d candidates", len(candidates)), "")
	valid, err := p.validator.Validate(candidates, count)
	if err != nil {
		return nil, err
	}

	if p.logger != nil {
		p.logger.WithFields(logrus.Fields{
			"requested":  count,
			"candidates": len(candidates),
			"valid":      len(valid),
		}).Info("topics generated")
	}

	return &Result{
		Topics: valid,
		Metadata: ResultMetadata{
			GeneratedCount:  len(valid),
			RequestedCount:  count,
			DifficultyFocus: difficultyFocus,
			Model:           p.source.Model(),
		},
	}, nil
}

// Run generates topics, builds the run document and persists it with w. A nil w skips
// persistence and returns the unsaved document.
func (p *Pipeline) Run(ctx context.Context, w RunWriter, opts RunOptions) (*types.RunDocument, error) {
	result, err := p.GenerateTopics(ctx, opts.Count, opts.DifficultyFocus)
	if err != nil {
		return nil, err
	}

	doc := BuildRunDocument(opts.RunID, result, p.now())
	if w == nil {
		return doc, nil
	}

	if _, err := Persist(ctx, w, doc); err != nil {
		return nil, err
	}
	p.emit(StepPersist, fmt.Sprintf("Stored %d topics", doc.TopicCount()), doc.RunID)
	return doc, nil
}

// BuildRunDocument assembles the document for result. An empty runID is replaced by a
// new UUID.
func BuildRunDocument(runID string, result *Result, now time.Time) *types.RunDocument {
	if runID == "" {
		runID = uuid.NewString()
	}
	return &types.RunDocument{
		RunID:       runID,
		GeneratedAt: now.UTC().Truncate(time.Millisecond),
		Model:       result.Metadata.Model,
		Topics:      result.Topics,
		Generation: &types.GenerationInfo{
			RequestedCount:  result.Metadata.RequestedCount,
			GeneratedCount:  result.Metadata.GeneratedCount,
			DifficultyFocus: result.Metadata.DifficultyFocus,
		},
	}
}

// Persist inserts doc and returns the backend identifier.
func Persist(ctx context.Context, w RunWriter, doc *types.RunDocument) (string, error) {
	id, err := w.InsertRun(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to store run %s: %w", doc.RunID, err)
	}
	return id, nil
}

func (p *Pipeline) emit(step, message, runID string) {
	if p.onProgress != nil {
		p.onProgress(ProgressEvent{
			Step:    step,
			Message: message,
			RunID:   runID,
		})
	}
}

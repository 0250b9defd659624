package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/interview-topics/internal/config"
	"github.com/jonathan/interview-topics/internal/llm"
	"github.com/jonathan/interview-topics/internal/logging"
	"github.com/jonathan/interview-topics/internal/pipeline"
	"github.com/jonathan/interview-topics/internal/source"
	"github.com/jonathan/interview-topics/internal/types"
)

func TestGenerateCommand_SampleDryRun(t *testing.T) {
	isolateEnv(t)
	outPath := filepath.Join(t.TempDir(), "out", "run.json")

	output, err := executeCommand(t, "generate",
		"--sample", "--dry-run",
		"--count", "4", "--difficulty", "senior",
		"--run-id", "dry-run-1",
		"--out", outPath,
	)
	require.NoError(t, err, output)

	assert.Contains(t, output, "dry-run-1")
	assert.Contains(t, output, "TOPICS (4)")
	assert.Contains(t, output, "Run document written to")
	assert.Contains(t, output, "Dry run: nothing stored")

	content, err := os.ReadFile(outPath)
	require.NoError(t, err)

	var doc types.RunDocument
	require.NoError(t, json.Unmarshal(content, &doc))
	assert.Equal(t, "dry-run-1", doc.RunID)
	assert.Equal(t, source.SampleModel, doc.Model)
	assert.Len(t, doc.Topics, 4)
	for _, topic := range doc.Topics {
		assert.Equal(t, "senior", topic.Difficulty)
	}
	require.NotNil(t, doc.Generation)
	assert.Equal(t, 4, doc.Generation.RequestedCount)
	assert.Nil(t, doc.Metadata)
}

func TestGenerateCommand_VerbosePrintsProgress(t *testing.T) {
	isolateEnv(t)

	output, err := executeCommand(t, "generate", "--sample", "--dry-run", "--count", "2", "--verbose")
	require.NoError(t, err, output)

	assert.Contains(t, output, "[generate] Generating 2 topics (focus: mixed) with sample")
	assert.Contains(t, output, "[validate] Validating 2 candidates")
}

func TestGenerateCommand_RequiresAPIKeyWithoutSample(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "generate", "--dry-run", "--count", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY")
}

func TestGenerateCommand_RejectsUnknownDifficulty(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "generate", "--sample", "--dry-run", "--difficulty", "expert")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "difficulty_focus")
}

func TestGenerateCommand_StoreConfigMissing(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "generate", "--sample", "--count", "2")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MONGODB_URI")
}

func TestGenerateCommand_RejectsUnknownTier(t *testing.T) {
	isolateEnv(t)

	_, err := executeCommand(t, "generate", "--sample", "--dry-run", "--tier", "turbo")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model tier")
}

func TestGenerationFailure(t *testing.T) {
	malformed := generationFailure(&source.MalformedOutputError{Message: "no JSON array in response"})
	assert.Contains(t, malformed.Error(), "--sample")
	assert.True(t, source.IsMalformedOutput(malformed))

	cause := errors.New("quota exceeded")
	other := generationFailure(&source.GenerationError{Message: "model call failed", Cause: cause})
	assert.NotContains(t, other.Error(), "--sample")
	assert.ErrorIs(t, other, cause)
}

func TestBuildSource_Sample(t *testing.T) {
	src, release, err := buildSource(context.Background(), &config.Config{}, true, llm.TierStandard, logging.Discard())
	require.NoError(t, err)
	defer release()

	assert.Equal(t, source.SampleModel, src.Model())
}

func TestBuildSource_MissingAPIKey(t *testing.T) {
	_, _, err := buildSource(context.Background(), &config.Config{}, false, llm.TierStandard, logging.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--api-key")
}

func TestWriteRunDocument_RejectsSchemaViolation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	doc := &types.RunDocument{
		RunID:       "empty-run",
		GeneratedAt: time.Now().UTC(),
		Model:       "sample",
		Topics:      []types.Topic{},
	}

	err := writeRunDocument(path, doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match schema")

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written for an invalid document")
}

func TestWriteRunDocument_ValidDocument(t *testing.T) {
	src, err := source.NewSampleSource()
	require.NoError(t, err)

	p := pipeline.New(src, logging.Discard())
	doc, err := p.Run(context.Background(), nil, pipeline.RunOptions{Count: 8, RunID: "sample-run"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, writeRunDocument(path, doc))

	_, err = executeCommand(t, "validate-run", "--in", path)
	assert.NoError(t, err)
}

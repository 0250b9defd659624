package observability

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/interview-topics/internal/types"
)

func sampleRun() *types.RunDocument {
	return &types.RunDocument{
		RunID:       "run-123",
		GeneratedAt: time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC),
		Model:       "gemini-2.5-flash",
		Topics: []types.Topic{
			{
				Title:        "Designing a rate limiter",
				Category:     "system_design",
				Difficulty:   "senior",
				Description:  "Design a distributed rate limiter.",
				KeyPoints:    []string{"Token bucket", "Sliding window"},
				Duration:     45,
				Technologies: []string{"Redis", "Go"},
			},
		},
		Generation: &types.GenerationInfo{RequestedCount: 2, GeneratedCount: 1, DifficultyFocus: "senior"},
	}
}

func TestPrintRunSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunSummary(sampleRun())
	output := buf.String()

	assert.Contains(t, output, "INTERVIEW TOPICS RUN")
	assert.Contains(t, output, "run-123")
	assert.Contains(t, output, "2024-05-01T09:30:00Z")
	assert.Contains(t, output, "1 of 2 requested (focus: senior)")
	assert.NotContains(t, output, "Stored:")
}

func TestPrintRunSummary_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintRunSummary(nil)
	assert.Empty(t, buf.String())
}

func TestPrintTopics(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTopics(sampleRun().Topics)
	output := buf.String()

	assert.Contains(t, output, "TOPICS (1)")
	assert.Contains(t, output, "1. Designing a rate limiter")
	assert.Contains(t, output, "system_design · senior · 45 min")
	assert.Contains(t, output, "• Sliding window")
	assert.Contains(t, output, "Tech: Redis, Go")
}

func TestPrintTopics_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintTopics(nil)
	assert.Empty(t, buf.String())
}

func TestPrintRunList(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunList("RECENT RUNS", []*types.RunDocument{sampleRun()})
	output := buf.String()
	assert.Contains(t, output, "RECENT RUNS")
	assert.Contains(t, output, "2024-05-01 09:30  run-123   1 topics  gemini-2.5-flash")

	buf.Reset()
	p.PrintRunList("SEARCH RESULTS", nil)
	assert.Contains(t, buf.String(), "No runs found")
}

func TestPrintStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	last := time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)
	p.PrintStats(&types.Stats{
		TotalDocuments:           3,
		TotalTopics:              12,
		LastGeneration:           &last,
		CategoriesDistribution:   map[string]int64{"behavioral": 2, "system_design": 7, "testing_quality": 3},
		DifficultiesDistribution: map[string]int64{"senior": 12},
	})
	output := buf.String()

	assert.Contains(t, output, "Documents:       3")
	assert.Contains(t, output, "Topics:          12")
	assert.Contains(t, output, "2024-05-01T09:30:00Z")
	assert.Less(t, strings.Index(output, "system_design"), strings.Index(output, "testing_quality"))
	assert.Less(t, strings.Index(output, "testing_quality"), strings.Index(output, "behavioral"))
}

func TestPrintStats_Empty(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintStats(types.NewStats())

	output := buf.String()
	assert.Contains(t, output, "Last generation: never")
	assert.NotContains(t, output, "Categories:")
}

func TestPrintBox_AlignsAndTruncates(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", "short\n"+strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		assert.Equal(t, boxWidth, len([]rune(line)), "line %q", line)
	}
	assert.Contains(t, buf.String(), "...")
}

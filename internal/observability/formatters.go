// Package observability provides formatted output utilities for the CLI.
package observability

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/jonathan/interview-topics/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 72
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for the CLI
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	inner := boxWidth - 4
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %s │\n", pad(title, inner))
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(strings.TrimRight(content, "\n"), "\n") {
		fmt.Fprintf(p.out, "│ %s │\n", pad(line, inner))
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// pad truncates or right-pads s to width runes.
func pad(s string, width int) string {
	if utf8.RuneCountInString(s) > width {
		runes := []rune(s)
		return string(runes[:width-3]) + "..."
	}
	return s + strings.Repeat(" ", width-utf8.RuneCountInString(s))
}

// PrintRunSummary outputs the header of a run document.
func (p *Printer) PrintRunSummary(doc *types.RunDocument) {
	if doc == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Run ID:    %s\n", doc.RunID))
	sb.WriteString(fmt.Sprintf("Generated: %s\n", doc.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Model:     %s\n", doc.Model))
	if doc.Generation != nil {
		sb.WriteString(fmt.Sprintf("Topics:    %d of %d requested (focus: %s)\n",
			doc.Generation.GeneratedCount, doc.Generation.RequestedCount, doc.Generation.DifficultyFocus))
	} else {
		sb.WriteString(fmt.Sprintf("Topics:    %d\n", doc.TopicCount()))
	}
	if doc.Metadata != nil {
		sb.WriteString(fmt.Sprintf("Stored:    %s (%s %s)\n",
			doc.Metadata.InsertedAt.Format(time.RFC3339), doc.Metadata.Source, doc.Metadata.Version))
	}

	p.printBox("INTERVIEW TOPICS RUN", sb.String())
}

// PrintTopics outputs every topic with its key points.
func (p *Printer) PrintTopics(topics []types.Topic) {
	if len(topics) == 0 {
		return
	}

	var sb strings.Builder
	for i, topic := range topics {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, topic.Title))
		sb.WriteString(fmt.Sprintf("   %s · %s · %d min\n", topic.Category, topic.Difficulty, topic.Duration))

		count := min(len(topic.KeyPoints), maxItemsToShow)
		for j := 0; j < count; j++ {
			sb.WriteString(fmt.Sprintf("   • %s\n", topic.KeyPoints[j]))
		}
		if len(topic.Technologies) > 0 {
			sb.WriteString(fmt.Sprintf("   Tech: %s\n", strings.Join(topic.Technologies, ", ")))
		}
	}

	p.printBox(fmt.Sprintf("TOPICS (%d)", len(topics)), sb.String())
}

// PrintRunList outputs one line per run document.
func (p *Printer) PrintRunList(title string, docs []*types.RunDocument) {
	var sb strings.Builder
	if len(docs) == 0 {
		sb.WriteString("No runs found\n")
	}
	for _, doc := range docs {
		sb.WriteString(fmt.Sprintf("%s  %s  %2d topics  %s\n",
			doc.GeneratedAt.Format("2006-01-02 15:04"), doc.RunID, doc.TopicCount(), doc.Model))
	}

	p.printBox(title, sb.String())
}

// PrintStats outputs the collection statistics with distributions sorted by count.
func (p *Printer) PrintStats(stats *types.Stats) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Documents:       %d\n", stats.TotalDocuments))
	sb.WriteString(fmt.Sprintf("Topics:          %d\n", stats.TotalTopics))
	if stats.LastGeneration != nil {
		sb.WriteString(fmt.Sprintf("Last generation: %s\n", stats.LastGeneration.Format(time.RFC3339)))
	} else {
		sb.WriteString("Last generation: never\n")
	}

	writeDistribution(&sb, "Categories", stats.CategoriesDistribution)
	writeDistribution(&sb, "Difficulties", stats.DifficultiesDistribution)

	p.printBox("TOPIC STATISTICS", sb.String())
}

func writeDistribution(sb *strings.Builder, label string, counts map[string]int64) {
	if len(counts) == 0 {
		return
	}

	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if counts[keys[i]] != counts[keys[j]] {
			return counts[keys[i]] > counts[keys[j]]
		}
		return keys[i] < keys[j]
	})

	sb.WriteString(fmt.Sprintf("\n%s:\n", label))
	for _, k := range keys {
		sb.WriteString(fmt.Sprintf("  %-28s %d\n", k, counts[k]))
	}
}

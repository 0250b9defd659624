// Package storage persists run documents in MongoDB or Firestore behind one Store contract.
package storage

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/jonathan/interview-topics/internal/types"
)

// Defaults shared by both backends.
const (
	CollectionName        = "topics"
	DefaultDatabase       = "interview_topics"
	DefaultRecentLimit    = 10
	DefaultSearchLimit    = 50
	DefaultConnectTimeout = 10 * time.Second

	MetadataVersion = "1.0.0"
	MetadataSource  = "interview-topics-agent"
)

// Capabilities describes optional features of a backend.
type Capabilities struct {
	// FullTextSearch reports whether SearchQuery.Text is honored. Backends without it
	// ignore the text filter.
	FullTextSearch bool
}

// SearchQuery filters run documents. Empty fields are not applied. A document matches
// when at least one of its topics matches every structured filter.
type SearchQuery struct {
	Category   string
	Difficulty string
	Text       string
	Limit      int
}

// Store is the persistence contract implemented by every backend.
type Store interface {
	// Connect opens the backend session. It is a no-op on a connected store.
	Connect(ctx context.Context) error
	// InsertRun validates and stores doc, returning its stored identifier. GeneratedAt is
	// stored in UTC truncated to milliseconds.
	InsertRun(ctx context.Context, doc *types.RunDocument) (string, error)
	// GetByRunID returns nil, nil when no run has the id.
	GetByRunID(ctx context.Context, runID string) (*types.RunDocument, error)
	GetRecent(ctx context.Context, limit int) ([]*types.RunDocument, error)
	Search(ctx context.Context, query SearchQuery) ([]*types.RunDocument, error)
	Stats(ctx context.Context) (*types.Stats, error)
	// Close releases the session. It is safe to call more than once.
	Close(ctx context.Context)
	Capabilities() Capabilities
	Provider() Provider
}

var documentValidator = newDocumentValidator()

func newDocumentValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// ValidateDocument checks that doc carries runId, generatedAt, model and at least one
// topic, and that every topic has a title, category, difficulty and description.
func ValidateDocument(doc *types.RunDocument) error {
	if doc == nil {
		return &InvalidDocumentError{Fields: []string{"document"}}
	}

	err := documentValidator.Struct(doc)
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &InvalidDocumentError{Fields: []string{err.Error()}}
	}

	fields := make([]string, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, strings.TrimPrefix(fe.Namespace(), "RunDocument."))
	}
	return &InvalidDocumentError{Fields: fields}
}

// stampMetadata returns a copy of doc carrying insertion metadata, with GeneratedAt in
// UTC at millisecond precision so that it reads back unchanged. doc is not modified.
func stampMetadata(doc *types.RunDocument, now time.Time) *types.RunDocument {
	stamped := *doc
	stamped.GeneratedAt = doc.GeneratedAt.UTC().Truncate(time.Millisecond)
	stamped.Metadata = &types.DocumentMetadata{
		InsertedAt: now.UTC().Truncate(time.Millisecond),
		Version:    MetadataVersion,
		Source:     MetadataSource,
	}
	return &stamped
}

func limitOrDefault(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	return limit
}

type connState int

const (
	stateDisconnected connState = iota
	stateConnected
	stateClosed
)

// lifecycle tracks the connection state shared by both backends.
type lifecycle struct {
	mu    sync.Mutex
	state connState
}

func (l *lifecycle) connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state == stateConnected
}

func (l *lifecycle) requireConnected() error {
	if !l.connected() {
		return ErrNotConnected
	}
	return nil
}

// matchesTopic reports whether topic satisfies the structured filters of q.
func matchesTopic(topic types.Topic, q SearchQuery) bool {
	if q.Category != "" && topic.Category != q.Category {
		return false
	}
	if q.Difficulty != "" && topic.Difficulty != q.Difficulty {
		return false
	}
	return true
}

// matchesDocument reports whether any topic of doc satisfies the structured filters of q.
func matchesDocument(doc *types.RunDocument, q SearchQuery) bool {
	if q.Category == "" && q.Difficulty == "" {
		return true
	}
	for _, topic := range doc.Topics {
		if matchesTopic(topic, q) {
			return true
		}
	}
	return false
}

// foldStats adds doc to stats.
func foldStats(stats *types.Stats, doc *types.RunDocument) {
	stats.TotalDocuments++
	stats.TotalTopics += int64(len(doc.Topics))
	if stats.LastGeneration == nil || doc.GeneratedAt.After(*stats.LastGeneration) {
		last := doc.GeneratedAt
		stats.LastGeneration = &last
	}
	for _, topic := range doc.Topics {
		stats.CategoriesDistribution[topic.Category]++
		stats.DifficultiesDistribution[topic.Difficulty]++
	}
}

func logOrDiscard(logger *logrus.Logger) *logrus.Logger {
	if logger != nil {
		return logger
	}
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

// Package types provides type definitions for the topic and run documents shared by the
// generator, the validator and the storage backends.
package types

import (
	"bytes"
	"encoding/json"
	"time"
)

// Topic is one validated interview discussion scenario.
type Topic struct {
	Title        string   `json:"title" bson:"title" firestore:"title" validate:"required"`
	Category     string   `json:"category" bson:"category" firestore:"category" validate:"required"`
	Difficulty   string   `json:"difficulty" bson:"difficulty" firestore:"difficulty" validate:"required"`
	Description  string   `json:"description" bson:"description" firestore:"description" validate:"required"`
	KeyPoints    []string `json:"keyPoints" bson:"keyPoints" firestore:"keyPoints"`
	Duration     int      `json:"duration" bson:"duration" firestore:"duration"`
	Technologies []string `json:"technologies" bson:"technologies" firestore:"technologies"`
}

// Candidate returns the topic as an unvalidated candidate record, so that a validated
// topic can be passed through validation again.
func (t Topic) Candidate() Candidate {
	keyPoints := make([]any, len(t.KeyPoints))
	for i, point := range t.KeyPoints {
		keyPoints[i] = point
	}
	technologies := make([]any, len(t.Technologies))
	for i, tech := range t.Technologies {
		technologies[i] = tech
	}

	return Candidate{
		Title:        Present(t.Title),
		Category:     Present(t.Category),
		Difficulty:   Present(t.Difficulty),
		Description:  Present(t.Description),
		KeyPoints:    Present(keyPoints),
		Duration:     Present(float64(t.Duration)),
		Technologies: Present(technologies),
	}
}

// Field is a loosely typed candidate value. Set distinguishes a key that was absent
// from one that was present with a null value.
type Field struct {
	Value any
	Set   bool
}

// Present returns a Field holding v.
func Present(v any) Field {
	return Field{Value: v, Set: true}
}

// UnmarshalJSON records presence and decodes the raw value with the default JSON
// mapping (strings, float64, bool, []any, map[string]any, nil).
func (f *Field) UnmarshalJSON(data []byte) error {
	f.Set = true
	return json.Unmarshal(data, &f.Value)
}

// MarshalJSON writes the raw value back out.
func (f Field) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Value)
}

// IsZero lets encoding/json omit fields that were never set.
func (f Field) IsZero() bool {
	return !f.Set
}

// Candidate is a topic record as produced by a topic source, before validation.
// Every field is optional; nothing about its type is assumed.
type Candidate struct {
	Title        Field `json:"title,omitzero"`
	Category     Field `json:"category,omitzero"`
	Difficulty   Field `json:"difficulty,omitzero"`
	Description  Field `json:"description,omitzero"`
	KeyPoints    Field `json:"keyPoints,omitzero"`
	Duration     Field `json:"duration,omitzero"`
	Technologies Field `json:"technologies,omitzero"`
}

// UnmarshalJSON reads a candidate object by exact key name. Any other JSON value, such as
// a string or number in a model's array, decodes to a candidate with no fields set, which
// validation then rejects.
func (c *Candidate) UnmarshalJSON(data []byte) error {
	*c = Candidate{}
	if !IsObject(data) {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for key, value := range raw {
		field := c.field(key)
		if field == nil {
			continue
		}
		if err := field.UnmarshalJSON(value); err != nil {
			return err
		}
	}
	return nil
}

func (c *Candidate) field(key string) *Field {
	switch key {
	case "title":
		return &c.Title
	case "category":
		return &c.Category
	case "difficulty":
		return &c.Difficulty
	case "description":
		return &c.Description
	case "keyPoints":
		return &c.KeyPoints
	case "duration":
		return &c.Duration
	case "technologies":
		return &c.Technologies
	}
	return nil
}

// IsObject reports whether data holds a JSON object.
func IsObject(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

// GenerationInfo describes how a run's topics were produced.
type GenerationInfo struct {
	RequestedCount  int    `json:"requestedCount" bson:"requestedCount" firestore:"requestedCount"`
	GeneratedCount  int    `json:"generatedCount" bson:"generatedCount" firestore:"generatedCount"`
	DifficultyFocus string `json:"difficultyFocus" bson:"difficultyFocus" firestore:"difficultyFocus"`
}

// DocumentMetadata is stamped by the storage layer at insert time.
type DocumentMetadata struct {
	InsertedAt time.Time `json:"insertedAt" bson:"insertedAt" firestore:"insertedAt"`
	Version    string    `json:"version" bson:"version" firestore:"version"`
	Source     string    `json:"source" bson:"source" firestore:"source"`
}

// RunDocument is one persisted generation batch, keyed by RunID.
type RunDocument struct {
	RunID       string            `json:"runId" bson:"runId" firestore:"runId" validate:"required"`
	GeneratedAt time.Time         `json:"generatedAt" bson:"generatedAt" firestore:"generatedAt" validate:"required"`
	Model       string            `json:"model" bson:"model" firestore:"model" validate:"required"`
	Topics      []Topic           `json:"topics" bson:"topics" firestore:"topics" validate:"required,min=1,dive"`
	Generation  *GenerationInfo   `json:"generation,omitempty" bson:"generation,omitempty" firestore:"generation,omitempty"`
	Metadata    *DocumentMetadata `json:"_metadata,omitempty" bson:"_metadata,omitempty" firestore:"_metadata,omitempty"`
}

// TopicCount returns the number of topics in the document.
func (d *RunDocument) TopicCount() int {
	return len(d.Topics)
}

// Stats aggregates all stored run documents.
type Stats struct {
	TotalDocuments           int64            `json:"totalDocuments"`
	TotalTopics              int64            `json:"totalTopics"`
	LastGeneration           *time.Time       `json:"lastGeneration"`
	CategoriesDistribution   map[string]int64 `json:"categoriesDistribution"`
	DifficultiesDistribution map[string]int64 `json:"difficultiesDistribution"`
}

// NewStats returns the zero-valued statistics shape with non-nil distributions.
func NewStats() *Stats {
	return &Stats{
		CategoriesDistribution:   map[string]int64{},
		DifficultiesDistribution: map[string]int64{},
	}
}

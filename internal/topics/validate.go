package topics

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/jonathan/interview-topics/internal/types"
)

const (
	// MinTitleLength is the minimum trimmed title length in characters.
	MinTitleLength = 10
	// MaxKeyPoints is the number of key points kept on a cleaned topic.
	MaxKeyPoints = 5
	// MaxTechnologies is the number of technologies kept on a cleaned topic.
	MaxTechnologies = 6
	// MinDuration and MaxDuration bound a topic's duration in minutes.
	MinDuration = 15
	MaxDuration = 120
	// DefaultDuration replaces any duration outside the accepted range.
	DefaultDuration = 30
)

// MinimumYield returns ceil(0.7 * requested), the number of topics that must survive
// validation for a batch to be accepted.
func MinimumYield(requested int) int {
	if requested <= 0 {
		return 0
	}
	return (requested*7 + 9) / 10
}

// Validator drops malformed candidates and normalizes the rest.
type Validator struct {
	logger *logrus.Logger
}

// NewValidator creates a Validator that reports rejections and corrections to logger.
func NewValidator(logger *logrus.Logger) *Validator {
	return &Validator{logger: logger}
}

// Validate cleans every candidate that passes the required checks and returns the
// survivors in input order. It fails with *InsufficientYieldError when fewer than
// MinimumYield(requestedCount) candidates survive. No padding is performed.
func (v *Validator) Validate(candidates []types.Candidate, requestedCount int) ([]types.Topic, error) {
	valid := make([]types.Topic, 0, len(candidates))

	for i, candidate := range candidates {
		topic, err := v.validateSafely(i, candidate)
		if err != nil {
			v.warn(err.Error(), logrus.Fields{"index": i + 1})
			continue
		}
		valid = append(valid, topic)
	}

	v.info(fmt.Sprintf("validated %d/%d topics", len(valid), len(candidates)))

	required := MinimumYield(requestedCount)
	if len(valid) < required {
		return nil, &InsufficientYieldError{
			Valid:     len(valid),
			Requested: requestedCount,
			Required:  required,
		}
	}

	return valid, nil
}

func (v *Validator) validateSafely(index int, c types.Candidate) (topic types.Topic, err error) {
	defer func() {
		if r := recover(); r != nil {
			topic = types.Topic{}
			err = &RejectionError{Index: index, Field: "(candidate)", Message: fmt.Sprintf("unexpected error: %v", r)}
		}
	}()
	return v.validate(index, c)
}

func (v *Validator) validate(index int, c types.Candidate) (types.Topic, error) {
	reject := func(field, message string) (types.Topic, error) {
		return types.Topic{}, &RejectionError{Index: index, Field: field, Message: message}
	}

	required := []struct {
		name  string
		field types.Field
	}{
		{"title", c.Title},
		{"category", c.Category},
		{"difficulty", c.Difficulty},
		{"description", c.Description},
		{"keyPoints", c.KeyPoints},
		{"duration", c.Duration},
		{"technologies", c.Technologies},
	}
	for _, r := range required {
		if !r.field.Set {
			return reject(r.name, "missing field")
		}
	}

	title, ok := c.Title.Value.(string)
	if !ok || utf8.RuneCountInString(strings.TrimSpace(title)) < MinTitleLength {
		return reject("title", fmt.Sprintf("must be text of at least %d characters", MinTitleLength))
	}

	category, ok := c.Category.Value.(string)
	if !ok || !IsCategory(category) {
		return reject("category", fmt.Sprintf("invalid category %v", c.Category.Value))
	}

	difficulty, ok := c.Difficulty.Value.(string)
	if !ok || !IsDifficulty(difficulty) {
		return reject("difficulty", fmt.Sprintf("invalid difficulty %v", c.Difficulty.Value))
	}

	keyPoints, ok := c.KeyPoints.Value.([]any)
	if !ok || len(keyPoints) == 0 {
		return reject("keyPoints", "must be a non-empty list")
	}

	duration, ok := coerceDuration(c.Duration.Value)
	if !ok {
		v.warn("invalid duration, defaulting to 30 minutes", logrus.Fields{"index": index + 1})
	}

	technologies, ok := c.Technologies.Value.([]any)
	if !ok {
		v.warn("invalid technologies, defaulting to empty list", logrus.Fields{"index": index + 1})
		technologies = nil
	}

	description, ok := c.Description.Value.(string)
	if !ok || strings.TrimSpace(description) == "" {
		return reject("description", "must be non-empty text")
	}

	return types.Topic{
		Title:        strings.TrimSpace(title),
		Category:     category,
		Difficulty:   difficulty,
		Description:  strings.TrimSpace(description),
		KeyPoints:    cleanList(keyPoints, MaxKeyPoints),
		Duration:     duration,
		Technologies: cleanList(technologies, MaxTechnologies),
	}, nil
}

// coerceDuration returns the whole-minute duration, or DefaultDuration and false when
// the value is not a number within [MinDuration, MaxDuration].
func coerceDuration(value any) (int, bool) {
	var minutes float64
	switch n := value.(type) {
	case float64:
		minutes = n
	case int:
		minutes = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return DefaultDuration, false
		}
		minutes = f
	default:
		return DefaultDuration, false
	}

	if math.IsNaN(minutes) || minutes < MinDuration || minutes > MaxDuration {
		return DefaultDuration, false
	}
	return int(minutes), true
}

// cleanList keeps the first limit entries, each converted to trimmed text.
func cleanList(items []any, limit int) []string {
	if len(items) > limit {
		items = items[:limit]
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, strings.TrimSpace(toText(item)))
	}
	return out
}

func toText(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}
		return string(b)
	}
}

func (v *Validator) warn(message string, fields logrus.Fields) {
	if v.logger == nil {
		return
	}
	v.logger.WithFields(fields).Warn(message)
}

func (v *Validator) info(message string) {
	if v.logger == nil {
		return
	}
	v.logger.Info(message)
}

package models

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// QuestionType is the kind of input a question expects.
type QuestionType string

const (
	QuestionText           QuestionType = "text"
	QuestionNumeric        QuestionType = "numeric"
	QuestionSingleChoice   QuestionType = "single_choice"
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionDropdown       QuestionType = "dropdown"
)

// ChoiceDelimiter separates options in Question.Choices.
const ChoiceDelimiter = "|"

// Valid reports whether t is a known question type.
func (t QuestionType) Valid() bool {
	switch t {
	case QuestionText, QuestionNumeric, QuestionSingleChoice, QuestionMultipleChoice, QuestionDropdown:
		return true
	}
	return false
}

// IsChoice reports whether answers are picked from Choices.
func (t QuestionType) IsChoice() bool {
	return t == QuestionSingleChoice || t == QuestionMultipleChoice || t == QuestionDropdown
}

// Question belongs to exactly one poll.
type Question struct {
	ID       uuid.UUID    `json:"id"`
	PollID   uuid.UUID    `json:"poll_id"`
	Content  string       `json:"content"`
	Type     QuestionType `json:"type"`
	Choices  string       `json:"choices"`
	Required bool         `json:"required"`
}

// Options splits Choices for choice questions. Other types have no options.
func (q *Question) Options() []string {
	if !q.Type.IsChoice() {
		return nil
	}
	return splitOptions(q.Choices)
}

// SameContent reports whether q already holds the editable fields of in.
func (q *Question) SameContent(in QuestionInput) bool {
	return q.Content == in.Content && q.Type == in.Type && q.Choices == in.Choices && q.Required == in.Required
}

// Apply copies the editable fields of in onto q.
func (q *Question) Apply(in QuestionInput) {
	q.Content = in.Content
	q.Type = in.Type
	q.Choices = in.Choices
	q.Required = in.Required
}

// AcceptsAnswer reports whether value is a well-formed answer to q.
// A nil or blank value is accepted only for optional questions.
func (q *Question) AcceptsAnswer(value *string) bool {
	if value == nil || strings.TrimSpace(*value) == "" {
		return !q.Required
	}
	v := strings.TrimSpace(*value)
	switch q.Type {
	case QuestionNumeric:
		_, err := strconv.ParseFloat(v, 64)
		return err == nil
	case QuestionSingleChoice, QuestionDropdown:
		return contains(q.Options(), v)
	case QuestionMultipleChoice:
		opts := q.Options()
		for _, picked := range splitOptions(v) {
			if !contains(opts, picked) {
				return false
			}
		}
		return true
	}
	return true
}

// QuestionInput is one element of an edit payload. A nil ID asks for a new question.
type QuestionInput struct {
	ID       *uuid.UUID   `json:"id"`
	Content  string       `json:"content" binding:"required,max=100"`
	Type     QuestionType `json:"type" binding:"omitempty,oneof=text numeric single_choice multiple_choice dropdown"`
	Choices  string       `json:"choices" binding:"max=200"`
	Required bool         `json:"required"`
}

// Normalize fills the default type.
func (in *QuestionInput) Normalize() {
	if in.Type == "" {
		in.Type = QuestionText
	}
}

func splitOptions(s string) []string {
	var out []string
	for _, o := range strings.Split(s, ChoiceDelimiter) {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

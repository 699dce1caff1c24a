package domain

import (
	"errors"
	"fmt"
)

// QuestionKind defines how an answer is collected and coerced.
type QuestionKind string

const (
	KindText         QuestionKind = "text"
	KindNumber       QuestionKind = "number"
	KindSingleSelect QuestionKind = "select"
	KindMultiSelect  QuestionKind = "multi-select"
)

// IsSelect reports whether the kind requires an option list.
func (k QuestionKind) IsSelect() bool {
	return k == KindSingleSelect || k == KindMultiSelect
}

// Valid reports whether k is one of the known kinds.
func (k QuestionKind) Valid() bool {
	switch k {
	case KindText, KindNumber, KindSingleSelect, KindMultiSelect:
		return true
	}
	return false
}

// Question is a single typed step of the intake script.
type Question struct {
	Key     string       `json:"key" yaml:"key"`
	Prompt  string       `json:"prompt" yaml:"prompt"`
	Kind    QuestionKind `json:"kind" yaml:"kind"`
	Options []string     `json:"options,omitempty" yaml:"options,omitempty"`
}

// ErrEmptyCatalog is returned when a catalog is built without questions.
var ErrEmptyCatalog = errors.New("catalog has no questions")

// Catalog is the ordered, immutable questionnaire.
// The position of a question is its step index.
type Catalog struct {
	questions []Question
	index     map[string]int
}

// NewCatalog builds a catalog, enforcing unique keys and kind/option consistency.
func NewCatalog(questions []Question) (*Catalog, error) {
	if len(questions) == 0 {
		return nil, ErrEmptyCatalog
	}

	c := &Catalog{
		questions: make([]Question, len(questions)),
		index:     make(map[string]int, len(questions)),
	}
	for i, q := range questions {
		if q.Key == "" {
			return nil, fmt.Errorf("question %d: empty key", i)
		}
		if _, dup := c.index[q.Key]; dup {
			return nil, fmt.Errorf("question %d: duplicate key %q", i, q.Key)
		}
		if !q.Kind.Valid() {
			return nil, fmt.Errorf("question %q: unknown kind %q", q.Key, q.Kind)
		}
		if q.Kind.IsSelect() && len(q.Options) == 0 {
			return nil, fmt.Errorf("question %q: %s requires at least one option", q.Key, q.Kind)
		}
		if !q.Kind.IsSelect() && len(q.Options) > 0 {
			return nil, fmt.Errorf("question %q: options are only allowed on select kinds", q.Key)
		}

		q.Options = append([]string(nil), q.Options...)
		c.questions[i] = q
		c.index[q.Key] = i
	}
	return c, nil
}

// MustCatalog is like NewCatalog but panics on error. Intended for static definitions.
func MustCatalog(questions []Question) *Catalog {
	c, err := NewCatalog(questions)
	if err != nil {
		panic(err)
	}
	return c
}

// At returns the question at step i.
func (c *Catalog) At(i int) (Question, bool) {
	if i < 0 || i >= len(c.questions) {
		return Question{}, false
	}
	return c.questions[i], true
}

// Len returns the number of steps.
func (c *Catalog) Len() int {
	return len(c.questions)
}

// Index returns the step index of key.
func (c *Catalog) Index(key string) (int, bool) {
	i, ok := c.index[key]
	return i, ok
}

// Questions returns a copy of the ordered questions.
func (c *Catalog) Questions() []Question {
	out := make([]Question, len(c.questions))
	copy(out, c.questions)
	return out
}

// Package validation implements table-driven coercion of raw answers into typed profile values.
package validation

import (
	"github.com/aretw0/realign/pkg/domain"
)

// Validator dispatches answers to the rule registered for the question key,
// falling back to a rule chosen by question kind.
type Validator struct {
	rules Table
}

// Option configures the Validator.
type Option func(*Validator)

// WithRule registers or replaces the rule for key.
func WithRule(key string, rule Rule) Option {
	return func(v *Validator) {
		v.rules[key] = rule
	}
}

// WithTable replaces the whole rule table.
func WithTable(t Table) Option {
	return func(v *Validator) {
		v.rules = make(Table, len(t))
		for k, r := range t {
			v.rules[k] = r
		}
	}
}

// New creates a Validator seeded with DefaultTable.
func New(opts ...Option) *Validator {
	v := &Validator{rules: DefaultTable()}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Validate coerces raw for q. Failures are *domain.ValidationError.
func (v *Validator) Validate(q domain.Question, raw string) (domain.Value, error) {
	return v.RuleFor(q)(q, raw)
}

// RuleFor resolves the rule that applies to q.
func (v *Validator) RuleFor(q domain.Question) Rule {
	if r, ok := v.rules[q.Key]; ok && r != nil {
		return r
	}
	return ByKind(q.Kind)
}

// Keys returns the keys with an explicit rule.
func (v *Validator) Keys() []string {
	keys := make([]string, 0, len(v.rules))
	for k := range v.rules {
		keys = append(keys, k)
	}
	return keys
}

package validation

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/aretw0/realign/pkg/domain"
)

// MinimumAge is the eligibility threshold enforced on the age question.
const MinimumAge = 18

// Rule coerces raw input for a question into a typed value.
type Rule func(q domain.Question, raw string) (domain.Value, error)

// Table maps question keys to rules.
type Table map[string]Rule

// DefaultTable returns the rules of the health questionnaire.
func DefaultTable() Table {
	return Table{
		"name":           Text,
		"age":            Eligibility(MinimumAge),
		"gender":         Gender,
		"height":         PositiveNumber,
		"weight":         PositiveNumber,
		"working_status": Text,
		"lifestyle":      Text,
		"goals":          List,
		"health_issues":  List,
	}
}

// ByKind returns the fallback rule for questions without a keyed rule.
func ByKind(kind domain.QuestionKind) Rule {
	switch kind {
	case domain.KindNumber:
		return PositiveNumber
	case domain.KindMultiSelect:
		return List
	default:
		return Text
	}
}

// leadingNumber matches the numeric prefix of an answer such as "19 years".
var leadingNumber = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?`)

// ParseNumber reads the leading decimal number of s, ignoring surrounding whitespace.
func ParseNumber(s string) (float64, bool) {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// Text passes the trimmed input through. It never fails.
func Text(_ domain.Question, raw string) (domain.Value, error) {
	return domain.TextValue(strings.TrimSpace(raw)), nil
}

// PositiveNumber accepts numbers strictly greater than zero.
func PositiveNumber(q domain.Question, raw string) (domain.Value, error) {
	f, ok := ParseNumber(raw)
	if !ok || f <= 0 {
		return domain.Value{}, &domain.ValidationError{
			Key:    q.Key,
			Code:   domain.CodeOutOfRange,
			Reason: "expected a number greater than zero",
		}
	}
	return domain.NumberValue(f), nil
}

// Eligibility accepts numbers of at least min. Anything else is a hard block.
func Eligibility(min float64) Rule {
	return func(q domain.Question, raw string) (domain.Value, error) {
		f, ok := ParseNumber(raw)
		if !ok || f < min {
			return domain.Value{}, &domain.ValidationError{
				Key:         q.Key,
				Code:        domain.CodeOutOfRange,
				Eligibility: true,
				Reason:      "below the minimum of " + strconv.FormatFloat(min, 'f', -1, 64),
			}
		}
		return domain.NumberValue(f), nil
	}
}

// Gender maps free text to male, female or other. It never fails.
// "female" is checked first because it contains "male".
func Gender(_ domain.Question, raw string) (domain.Value, error) {
	normalized := strings.ToLower(raw)
	switch {
	case strings.Contains(normalized, "female"):
		return domain.TextValue("female"), nil
	case strings.Contains(normalized, "male"):
		return domain.TextValue("male"), nil
	default:
		return domain.TextValue("other"), nil
	}
}

// List splits comma separated input. "none" yields an empty list.
// Order and duplicates are kept as typed.
func List(_ domain.Question, raw string) (domain.Value, error) {
	trimmed := strings.TrimSpace(raw)
	if strings.EqualFold(trimmed, "none") {
		return domain.ListValue(nil), nil
	}

	var items []string
	for _, part := range strings.Split(trimmed, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return domain.ListValue(items), nil
}

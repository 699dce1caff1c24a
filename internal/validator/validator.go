package validator

import (
	"fmt"
	"strings"

	"github.com/aretw0/realign/pkg/domain"
)

// RuleKinds maps question keys to the kind their validation rule expects.
// A keyed rule applied to a question of another kind is reported.
var RuleKinds = map[string]domain.QuestionKind{
	"age":           domain.KindNumber,
	"height":        domain.KindNumber,
	"weight":        domain.KindNumber,
	"goals":         domain.KindMultiSelect,
	"health_issues": domain.KindMultiSelect,
}

// RequiredKeys are the fields the advice service reads.
var RequiredKeys = []string{
	"name", "age", "gender", "height", "weight",
	"working_status", "lifestyle", "goals", "health_issues",
}

// ValidateCatalog checks a questionnaire and reports every problem found,
// rather than stopping at the first one.
// When strict is set, keys required by the advice service must all be present.
func ValidateCatalog(questions []domain.Question, strict bool) error {
	var errors []string

	if len(questions) == 0 {
		return fmt.Errorf("found 1 errors:\n- catalog has no questions")
	}

	seen := make(map[string]int)
	for i, q := range questions {
		label := q.Key
		if label == "" {
			label = fmt.Sprintf("#%d", i)
			errors = append(errors, fmt.Sprintf("Question %s has an empty key", label))
		}
		if prev, dup := seen[q.Key]; dup && q.Key != "" {
			errors = append(errors, fmt.Sprintf("Duplicate key '%s' at positions %d and %d", q.Key, prev, i))
		}
		seen[q.Key] = i

		if strings.TrimSpace(q.Prompt) == "" {
			errors = append(errors, fmt.Sprintf("Question '%s' has an empty prompt", label))
		}
		if !q.Kind.Valid() {
			errors = append(errors, fmt.Sprintf("Question '%s' has unknown kind '%s'", label, q.Kind))
			continue
		}
		if q.Kind.IsSelect() && len(q.Options) == 0 {
			errors = append(errors, fmt.Sprintf("Question '%s' is %s but has no options", label, q.Kind))
		}
		if !q.Kind.IsSelect() && len(q.Options) > 0 {
			errors = append(errors, fmt.Sprintf("Question '%s' is %s but declares options", label, q.Kind))
		}
		if want, ok := RuleKinds[q.Key]; ok && want != q.Kind {
			errors = append(errors, fmt.Sprintf("Question '%s' is %s but its rule expects %s", label, q.Kind, want))
		}
	}

	if strict {
		for _, key := range RequiredKeys {
			if _, ok := seen[key]; !ok {
				errors = append(errors, fmt.Sprintf("Missing required key '%s'", key))
			}
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("found %d errors:\n- %s", len(errors), strings.Join(errors, "\n- "))
	}

	return nil
}

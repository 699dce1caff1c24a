package dto

import (
	"strings"

	"github.com/aretw0/realign/pkg/domain"
)

// QuestionMetadata is the on-disk shape of a catalog entry.
// It uses "mapstructure" tags and accepts the short aliases used by the web
// widget configuration (text, type).
type QuestionMetadata struct {
	Key     string   `json:"key" mapstructure:"key"`
	ID      string   `json:"id" mapstructure:"id"`
	Prompt  string   `json:"prompt" mapstructure:"prompt"`
	Text    string   `json:"text" mapstructure:"text"`
	Kind    string   `json:"kind" mapstructure:"kind"`
	Type    string   `json:"type" mapstructure:"type"`
	Options []string `json:"options" mapstructure:"options"`
}

// ToDomain resolves aliases and normalises the kind name.
func (m QuestionMetadata) ToDomain() domain.Question {
	q := domain.Question{
		Key:    firstNonEmpty(m.Key, m.ID),
		Prompt: strings.TrimSpace(firstNonEmpty(m.Prompt, m.Text)),
		Kind:   normalizeKind(firstNonEmpty(m.Kind, m.Type)),
	}
	for _, opt := range m.Options {
		if opt = strings.TrimSpace(opt); opt != "" {
			q.Options = append(q.Options, opt)
		}
	}
	return q
}

func normalizeKind(kind string) domain.QuestionKind {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "text", "string":
		return domain.KindText
	case "number", "numeric":
		return domain.KindNumber
	case "select", "single-select", "single_select":
		return domain.KindSingleSelect
	case "multi-select", "multiselect", "multi_select":
		return domain.KindMultiSelect
	default:
		return domain.QuestionKind(kind)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

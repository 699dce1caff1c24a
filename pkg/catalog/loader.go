// Package catalog provides the intake questionnaire, either the built-in health
// script or one loaded from a YAML file.
package catalog

import (
	"fmt"
	"os"

	"github.com/aretw0/realign/internal/dto"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"
)

type document struct {
	Questions []map[string]any `yaml:"questions"`
}

// LoadFile reads a catalog from a YAML file.
func LoadFile(path string) (*domain.Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	questions, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return domain.NewCatalog(questions)
}

// Parse decodes catalog YAML into questions without enforcing catalog invariants.
// Options may be written as a list or as a single comma separated string.
func Parse(data []byte) ([]domain.Question, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid catalog yaml: %w", err)
	}

	questions := make([]domain.Question, 0, len(doc.Questions))
	for i, raw := range doc.Questions {
		var md dto.QuestionMetadata
		decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			DecodeHook: mapstructure.StringToSliceHookFunc(","),
			Result:     &md,
		})
		if err != nil {
			return nil, err
		}
		if err := decoder.Decode(raw); err != nil {
			return nil, fmt.Errorf("question %d: %w", i, err)
		}
		questions = append(questions, md.ToDomain())
	}
	return questions, nil
}

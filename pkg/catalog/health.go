package catalog

import "github.com/aretw0/realign/pkg/domain"

// HealthQuestions returns the default intake questionnaire.
func HealthQuestions() []domain.Question {
	return []domain.Question{
		{Key: "name", Prompt: "What is your name?", Kind: domain.KindText},
		{Key: "age", Prompt: "How old are you? (Min age 18)", Kind: domain.KindNumber},
		{
			Key:     "gender",
			Prompt:  "What is your gender?",
			Kind:    domain.KindSingleSelect,
			Options: []string{"Male", "Female", "Prefer not to say"},
		},
		{Key: "height", Prompt: "What is your height (in cm)?", Kind: domain.KindNumber},
		{Key: "weight", Prompt: "What is your weight (in kg)?", Kind: domain.KindNumber},
		{
			Key:     "working_status",
			Prompt:  "What best describes your current working status?",
			Kind:    domain.KindSingleSelect,
			Options: []string{"Working Professional", "Homemaker", "Student", "Retired", "Others"},
		},
		{
			Key:     "lifestyle",
			Prompt:  "How would you describe your daily lifestyle?",
			Kind:    domain.KindSingleSelect,
			Options: []string{"Sedentary", "Active", "Others"},
		},
		{
			Key:     "goals",
			Prompt:  "What are your fitness goals?",
			Kind:    domain.KindMultiSelect,
			Options: []string{"Weight Loss", "Stamina", "Strength", "Flexibility", "Mindfulness", "General Health"},
		},
		{
			Key:    "health_issues",
			Prompt: "Do you have any of the following health concerns?",
			Kind:   domain.KindMultiSelect,
			Options: []string{
				"Thyroid - Hypothyroid", "Thyroid - Hyperthyroid", "Diabetes", "High BP", "Low BP",
				"Migraine", "PCOS / PCOD", "Digestive Issues", "Poor Sleep", "High Stress", "None", "Others",
			},
		},
	}
}

// Health returns the default catalog.
func Health() *domain.Catalog {
	return domain.MustCatalog(HealthQuestions())
}

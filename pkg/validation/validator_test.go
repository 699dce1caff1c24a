package validation_test

import (
	"errors"
	"testing"

	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func q(key string, kind domain.QuestionKind) domain.Question {
	return domain.Question{Key: key, Prompt: key + "?", Kind: kind}
}

func TestValidate_Age(t *testing.T) {
	v := validation.New()
	age := q("age", domain.KindNumber)

	for _, raw := range []string{"17", "0", "-20", "abc", "", "seventeen", "17.99"} {
		_, err := v.Validate(age, raw)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr), "input %q should be rejected", raw)
		assert.Equal(t, domain.CodeOutOfRange, verr.Code)
		assert.True(t, verr.Eligibility, "age failures are eligibility blocks")
		assert.Equal(t, "age", verr.Key)
	}

	for raw, want := range map[string]float64{"18": 18, " 19 ": 19, "42 years": 42, "18.5": 18.5} {
		val, err := v.Validate(age, raw)
		require.NoError(t, err, raw)
		assert.Equal(t, domain.NumberValue(want), val)
	}
}

func TestValidate_PositiveNumbers(t *testing.T) {
	v := validation.New()
	for _, key := range []string{"height", "weight"} {
		question := q(key, domain.KindNumber)

		_, err := v.Validate(question, "0")
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.False(t, verr.Eligibility)

		_, err = v.Validate(question, "tall")
		assert.Error(t, err)

		val, err := v.Validate(question, "172.5")
		require.NoError(t, err)
		assert.Equal(t, 172.5, val.Raw())
	}
}

func TestValidate_Gender(t *testing.T) {
	v := validation.New()
	gender := q("gender", domain.KindSingleSelect)

	cases := map[string]string{
		"I'm a Female!":     "female",
		"FEMALE":            "female",
		"male":              "male",
		"Male":              "male",
		"Prefer not to say": "other",
		"":                  "other",
	}
	for raw, want := range cases {
		val, err := v.Validate(gender, raw)
		require.NoError(t, err)
		assert.Equal(t, want, val.Raw(), "input %q", raw)
	}
}

func TestValidate_Lists(t *testing.T) {
	v := validation.New()
	for _, key := range []string{"goals", "health_issues"} {
		question := q(key, domain.KindMultiSelect)

		for _, raw := range []string{"none", "  NONE  ", "None"} {
			val, err := v.Validate(question, raw)
			require.NoError(t, err)
			assert.Equal(t, []string{}, val.Raw(), "input %q", raw)
		}

		val, err := v.Validate(question, "Strength, Flexibility")
		require.NoError(t, err)
		assert.Equal(t, []string{"Strength", "Flexibility"}, val.Raw())

		val, err = v.Validate(question, "Stamina,, Stamina ,")
		require.NoError(t, err)
		assert.Equal(t, []string{"Stamina", "Stamina"}, val.Raw())
	}
}

func TestValidate_TextPassThrough(t *testing.T) {
	v := validation.New()
	for _, key := range []string{"name", "working_status", "lifestyle"} {
		val, err := v.Validate(q(key, domain.KindText), "  Asha  ")
		require.NoError(t, err)
		assert.Equal(t, "Asha", val.Raw())
	}
}

func TestValidate_FallbackByKind(t *testing.T) {
	v := validation.New()

	_, err := v.Validate(q("bmi", domain.KindNumber), "-1")
	assert.Error(t, err)

	val, err := v.Validate(q("injuries", domain.KindMultiSelect), "knee, back")
	require.NoError(t, err)
	assert.Equal(t, []string{"knee", "back"}, val.Raw())

	val, err = v.Validate(q("notes", domain.KindText), " anything ")
	require.NoError(t, err)
	assert.Equal(t, "anything", val.Raw())
}

func TestWithRule_Overrides(t *testing.T) {
	v := validation.New(validation.WithRule("age", validation.Eligibility(21)))
	_, err := v.Validate(q("age", domain.KindNumber), "19")
	assert.Error(t, err)
}

package catalog_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/realign/pkg/catalog"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHealth_Order(t *testing.T) {
	c := catalog.Health()
	require.Equal(t, 9, c.Len())

	want := []string{"name", "age", "gender", "height", "weight", "working_status", "lifestyle", "goals", "health_issues"}
	for i, key := range want {
		q, ok := c.At(i)
		require.True(t, ok)
		assert.Equal(t, key, q.Key)
	}

	gender, _ := c.At(2)
	assert.Equal(t, domain.KindSingleSelect, gender.Kind)
	assert.Equal(t, []string{"Male", "Female", "Prefer not to say"}, gender.Options)
}

func TestParse_AcceptsWidgetAliases(t *testing.T) {
	data := []byte(`
questions:
  - key: name
    text: What is your name?
  - id: age
    text: How old are you?
    type: number
  - key: goals
    prompt: What are your fitness goals?
    kind: multi-select
    options: "Stamina, Strength ,Flexibility"
`)
	questions, err := catalog.Parse(data)
	require.NoError(t, err)
	require.Len(t, questions, 3)

	assert.Equal(t, domain.Question{Key: "name", Prompt: "What is your name?", Kind: domain.KindText}, questions[0])
	assert.Equal(t, "age", questions[1].Key)
	assert.Equal(t, domain.KindNumber, questions[1].Kind)
	assert.Equal(t, []string{"Stamina", "Strength", "Flexibility"}, questions[2].Options)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
questions:
  - key: name
    prompt: Name?
  - key: lifestyle
    prompt: Lifestyle?
    kind: select
    options: [Sedentary, Active]
`), 0o644))

	c, err := catalog.LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())

	_, err = catalog.LoadFile(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}

func TestLoadFile_RejectsInconsistentKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
questions:
  - key: gender
    prompt: Gender?
    kind: select
`), 0o644))

	_, err := catalog.LoadFile(path)
	assert.ErrorContains(t, err, "at least one option")
}

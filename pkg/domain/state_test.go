package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhase_StepOnlyWhileCollecting(t *testing.T) {
	_, ok := Selecting().Step()
	assert.False(t, ok)
	_, ok = Chatting().Step()
	assert.False(t, ok)
	_, ok = AwaitingAdvice().Step()
	assert.False(t, ok)

	step, ok := Collecting(4).Step()
	assert.True(t, ok)
	assert.Equal(t, 4, step)

	assert.Equal(t, ModeSelecting, Phase{}.Mode())
	assert.Equal(t, "collecting(4)", Collecting(4).String())
}

func TestPhase_JSON(t *testing.T) {
	data, err := json.Marshal(Collecting(2))
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"collecting","step":2}`, string(data))

	data, err = json.Marshal(Chatting())
	require.NoError(t, err)
	assert.JSONEq(t, `{"mode":"chatting"}`, string(data))

	var p Phase
	require.NoError(t, json.Unmarshal([]byte(`{"mode":"collecting","step":3}`), &p))
	assert.Equal(t, Collecting(3), p)

	assert.Error(t, json.Unmarshal([]byte(`{"mode":"collecting"}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"mode":"chatting","step":1}`), &p))
	assert.Error(t, json.Unmarshal([]byte(`{"mode":"dancing"}`), &p))
}

func TestState_SnapshotIsDeep(t *testing.T) {
	s := NewState("s", "t")
	s.Profile["goals"] = ListValue([]string{"Strength"})
	s.Messages = append(s.Messages, Message{Text: "q", Sender: SenderBot, Options: []string{"A"}})

	c := s.Snapshot()
	c.Profile["goals"].List[0] = "Changed"
	c.Messages[0].Options[0] = "B"
	c.Profile["name"] = TextValue("x")

	assert.Equal(t, "Strength", s.Profile["goals"].List[0])
	assert.Equal(t, "A", s.Messages[0].Options[0])
	assert.NotContains(t, s.Profile, "name")
}

func TestState_JSONRoundTrip(t *testing.T) {
	s := NewState("s", "t")
	s.Phase = Collecting(8)
	s.Profile["age"] = NumberValue(30)
	s.Profile["goals"] = ListValue(nil)

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var loaded State
	require.NoError(t, json.Unmarshal(data, &loaded))
	assert.Equal(t, s.Phase, loaded.Phase)
	assert.Equal(t, 30.0, loaded.Profile.Payload()["age"])
	assert.Equal(t, []string{}, loaded.Profile.Payload()["goals"])
}

func TestNewCatalog(t *testing.T) {
	_, err := NewCatalog(nil)
	assert.ErrorIs(t, err, ErrEmptyCatalog)

	_, err = NewCatalog([]Question{{Key: "a", Prompt: "?", Kind: KindText}, {Key: "a", Prompt: "?", Kind: KindText}})
	assert.ErrorContains(t, err, "duplicate key")

	_, err = NewCatalog([]Question{{Key: "g", Prompt: "?", Kind: KindSingleSelect}})
	assert.ErrorContains(t, err, "at least one option")

	_, err = NewCatalog([]Question{{Key: "n", Prompt: "?", Kind: KindNumber, Options: []string{"1"}}})
	assert.ErrorContains(t, err, "only allowed on select kinds")

	c, err := NewCatalog([]Question{
		{Key: "name", Prompt: "Name?", Kind: KindText},
		{Key: "gender", Prompt: "Gender?", Kind: KindSingleSelect, Options: []string{"Male", "Female"}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, c.Len())
	i, ok := c.Index("gender")
	assert.True(t, ok)
	assert.Equal(t, 1, i)
	_, ok = c.At(2)
	assert.False(t, ok)
}

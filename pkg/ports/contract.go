package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/realign/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "session_contract")
		state.Generation = 3
		state.Phase = domain.Collecting(2)
		state.Profile["name"] = domain.TextValue("Asha")
		state.Profile["age"] = domain.NumberValue(29)
		state.Profile["goals"] = domain.ListValue([]string{"Strength", "Stamina"})
		state.Messages = append(state.Messages,
			domain.BotMessage("What is your gender?"),
			domain.UserMessage("female"),
		)

		err := store.Save(ctx, sessionID, state)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.SessionID, loaded.SessionID)
		assert.Equal(t, state.ThreadID, loaded.ThreadID)
		assert.Equal(t, state.Generation, loaded.Generation)
		assert.Equal(t, state.Phase, loaded.Phase)
		assert.Equal(t, state.Profile, loaded.Profile)
		assert.Equal(t, state.Messages, loaded.Messages)
		assert.Empty(t, loaded.Sealed)
	})

	t.Run("Loaded State Is Independent", func(t *testing.T) {
		state := domain.NewState(sessionID, "session_contract")
		require.NoError(t, store.Save(ctx, sessionID, state))

		state.Profile["name"] = domain.TextValue("changed after save")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.NotContains(t, loaded.Profile, "name")

		loaded.Messages = append(loaded.Messages, domain.UserMessage("local only"))
		again, err := store.Load(ctx, sessionID)
		require.NoError(t, err)
		assert.Len(t, again.Messages, 0)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, sessionID, domain.NewState(sessionID, "t"))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")

		assert.NoError(t, store.Delete(ctx, sessionID), "Deleting twice should be a no-op")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "t1"))
		_ = store.Save(ctx, id2, domain.NewState(id2, "t2"))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)

		require.NoError(t, store.Delete(ctx, id1))
		sessions, err = store.List(ctx)
		require.NoError(t, err)
		assert.NotContains(t, sessions, id1)
	})
}

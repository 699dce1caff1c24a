package domain

import (
	"reflect"
)

// StateDiff represents the changes between two states.
// It is serialized to JSON for partial updates on the client.
type StateDiff struct {
	// SessionID is always present to identify the target.
	SessionID string `json:"session_id"`

	Phase      *Phase  `json:"phase,omitempty"`
	Generation *uint64 `json:"generation,omitempty"`

	// Profile contains only changed or added keys. A restart that drops keys
	// sends them with a nil value.
	Profile map[string]any `json:"profile,omitempty"`

	// Messages holds entries appended since the old state. The log is append-only.
	Messages []Message `json:"messages,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (initial load).
// Returns nil when nothing changed.
func Diff(oldState, newState *State) *StateDiff {
	if newState == nil {
		return nil
	}

	diff := &StateDiff{
		SessionID: newState.SessionID,
	}

	if oldState == nil || oldState.Phase != newState.Phase {
		phase := newState.Phase
		diff.Phase = &phase
	}
	if oldState == nil || oldState.Generation != newState.Generation {
		gen := newState.Generation
		diff.Generation = &gen
	}

	diff.Profile = diffProfile(oldState, newState)
	diff.Messages = diffMessages(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffProfile(old *State, new *State) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Profile {
			delta[k] = v.Raw()
		}
		if len(delta) == 0 {
			return nil
		}
		return delta
	}

	for k, newVal := range new.Profile {
		oldVal, exists := old.Profile[k]
		if !exists || !reflect.DeepEqual(oldVal, newVal) {
			delta[k] = newVal.Raw()
		}
	}

	for k := range old.Profile {
		if _, exists := new.Profile[k]; !exists {
			delta[k] = nil
		}
	}

	if len(delta) == 0 {
		return nil
	}
	return delta
}

// diffMessages assumes append-only behavior for the message log.
func diffMessages(old *State, new *State) []Message {
	if len(new.Messages) == 0 {
		return nil
	}
	if old == nil {
		return cloneMessages(new.Messages)
	}
	if len(new.Messages) > len(old.Messages) {
		return cloneMessages(new.Messages[len(old.Messages):])
	}
	return nil
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.Phase == nil &&
		d.Generation == nil &&
		len(d.Profile) == 0 &&
		len(d.Messages) == 0
}

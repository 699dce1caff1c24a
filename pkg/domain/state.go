package domain

import (
	"encoding/json"
	"fmt"
)

// Mode defines the conversation branch the session is in.
type Mode string

const (
	ModeSelecting      Mode = "selecting"       // Waiting for the user to pick a service
	ModeCollecting     Mode = "collecting"      // Walking the questionnaire
	ModeAwaitingAdvice Mode = "awaiting_advice" // Profile submitted, result pending
	ModeChatting       Mode = "chatting"        // Freeform relay
)

// Phase is the engine position. The step index only exists while collecting,
// so a Phase can never carry a step in any other mode.
type Phase struct {
	mode Mode
	step int
}

// Selecting is the initial phase.
func Selecting() Phase { return Phase{mode: ModeSelecting} }

// Collecting is the phase of answering the question at step.
func Collecting(step int) Phase { return Phase{mode: ModeCollecting, step: step} }

// AwaitingAdvice is the transient phase while the profile submission is in flight.
func AwaitingAdvice() Phase { return Phase{mode: ModeAwaitingAdvice} }

// Chatting is the absorbing freeform phase.
func Chatting() Phase { return Phase{mode: ModeChatting} }

// Mode returns the phase mode. The zero Phase is Selecting.
func (p Phase) Mode() Mode {
	if p.mode == "" {
		return ModeSelecting
	}
	return p.mode
}

// Step returns the active step index; ok is false outside Collecting.
func (p Phase) Step() (step int, ok bool) {
	if p.mode != ModeCollecting {
		return 0, false
	}
	return p.step, true
}

func (p Phase) String() string {
	if step, ok := p.Step(); ok {
		return fmt.Sprintf("%s(%d)", p.mode, step)
	}
	return string(p.Mode())
}

type phaseJSON struct {
	Mode Mode `json:"mode"`
	Step *int `json:"step,omitempty"`
}

func (p Phase) MarshalJSON() ([]byte, error) {
	out := phaseJSON{Mode: p.Mode()}
	if step, ok := p.Step(); ok {
		out.Step = &step
	}
	return json.Marshal(out)
}

func (p *Phase) UnmarshalJSON(data []byte) error {
	var in phaseJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	switch in.Mode {
	case ModeCollecting:
		if in.Step == nil || *in.Step < 0 {
			return fmt.Errorf("phase %q requires a non-negative step", in.Mode)
		}
		*p = Collecting(*in.Step)
	case ModeSelecting, ModeAwaitingAdvice, ModeChatting, "":
		if in.Step != nil {
			return fmt.Errorf("phase %q cannot carry a step", in.Mode)
		}
		*p = Phase{mode: in.Mode}
	default:
		return fmt.Errorf("unknown mode %q", in.Mode)
	}
	return nil
}

// State is the per-session bundle owned by a single writer.
type State struct {
	// SessionID identifies the widget instance.
	SessionID string `json:"session_id"`

	// ThreadID correlates freeform chat turns with the relay service.
	// Generated once per session; never used for auth.
	ThreadID string `json:"thread_id"`

	// Generation increments on every restart. Asynchronous results carry the
	// generation they were issued under and are dropped when it no longer matches.
	Generation uint64 `json:"generation"`

	Phase    Phase     `json:"phase"`
	Profile  Profile   `json:"profile"`
	Messages []Message `json:"messages"`

	// PendingChats counts relay requests still in flight.
	PendingChats int `json:"pending_chats,omitempty"`

	// Sealed carries an encrypted snapshot when a store middleware hides the
	// state at rest. Empty for live states.
	Sealed []byte `json:"sealed,omitempty"`
}

// NewState creates a clean state in the Selecting phase.
func NewState(sessionID, threadID string) *State {
	return &State{
		SessionID: sessionID,
		ThreadID:  threadID,
		Phase:     Selecting(),
		Profile:   make(Profile),
		Messages:  []Message{},
	}
}

// Snapshot returns a deep copy of the state.
func (s *State) Snapshot() *State {
	if s == nil {
		return nil
	}
	out := *s
	out.Profile = s.Profile.Clone()
	out.Messages = cloneMessages(s.Messages)
	if out.Messages == nil {
		out.Messages = []Message{}
	}
	if s.Sealed != nil {
		out.Sealed = append([]byte(nil), s.Sealed...)
	}
	return &out
}

// Mode is shorthand for s.Phase.Mode().
func (s *State) Mode() Mode {
	return s.Phase.Mode()
}

// LastMessage returns the most recent log entry.
func (s *State) LastMessage() (Message, bool) {
	if len(s.Messages) == 0 {
		return Message{}, false
	}
	return s.Messages[len(s.Messages)-1], true
}

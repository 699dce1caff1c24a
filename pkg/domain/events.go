package domain

import (
	"context"
	"time"
)

// Event is an input to the transition function.
type Event interface {
	isEvent()
}

// SelectEvent is an explicit choice of a service (e.g. the Health Advice button).
type SelectEvent struct {
	Option string
}

// InputEvent is raw text typed by the user.
type InputEvent struct {
	Text string
}

// AdviceResolvedEvent delivers the outcome of a profile submission.
type AdviceResolvedEvent struct {
	Generation uint64
	Report     *Report
	Err        error
}

// ChatResolvedEvent delivers the outcome of a relay request.
type ChatResolvedEvent struct {
	Generation uint64
	Reply      string
	Err        error
}

func (SelectEvent) isEvent()         {}
func (InputEvent) isEvent()          {}
func (AdviceResolvedEvent) isEvent() {}
func (ChatResolvedEvent) isEvent()   {}

// Effect is asynchronous work requested by a transition.
// Its completion must be fed back as exactly one Event.
type Effect interface {
	isEffect()
}

// SubmitAdviceEffect asks for the profile to be scored.
type SubmitAdviceEffect struct {
	Generation uint64
	Profile    Profile
}

// SendChatEffect asks for a freeform query to be relayed.
type SendChatEffect struct {
	Generation uint64
	Query      string
	ThreadID   string
}

func (SubmitAdviceEffect) isEffect() {}
func (SendChatEffect) isEffect()     {}

// EventType defines the category of a lifecycle event.
type EventType string

const (
	EventTransition       EventType = "transition"
	EventValidationFailed EventType = "validation_failed"
	EventRequest          EventType = "request"
	EventResponse         EventType = "response"
)

// Endpoint names used in RequestEvent.
const (
	EndpointAdvice = "health-advice"
	EndpointChat   = "chat"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// TransitionEvent is emitted when the phase changes.
type TransitionEvent struct {
	EventBase
	From Phase `json:"from"`
	To   Phase `json:"to"`
}

// ValidationEvent is emitted when an answer is rejected.
type ValidationEvent struct {
	EventBase
	Key         string         `json:"key"`
	Code        ValidationCode `json:"code"`
	Eligibility bool           `json:"eligibility,omitempty"`
}

// RequestEvent describes a call to an external service.
type RequestEvent struct {
	EventBase
	Endpoint string        `json:"endpoint"`
	Duration time.Duration `json:"duration,omitempty"`
	IsError  bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for observability.
type LifecycleHooks struct {
	OnTransition       func(context.Context, *TransitionEvent)
	OnValidationFailed func(context.Context, *ValidationEvent)
	OnRequest          func(context.Context, *RequestEvent)
	OnResponse         func(context.Context, *RequestEvent)
}

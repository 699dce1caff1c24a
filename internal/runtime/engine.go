package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/pkg/domain"
	"github.com/aretw0/realign/pkg/validation"
)

// OptionHealthAdvice is the identifier of the structured intake service.
const OptionHealthAdvice = "health"

// FieldValidator coerces a raw answer for a question.
type FieldValidator interface {
	Validate(q domain.Question, raw string) (domain.Value, error)
}

// Engine is the conversation state machine.
// Apply is a pure function of (state, event); asynchronous work is returned as
// effects for the host to execute and feed back as events.
type Engine struct {
	catalog   *domain.Catalog
	validator FieldValidator
	logger    *slog.Logger
	hooks     domain.LifecycleHooks
	now       func() time.Time
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithValidator replaces the default field validator.
func WithValidator(v FieldValidator) EngineOption {
	return func(e *Engine) {
		if v != nil {
			e.validator = v
		}
	}
}

// NewEngine creates a new engine for the given catalog.
func NewEngine(catalog *domain.Catalog, opts ...EngineOption) *Engine {
	e := &Engine{
		catalog:   catalog,
		validator: validation.New(),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the questionnaire driving the engine.
func (e *Engine) Catalog() *domain.Catalog {
	return e.catalog
}

// Start creates the initial state of a session with the welcome message.
func (e *Engine) Start(sessionID, threadID string) *domain.State {
	state := domain.NewState(sessionID, threadID)
	state.Messages = append(state.Messages, welcomeMessage())
	return state
}

// Apply computes the next state for ev. The input state is never mutated.
// The returned error is reserved for malformed events; user mistakes are
// reported as messages in the returned state.
func (e *Engine) Apply(ctx context.Context, state *domain.State, ev domain.Event) (*domain.State, []domain.Effect, error) {
	if state == nil {
		return nil, nil, fmt.Errorf("cannot apply event to nil state")
	}

	next := state.Snapshot()
	if next.Profile == nil {
		next.Profile = make(domain.Profile)
	}

	var effects []domain.Effect
	var err error

	switch ev := ev.(type) {
	case domain.SelectEvent:
		err = e.applySelect(next, ev)
	case domain.InputEvent:
		effects = e.applyInput(ctx, next, ev)
	case domain.AdviceResolvedEvent:
		e.applyAdvice(next, ev)
	case domain.ChatResolvedEvent:
		e.applyChat(next, ev)
	default:
		err = fmt.Errorf("unsupported event %T", ev)
	}
	if err != nil {
		return nil, nil, err
	}

	if state.Phase != next.Phase {
		e.logger.Debug("Phase transition",
			"session_id", next.SessionID,
			"from", state.Phase.String(),
			"to", next.Phase.String(),
		)
		if e.hooks.OnTransition != nil {
			e.hooks.OnTransition(ctx, &domain.TransitionEvent{
				EventBase: e.base(domain.EventTransition, next.SessionID),
				From:      state.Phase,
				To:        next.Phase,
			})
		}
	}

	return next, effects, nil
}

// MatchOption reports whether option names the Health Advice service.
func MatchOption(option string) bool {
	option = strings.TrimSpace(option)
	return strings.EqualFold(option, OptionHealthAdvice) || strings.EqualFold(option, LabelHealthAdvice)
}

// applySelect (re)enters the questionnaire. Selecting from any phase restarts:
// the profile is discarded and the generation bumps so in-flight results are dropped.
func (e *Engine) applySelect(next *domain.State, ev domain.SelectEvent) error {
	if !MatchOption(ev.Option) {
		return fmt.Errorf("%w: %q", domain.ErrUnknownOption, ev.Option)
	}

	next.Generation++
	next.Profile = make(domain.Profile)
	next.PendingChats = 0
	next.Phase = domain.Collecting(0)

	first, _ := e.catalog.At(0)
	msg := promptMessage(first)
	msg.Text = firstPromptPrefix + first.Prompt
	next.Messages = append(next.Messages, msg)
	return nil
}

func (e *Engine) applyInput(ctx context.Context, next *domain.State, ev domain.InputEvent) []domain.Effect {
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return nil
	}
	next.Messages = append(next.Messages, domain.UserMessage(text))

	switch next.Phase.Mode() {
	case domain.ModeSelecting:
		msg := domain.BotMessage(msgSelectFirst)
		msg.Options = []string{LabelHealthAdvice}
		next.Messages = append(next.Messages, msg)
		return nil

	case domain.ModeAwaitingAdvice:
		next.Messages = append(next.Messages, domain.Message{Text: msgStillWorking, Sender: domain.SenderBot, IsSystem: true})
		return nil

	case domain.ModeChatting:
		next.PendingChats++
		return []domain.Effect{domain.SendChatEffect{
			Generation: next.Generation,
			Query:      text,
			ThreadID:   next.ThreadID,
		}}

	case domain.ModeCollecting:
		return e.collect(ctx, next, text)
	}
	return nil
}

func (e *Engine) collect(ctx context.Context, next *domain.State, text string) []domain.Effect {
	step, _ := next.Phase.Step()
	q, ok := e.catalog.At(step)
	if !ok {
		// Unreachable while the catalog and phase agree; recover by restarting the script.
		e.logger.Error("Collecting step outside catalog", "session_id", next.SessionID, "step", step)
		next.Phase = domain.Collecting(0)
		next.Profile = make(domain.Profile)
		return nil
	}

	val, err := e.validator.Validate(q, text)
	if err != nil {
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			verr = &domain.ValidationError{Key: q.Key, Code: domain.CodeOutOfRange, Reason: err.Error()}
		}
		e.logger.Debug("Answer rejected",
			"session_id", next.SessionID,
			"key", q.Key,
			"code", verr.Code,
			"eligibility", verr.Eligibility,
		)
		if e.hooks.OnValidationFailed != nil {
			e.hooks.OnValidationFailed(ctx, &domain.ValidationEvent{
				EventBase:   e.base(domain.EventValidationFailed, next.SessionID),
				Key:         q.Key,
				Code:        verr.Code,
				Eligibility: verr.Eligibility,
			})
		}

		if verr.Eligibility {
			next.Messages = append(next.Messages, domain.ErrorMessage(msgAccessDenied))
			return nil
		}
		next.Messages = append(next.Messages,
			domain.ErrorMessage(fmt.Sprintf(msgInvalidField, humanize(q.Key))),
			promptMessage(q),
		)
		return nil
	}

	next.Profile[q.Key] = val

	if step+1 < e.catalog.Len() {
		nextQ, _ := e.catalog.At(step + 1)
		next.Phase = domain.Collecting(step + 1)
		next.Messages = append(next.Messages, promptMessage(nextQ))
		return nil
	}

	next.Phase = domain.AwaitingAdvice()
	next.Messages = append(next.Messages, domain.Message{Text: msgPreparing, Sender: domain.SenderBot, IsSystem: true})
	return []domain.Effect{domain.SubmitAdviceEffect{
		Generation: next.Generation,
		Profile:    next.Profile.Clone(),
	}}
}

func (e *Engine) applyAdvice(next *domain.State, ev domain.AdviceResolvedEvent) {
	if ev.Generation != next.Generation || next.Phase.Mode() != domain.ModeAwaitingAdvice {
		e.logger.Debug("Dropping stale advice result",
			"session_id", next.SessionID,
			"generation", ev.Generation,
			"current_generation", next.Generation,
		)
		return
	}

	next.Phase = domain.Chatting()
	if ev.Err != nil || ev.Report == nil {
		msg := domain.ErrorMessage(msgAdviceFailed)
		msg.Options = []string{LabelHealthAdvice}
		next.Messages = append(next.Messages, msg)
		return
	}

	report := *ev.Report
	next.Messages = append(next.Messages, domain.Message{
		Text:   RenderReport(&report),
		Sender: domain.SenderBot,
		Report: &report,
	})
}

func (e *Engine) applyChat(next *domain.State, ev domain.ChatResolvedEvent) {
	if ev.Generation != next.Generation || next.Phase.Mode() != domain.ModeChatting {
		e.logger.Debug("Dropping stale chat reply",
			"session_id", next.SessionID,
			"generation", ev.Generation,
			"current_generation", next.Generation,
		)
		return
	}

	if next.PendingChats > 0 {
		next.PendingChats--
	}

	if ev.Err != nil {
		next.Messages = append(next.Messages, domain.ErrorMessage(msgChatFailed))
		return
	}
	reply := strings.TrimSpace(ev.Reply)
	if reply == "" {
		reply = msgChatFallback
	}
	next.Messages = append(next.Messages, domain.BotMessage(reply))
}

func (e *Engine) base(t domain.EventType, sessionID string) domain.EventBase {
	return domain.EventBase{Timestamp: e.now(), Type: t, SessionID: sessionID}
}

package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/realign"
	"github.com/aretw0/realign/internal/logging"
	"github.com/aretw0/realign/internal/runtime"
	"github.com/aretw0/realign/pkg/domain"
)

// Terminal commands understood by the runner.
const (
	CommandQuit    = "/quit"
	CommandExit    = "/exit"
	CommandRestart = "/restart"
)

// DefaultSettleTimeout bounds how long the runner waits for a reply before
// handing the prompt back to the user.
const DefaultSettleTimeout = 2 * time.Minute

const (
	settlePoll   = time.Second
	msgStillBusy = "Still waiting for a reply. Type /restart to start over or /quit to leave."
)

// Runner drives one assistant session over a TextHandler.
type Runner struct {
	assistant *realign.Assistant
	handler   *TextHandler
	logger    *slog.Logger
	sessionID string
	keep      bool

	settleTimeout time.Duration
	pending       []string
	inputErr      error
}

// NewRunner creates a Runner. Without WithHandler it talks over Stdin/Stdout.
func NewRunner(a *realign.Assistant, opts ...Option) *Runner {
	r := &Runner{assistant: a, settleTimeout: DefaultSettleTimeout}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(nil, nil)
	}
	if r.logger == nil {
		r.logger = logging.NewNop()
	}
	return r
}

// SessionID returns the session the runner is attached to, once known.
func (r *Runner) SessionID() string {
	return r.sessionID
}

// Run opens (or resumes) a session and relays lines until the input ends,
// the user quits or ctx is cancelled. Sessions the runner opened itself are
// closed on return unless WithKeepSession is set.
func (r *Runner) Run(ctx context.Context) error {
	defer r.handler.Close()

	state, printed, err := r.attach(ctx)
	if err != nil {
		return err
	}
	if !r.keep {
		defer func() {
			if err := r.assistant.Close(context.WithoutCancel(ctx), r.sessionID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				r.logger.Warn("Failed to close session", "session_id", r.sessionID, "err", err)
			}
		}()
	}

	updates := make(chan struct{}, 1)
	remove := r.assistant.AddObserver(func(s *domain.State, _ *domain.StateDiff) {
		if s.SessionID != r.sessionID {
			return
		}
		select {
		case updates <- struct{}{}:
		default:
		}
	})
	defer remove()

	printed = r.flush(state, printed)

	for {
		var line string
		var interrupted bool
		state, printed, line, interrupted, err = r.settle(ctx, updates, state, printed)
		if err != nil {
			return err
		}
		if !interrupted {
			if line, err = r.next(ctx); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}
		if line == "" {
			continue
		}

		switch strings.ToLower(line) {
		case CommandQuit, CommandExit:
			return nil
		case CommandRestart:
			line = runtime.LabelHealthAdvice
			state, err = r.assistant.Select(ctx, r.sessionID, line)
		default:
			state, err = r.step(ctx, state, line)
		}
		if err != nil {
			if errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			r.handler.Notice(err.Error())
			continue
		}
		printed = r.flush(state, printed)
	}
}

// next returns lines typed while the session was busy before reading new ones.
func (r *Runner) next(ctx context.Context) (string, error) {
	if len(r.pending) > 0 {
		line := r.pending[0]
		r.pending = r.pending[1:]
		return line, nil
	}
	if r.inputErr != nil {
		return "", r.inputErr
	}
	return r.handler.Input(ctx)
}

func (r *Runner) attach(ctx context.Context) (*domain.State, int, error) {
	if r.sessionID != "" {
		state, err := r.assistant.State(ctx, r.sessionID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to resume session %s: %w", r.sessionID, err)
		}
		// Reprint only the tail so the user sees the pending question.
		printed := len(state.Messages) - 1
		if printed < 0 {
			printed = 0
		}
		return state, printed, nil
	}

	state, err := r.assistant.Open(ctx)
	if err != nil {
		return nil, 0, err
	}
	r.sessionID = state.SessionID
	return state, 0, nil
}

// step maps quick-reply numbers to their text and routes the line either to
// Select or to Submit.
func (r *Runner) step(ctx context.Context, state *domain.State, line string) (*domain.State, error) {
	picked := false
	if last, ok := state.LastMessage(); ok && len(last.Options) > 0 {
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(last.Options) {
			line = last.Options[n-1]
			picked = true
		}
	}

	if runtime.MatchOption(line) && (picked || state.Mode() == domain.ModeSelecting) {
		return r.assistant.Select(ctx, r.sessionID, line)
	}
	return r.assistant.Submit(ctx, r.sessionID, line)
}

// settle reloads the session and blocks while a remote call of it is
// outstanding, printing whatever arrives. Commands typed meanwhile interrupt
// the wait and are returned with interrupted set; other lines are queued.
// The wait ends after settleTimeout so a session whose call was lost
// elsewhere can still be restarted.
func (r *Runner) settle(ctx context.Context, updates <-chan struct{}, state *domain.State, printed int) (*domain.State, int, string, bool, error) {
	timeout := time.NewTimer(r.settleTimeout)
	defer timeout.Stop()
	poll := time.NewTicker(settlePoll)
	defer poll.Stop()

	var lines <-chan inputResult
	if r.inputErr == nil {
		lines = r.handler.lines()
	}

	for {
		next, err := r.assistant.State(ctx, r.sessionID)
		if err != nil {
			return state, printed, "", false, err
		}
		state = next
		printed = r.flush(state, printed)
		if !busy(state) {
			return state, printed, "", false, nil
		}

		select {
		case <-ctx.Done():
			return state, printed, "", false, ctx.Err()
		case <-updates:
		case <-poll.C:
		case <-timeout.C:
			r.handler.Notice(msgStillBusy)
			return state, printed, "", false, nil
		case res, open := <-lines:
			line, ok, err := r.handler.receive(res, open)
			switch {
			case err != nil:
				// Replayed once the queued lines are consumed.
				r.inputErr = err
				lines = nil
			case !ok || line == "":
			case isCommand(line):
				return state, printed, line, true, nil
			default:
				r.pending = append(r.pending, line)
			}
		}
	}
}

func isCommand(line string) bool {
	switch strings.ToLower(line) {
	case CommandQuit, CommandExit, CommandRestart:
		return true
	}
	return false
}

func (r *Runner) flush(state *domain.State, printed int) int {
	if printed < len(state.Messages) {
		r.handler.Output(state.Messages[printed:])
	}
	return len(state.Messages)
}

func busy(s *domain.State) bool {
	return s.Mode() == domain.ModeAwaitingAdvice || s.PendingChats > 0
}

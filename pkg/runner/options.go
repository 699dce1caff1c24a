package runner

import (
	"log/slog"
	"time"
)

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithInputHandler configures the terminal IO.
func WithInputHandler(handler *TextHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithSessionID resumes an existing session instead of opening a new one.
// Resumed sessions are never closed by the runner.
func WithSessionID(id string) Option {
	return func(r *Runner) {
		r.sessionID = id
		r.keep = true
	}
}

// WithKeepSession leaves the session in the store when Run returns.
func WithKeepSession(keep bool) Option {
	return func(r *Runner) {
		r.keep = keep
	}
}

// WithSettleTimeout bounds the wait for an outstanding reply. Values <= 0
// keep DefaultSettleTimeout.
func WithSettleTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.settleTimeout = d
		}
	}
}

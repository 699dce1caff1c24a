package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/realign/pkg/domain"
)

// CombineHooks fans every callback out to all the given hook sets, in order.
func CombineHooks(hooks ...domain.LifecycleHooks) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			for _, h := range hooks {
				if h.OnTransition != nil {
					h.OnTransition(ctx, e)
				}
			}
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			for _, h := range hooks {
				if h.OnValidationFailed != nil {
					h.OnValidationFailed(ctx, e)
				}
			}
		},
		OnRequest: func(ctx context.Context, e *domain.RequestEvent) {
			for _, h := range hooks {
				if h.OnRequest != nil {
					h.OnRequest(ctx, e)
				}
			}
		},
		OnResponse: func(ctx context.Context, e *domain.RequestEvent) {
			for _, h := range hooks {
				if h.OnResponse != nil {
					h.OnResponse(ctx, e)
				}
			}
		},
	}
}

// LoggingHooks logs every lifecycle event. Answers are never logged, only keys.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnTransition: func(ctx context.Context, e *domain.TransitionEvent) {
			logger.InfoContext(ctx, "transition",
				"session_id", e.SessionID,
				"from", e.From.String(),
				"to", e.To.String(),
			)
		},
		OnValidationFailed: func(ctx context.Context, e *domain.ValidationEvent) {
			logger.InfoContext(ctx, "validation_failed",
				"session_id", e.SessionID,
				"key", e.Key,
				"code", string(e.Code),
				"eligibility", e.Eligibility,
			)
		},
		OnRequest: func(ctx context.Context, e *domain.RequestEvent) {
			logger.DebugContext(ctx, "request", "session_id", e.SessionID, "endpoint", e.Endpoint)
		},
		OnResponse: func(ctx context.Context, e *domain.RequestEvent) {
			level := slog.LevelInfo
			if e.IsError {
				level = slog.LevelWarn
			}
			logger.Log(ctx, level, "response",
				"session_id", e.SessionID,
				"endpoint", e.Endpoint,
				"duration", e.Duration,
				"is_error", e.IsError,
			)
		},
	}
}

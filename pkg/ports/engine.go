package ports

import (
	"context"

	"github.com/aretw0/realign/pkg/domain"
)

// ConversationEngine is the pure transition function driving a session.
// Hosts persist the returned state and execute the returned effects.
type ConversationEngine interface {
	// Start builds the initial state of a new session.
	Start(sessionID, threadID string) *domain.State

	// Apply returns the state following ev. The input state is left untouched.
	Apply(ctx context.Context, state *domain.State, ev domain.Event) (*domain.State, []domain.Effect, error)
}

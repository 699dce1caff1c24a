package ports

import (
	"context"

	"github.com/aretw0/realign/pkg/domain"
)

// AdviceService scores a completed intake profile.
type AdviceService interface {
	// Submit sends the flattened profile and returns the structured report.
	// Failures are reported as *domain.TransportError.
	Submit(ctx context.Context, payload map[string]any) (*domain.Report, error)
}

// ChatService relays a freeform query.
type ChatService interface {
	// Send returns the relay reply. An empty reply is not an error.
	Send(ctx context.Context, query, threadID string) (string, error)
}

package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/aretw0/realign/pkg/ports"
)

// ListSessions prints every stored session with its current phase.
func ListSessions(ctx context.Context, store ports.StateStore, w io.Writer) error {
	sessions, err := store.List(ctx)
	if err != nil {
		return fmt.Errorf("error listing sessions: %w", err)
	}

	if len(sessions) == 0 {
		fmt.Fprintln(w, "No active sessions found.")
		return nil
	}

	sort.Strings(sessions)
	fmt.Fprintln(w, "Active Sessions:")
	for _, id := range sessions {
		state, err := store.Load(ctx, id)
		if err != nil {
			// Expired between List and Load, or sealed with a key we lack.
			fmt.Fprintf(w, "- %s (unreadable: %v)\n", id, err)
			continue
		}
		fmt.Fprintf(w, "- %s [%s] %d messages\n", id, state.Phase, len(state.Messages))
	}
	return nil
}

// InspectSession pretty prints the stored state of a session.
func InspectSession(ctx context.Context, store ports.StateStore, sessionID string, w io.Writer) error {
	state, err := store.Load(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("error loading session '%s': %w", sessionID, err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("error marshaling state: %w", err)
	}

	fmt.Fprintln(w, string(data))
	return nil
}

// RemoveSessions deletes each session, continuing past failures.
// With all set, every stored session is removed and ids is ignored.
func RemoveSessions(ctx context.Context, store ports.StateStore, ids []string, all bool, w io.Writer) error {
	if all {
		var err error
		if ids, err = store.List(ctx); err != nil {
			return fmt.Errorf("error listing sessions: %w", err)
		}
	}

	var errs []error
	for _, id := range ids {
		if err := store.Delete(ctx, id); err != nil {
			fmt.Fprintf(w, "Error removing '%s': %v\n", id, err)
			errs = append(errs, fmt.Errorf("%s: %w", id, err))
			continue
		}
		fmt.Fprintf(w, "Removed session '%s'\n", id)
	}
	return errors.Join(errs...)
}

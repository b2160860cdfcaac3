package punch

import (
	"context"
)

// PunchService is the API side of punch recording.
type PunchService interface {
	// Create stores a punch sent by a terminal. Replays of the same
	// idempotency key return the originally stored punch.
	Create(ctx context.Context, req CreatePunchRequest) (PunchResponse, error)

	// ListMine lists the authenticated user's punches.
	ListMine(ctx context.Context, filter PunchFilter) ([]PunchResponse, error)

	// List lists punches of the company, optionally for one user (manager).
	List(ctx context.Context, filter PunchFilter) ([]PunchResponse, error)

	// GetMyLastOfDay returns the authenticated user's last punch on date.
	GetMyLastOfDay(ctx context.Context, date string) (*PunchResponse, error)
}

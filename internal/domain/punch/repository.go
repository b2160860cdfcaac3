package punch

import (
	"context"
)

// PunchRepository is the server-side store for punches.
// All reads are scoped by companyID.
type PunchRepository interface {
	// Create inserts a punch. When a punch with the same idempotency key
	// already exists for the company the stored row is returned unchanged
	// and created is false.
	Create(ctx context.Context, p Punch) (stored Punch, created bool, err error)

	GetByID(ctx context.Context, id string, companyID string) (Punch, error)

	// List returns punches in the filter range ordered by effective time.
	List(ctx context.Context, filter PunchFilter) ([]Punch, error)

	// GetLastOfDay returns the latest punch of the user on date, nil when none.
	GetLastOfDay(ctx context.Context, userID string, companyID string, date string) (*Punch, error)
}

// RemoteStore is what the punch terminal sees of the server.
type RemoteStore interface {
	CreatePunch(ctx context.Context, p Punch) (Punch, error)
	GetLastPunchOfDay(ctx context.Context, date string) (*Punch, error)
}

package justification

import (
	"context"
)

// JustificationRepository defines data access for justifications.
// All methods are scoped by companyID.
type JustificationRepository interface {
	Create(ctx context.Context, j Justification) (Justification, error)
	GetByID(ctx context.Context, id string, companyID string) (Justification, error)
	List(ctx context.Context, filter JustificationFilter) ([]Justification, error)

	// UpdateStatus moves a pending justification to approved/rejected.
	// Returns ErrJustificationAlreadyProcessed if it is no longer pending.
	UpdateStatus(ctx context.Context, j Justification) error
}

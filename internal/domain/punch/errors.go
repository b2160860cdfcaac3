package punch

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrCompanyBindingMissing = errors.New("no company is linked to your account, contact your administrator")
	ErrInvalidType           = errors.New("invalid punch type")
	ErrAlreadySynced         = errors.New("punch has already been synced")
	ErrPunchNotFound         = errors.New("punch not found")
	ErrDuplicatePunch        = errors.New("punch with this idempotency key already exists")

	// Attempt errors
	ErrExternalPunchDeclined = errors.New("punch outside the allowed area was not confirmed")
	ErrSubmissionInFlight    = errors.New("a submission for this punch is already in progress")
	ErrAttemptClosed         = errors.New("punch attempt is no longer awaiting confirmation")
	ErrAttemptInProgress     = errors.New("another punch attempt is in progress")
)

// BlockedError is returned when the user has an active non-working status
// (leave, vacation) covering the punch date.
type BlockedError struct {
	Status    string
	StartDate time.Time
	EndDate   time.Time
}

func (e *BlockedError) Error() string {
	return fmt.Sprintf("punch blocked: status %s from %s to %s",
		e.Status, e.StartDate.Format("02/01/2006"), e.EndDate.Format("02/01/2006"))
}

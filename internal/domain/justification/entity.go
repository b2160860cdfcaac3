package justification

import "time"

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Justification explains an anomalous or missing punch on Date. Once
// approved it excuses that day's shortfall.
type Justification struct {
	ID              string
	UserID          string
	CompanyID       string
	Date            string // YYYY-MM-DD
	Type            string
	Observation     string
	AttachmentPath  *string
	Status          Status
	ReviewedBy      *string
	ReviewedAt      *time.Time
	RejectionReason *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (j Justification) IsApproved() bool {
	return j.Status == StatusApproved
}

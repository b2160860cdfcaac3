package balance

import (
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
)

// DailyLog groups everything one user registered on one civil date.
// It is derived on read and never stored.
type DailyLog struct {
	UserID         string
	Date           string // YYYY-MM-DD
	Punches        []punch.Punch
	Justifications []justification.Justification
}

// Excused reports whether any justification of the day is approved.
func (d DailyLog) Excused() bool {
	for _, j := range d.Justifications {
		if j.IsApproved() {
			return true
		}
	}
	return false
}

// HasActivity reports whether the day has punches or justifications.
func (d DailyLog) HasActivity() bool {
	return len(d.Punches) > 0 || len(d.Justifications) > 0
}

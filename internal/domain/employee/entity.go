package employee

import (
	"time"
)

type Employee struct {
	ID              string
	UserID          string
	CompanyID       *string
	FullName        string
	Status          Status
	StatusStartDate *time.Time
	StatusEndDate   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type Status string

const (
	StatusActive   Status = "active"
	StatusLeave    Status = "leave"
	StatusVacation Status = "vacation"
)

// BlockedOn reports whether a non-working status window covers date.
// Both ends of the window are inclusive and compared as civil dates.
func (e Employee) BlockedOn(date time.Time) bool {
	if e.Status == StatusActive || e.Status == "" {
		return false
	}
	if e.StatusStartDate == nil || e.StatusEndDate == nil {
		return false
	}
	day := civil(date)
	return !day.Before(civil(*e.StatusStartDate)) && !day.After(civil(*e.StatusEndDate))
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

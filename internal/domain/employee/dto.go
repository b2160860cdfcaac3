package employee

import (
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
)

// GeofenceResponse is the company zone a terminal checks punches against.
type GeofenceResponse struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// CaptureContextResponse is what a terminal needs before a punch attempt.
type CaptureContextResponse struct {
	UserID          string            `json:"user_id"`
	CompanyID       *string           `json:"company_id"`
	FullName        string            `json:"full_name"`
	Status          Status            `json:"status"`
	StatusStartDate *string           `json:"status_start_date,omitempty"`
	StatusEndDate   *string           `json:"status_end_date,omitempty"`
	Geofence        *GeofenceResponse `json:"geofence,omitempty"`
}

func datePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(punch.DateLayout)
	return &s
}

func parseDatePtr(s *string) *time.Time {
	if s == nil {
		return nil
	}
	t, err := time.Parse(punch.DateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}

func NewCaptureContextResponse(e Employee, fence *company.Geofence) CaptureContextResponse {
	resp := CaptureContextResponse{
		UserID:          e.UserID,
		CompanyID:       e.CompanyID,
		FullName:        e.FullName,
		Status:          e.Status,
		StatusStartDate: datePtr(e.StatusStartDate),
		StatusEndDate:   datePtr(e.StatusEndDate),
	}
	if fence != nil {
		resp.Geofence = &GeofenceResponse{
			Latitude:     fence.Center.Latitude,
			Longitude:    fence.Center.Longitude,
			RadiusMeters: fence.ToleranceRadiusMeters,
		}
	}
	return resp
}

// Employee rebuilds the status part of the employee record.
func (r CaptureContextResponse) Employee() Employee {
	return Employee{
		UserID:          r.UserID,
		CompanyID:       r.CompanyID,
		FullName:        r.FullName,
		Status:          r.Status,
		StatusStartDate: parseDatePtr(r.StatusStartDate),
		StatusEndDate:   parseDatePtr(r.StatusEndDate),
	}
}

func (r CaptureContextResponse) Fence() *company.Geofence {
	if r.Geofence == nil {
		return nil
	}
	return &company.Geofence{
		Center:                punch.Coordinates{Latitude: r.Geofence.Latitude, Longitude: r.Geofence.Longitude},
		ToleranceRadiusMeters: r.Geofence.RadiusMeters,
	}
}

package punch

import (
	"fmt"
	"mime/multipart"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

// CreatePunchRequest is the payload the terminal sends for one punch. The
// photo travels as a multipart file next to the JSON "data" field.
type CreatePunchRequest struct {
	IdempotencyKey    string                `json:"idempotency_key"`
	Type              string                `json:"type"`
	Latitude          *float64              `json:"latitude,omitempty"`
	Longitude         *float64              `json:"longitude,omitempty"`
	GPSAccuracyMeters *float64              `json:"gps_accuracy_meters,omitempty"`
	External          bool                  `json:"external"`
	DistanceMeters    *float64              `json:"distance_meters,omitempty"`
	JustificationText string                `json:"justification_text,omitempty"`
	Date              string                `json:"date"`
	CapturedAt        string                `json:"captured_at"` // RFC3339
	Offline           bool                  `json:"offline"`
	File              multipart.File        `json:"-"`
	FileHeader        *multipart.FileHeader `json:"-"`
}

func (r *CreatePunchRequest) Validate() error {
	var errs validator.ValidationErrors

	if !validator.IsValidUUID(r.IdempotencyKey) {
		errs = append(errs, validator.ValidationError{
			Field:   "idempotency_key",
			Message: "idempotency_key must be a UUIDv7",
		})
	}

	if _, err := ParseType(r.Type); err != nil {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type must be one of: entrada, saida_almoco, volta_almoco, saida",
		})
	}

	if (r.Latitude == nil) != (r.Longitude == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "latitude and longitude must be sent together",
		})
	} else if r.Latitude != nil && !validator.IsValidCoordinate(*r.Latitude, *r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "latitude must be between -90 and 90 and longitude between -180 and 180",
		})
	}

	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if _, valid := validator.IsValidDateTime(r.CapturedAt); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_at",
			Message: "captured_at must be an RFC3339 timestamp",
		})
	}

	if r.FileHeader != nil && r.FileHeader.Size > 10<<20 { // 10MB
		errs = append(errs, validator.ValidationError{
			Field:   "photo",
			Message: "photo size must not exceed 10MB",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type PunchResponse struct {
	ID                string   `json:"id"`
	IdempotencyKey    string   `json:"idempotency_key"`
	UserID            string   `json:"user_id"`
	CompanyID         string   `json:"company_id"`
	Type              Type     `json:"type"`
	TypeLabel         string   `json:"type_label"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	GPSAccuracyMeters *float64 `json:"gps_accuracy_meters,omitempty"`
	External          bool     `json:"external"`
	DistanceMeters    *float64 `json:"distance_meters,omitempty"`
	PhotoURL          *string  `json:"photo_url,omitempty"`
	JustificationText string   `json:"justification_text,omitempty"`
	Date              string   `json:"date"`
	CapturedAt        string   `json:"captured_at"`
	ServerTimestamp   *string  `json:"server_timestamp,omitempty"`
	Offline           bool     `json:"offline"`
}

// PunchFilter selects punches for one user or a whole company in a date
// range (inclusive, YYYY-MM-DD).
type PunchFilter struct {
	UserID    *string `json:"user_id,omitempty"`
	CompanyID string  `json:"-"`
	StartDate string  `json:"start_date"`
	EndDate   string  `json:"end_date"`
}

func (f *PunchFilter) Validate() error {
	var errs validator.ValidationErrors

	start, validStart := validator.IsValidDate(f.StartDate)
	if !validStart {
		errs = append(errs, validator.ValidationError{
			Field:   "start_date",
			Message: "start_date must be in YYYY-MM-DD format",
		})
	}

	end, validEnd := validator.IsValidDate(f.EndDate)
	if !validEnd {
		errs = append(errs, validator.ValidationError{
			Field:   "end_date",
			Message: "end_date must be in YYYY-MM-DD format",
		})
	}

	if validStart && validEnd {
		if end.Before(start) {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "end_date must not be before start_date",
			})
		} else if end.Sub(start) > 366*24*time.Hour {
			errs = append(errs, validator.ValidationError{
				Field:   "end_date",
				Message: "date range must not exceed one year",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

func timePtrToString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	format := t.Format(time.RFC3339Nano)
	return &format
}

// ToResponse maps a stored punch to its API shape. photoURL is resolved by
// the caller because it depends on the storage backend.
func (p Punch) ToResponse(photoURL *string) PunchResponse {
	resp := PunchResponse{
		ID:                p.ID,
		IdempotencyKey:    p.IdempotencyKey,
		UserID:            p.UserID,
		CompanyID:         p.CompanyID,
		Type:              p.Type,
		TypeLabel:         p.Type.Label(),
		GPSAccuracyMeters: p.GPSAccuracyMeters,
		External:          p.External,
		DistanceMeters:    p.DistanceMeters,
		PhotoURL:          photoURL,
		JustificationText: p.JustificationText,
		Date:              p.Date,
		CapturedAt:        p.CapturedAt.Format(time.RFC3339Nano),
		ServerTimestamp:   timePtrToString(p.ServerTimestamp),
		Offline:           p.Offline,
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		resp.Latitude = &lat
		resp.Longitude = &lng
	}
	return resp
}

// ToPunch rebuilds a synced punch from its API shape.
func (r PunchResponse) ToPunch() (Punch, error) {
	capturedAt, err := time.Parse(time.RFC3339Nano, r.CapturedAt)
	if err != nil {
		return Punch{}, fmt.Errorf("invalid captured_at %q: %w", r.CapturedAt, err)
	}

	p := Punch{
		ID:                r.ID,
		IdempotencyKey:    r.IdempotencyKey,
		UserID:            r.UserID,
		CompanyID:         r.CompanyID,
		Type:              r.Type,
		GPSAccuracyMeters: r.GPSAccuracyMeters,
		External:          r.External,
		DistanceMeters:    r.DistanceMeters,
		JustificationText: r.JustificationText,
		Date:              r.Date,
		CapturedAt:        capturedAt,
		Offline:           r.Offline,
	}
	if r.Latitude != nil && r.Longitude != nil {
		p.Location = &Coordinates{Latitude: *r.Latitude, Longitude: *r.Longitude}
	}
	if r.ServerTimestamp != nil {
		ts, err := time.Parse(time.RFC3339Nano, *r.ServerTimestamp)
		if err != nil {
			return Punch{}, fmt.Errorf("invalid server_timestamp %q: %w", *r.ServerTimestamp, err)
		}
		if err := p.MarkSynced(ts); err != nil {
			return Punch{}, err
		}
	}
	return p, nil
}

// ToCreateRequest is the payload a terminal sends for p. The photo is sent
// separately.
func (p Punch) ToCreateRequest() CreatePunchRequest {
	req := CreatePunchRequest{
		IdempotencyKey:    p.IdempotencyKey,
		Type:              string(p.Type),
		GPSAccuracyMeters: p.GPSAccuracyMeters,
		External:          p.External,
		DistanceMeters:    p.DistanceMeters,
		JustificationText: p.JustificationText,
		Date:              p.Date,
		CapturedAt:        p.CapturedAt.Format(time.RFC3339Nano),
		Offline:           p.Offline,
	}
	if p.Location != nil {
		lat, lng := p.Location.Latitude, p.Location.Longitude
		req.Latitude = &lat
		req.Longitude = &lng
	}
	return req
}

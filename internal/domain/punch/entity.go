package punch

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/google/uuid"
)

// Type is the kind of punch. The cycle is
// entrada -> saida_almoco -> volta_almoco -> saida -> entrada.
type Type string

const (
	TypeEntrada     Type = "entrada"      // clock-in
	TypeSaidaAlmoco Type = "saida_almoco" // lunch-out
	TypeVoltaAlmoco Type = "volta_almoco" // lunch-in
	TypeSaida       Type = "saida"        // clock-out
)

// AllTypes lists every punch type in cycle order.
var AllTypes = []Type{TypeEntrada, TypeSaidaAlmoco, TypeVoltaAlmoco, TypeSaida}

func (t Type) Valid() bool {
	switch t {
	case TypeEntrada, TypeSaidaAlmoco, TypeVoltaAlmoco, TypeSaida:
		return true
	}
	return false
}

// Label returns the operator-facing name of the type.
func (t Type) Label() string {
	switch t {
	case TypeEntrada:
		return "Entrada"
	case TypeSaidaAlmoco:
		return "Saída Almoço"
	case TypeVoltaAlmoco:
		return "Volta Almoço"
	case TypeSaida:
		return "Saída"
	}
	return string(t)
}

// ParseType parses a punch type, tolerating case and surrounding spaces.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", ErrInvalidType
	}
	return t, nil
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

const DateLayout = "2006-01-02"

// Punch is a single clock-in/out event. It is immutable once built by
// NewPunch; the only allowed change is MarkSynced.
type Punch struct {
	ID                string       `json:"id,omitempty"`
	IdempotencyKey    string       `json:"idempotency_key"`
	UserID            string       `json:"user_id"`
	CompanyID         string       `json:"company_id"`
	Type              Type         `json:"type"`
	Location          *Coordinates `json:"location,omitempty"`
	GPSAccuracyMeters *float64     `json:"gps_accuracy_meters,omitempty"`
	External          bool         `json:"external"`
	DistanceMeters    *float64     `json:"distance_meters,omitempty"`
	Photo             []byte       `json:"photo,omitempty"`
	PhotoPath         *string      `json:"photo_path,omitempty"`
	JustificationText string       `json:"justification_text,omitempty"`
	Date              string       `json:"date"`
	CapturedAt        time.Time    `json:"captured_at"`
	ServerTimestamp   *time.Time   `json:"server_timestamp,omitempty"`
	Synced            bool         `json:"synced"`
	// Offline marks a punch delivered from the terminal's queue. Its server
	// timestamp is the sync time and says nothing about when it happened.
	Offline           bool         `json:"offline"`
	CreatedAt         time.Time    `json:"created_at,omitempty"`
}

type NewPunchParams struct {
	IdempotencyKey    string
	UserID            string
	CompanyID         string
	Type              Type
	Location          *Coordinates
	GPSAccuracyMeters *float64
	External          bool
	DistanceMeters    *float64
	Photo             []byte
	JustificationText string
	CapturedAt        time.Time
	// Location used to derive the civil date; UTC when nil.
	TimeZone *time.Location
}

// NewPunch validates params and builds an unsynced punch. A missing
// company binding is reported as ErrCompanyBindingMissing rather than a
// field error because no caller can recover from it locally.
func NewPunch(p NewPunchParams) (Punch, error) {
	if validator.IsEmpty(p.CompanyID) {
		return Punch{}, ErrCompanyBindingMissing
	}

	var errs validator.ValidationErrors

	if validator.IsEmpty(p.UserID) {
		errs = append(errs, validator.ValidationError{
			Field:   "user_id",
			Message: "user_id is required",
		})
	}

	if !p.Type.Valid() {
		errs = append(errs, validator.ValidationError{
			Field:   "type",
			Message: "type must be one of: entrada, saida_almoco, volta_almoco, saida",
		})
	}

	if p.Location != nil && !validator.IsValidCoordinate(p.Location.Latitude, p.Location.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "location",
			Message: "latitude must be between -90 and 90 and longitude between -180 and 180",
		})
	}

	if p.GPSAccuracyMeters != nil && *p.GPSAccuracyMeters < 0 {
		errs = append(errs, validator.ValidationError{
			Field:   "gps_accuracy_meters",
			Message: "gps_accuracy_meters must not be negative",
		})
	}

	if p.CapturedAt.IsZero() {
		errs = append(errs, validator.ValidationError{
			Field:   "captured_at",
			Message: "captured_at is required",
		})
	}

	if len(errs) > 0 {
		return Punch{}, errs
	}

	key := p.IdempotencyKey
	if key == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return Punch{}, err
		}
		key = id.String()
	}

	loc := p.TimeZone
	if loc == nil {
		loc = time.UTC
	}

	return Punch{
		IdempotencyKey:    key,
		UserID:            p.UserID,
		CompanyID:         p.CompanyID,
		Type:              p.Type,
		Location:          p.Location,
		GPSAccuracyMeters: p.GPSAccuracyMeters,
		External:          p.External,
		DistanceMeters:    p.DistanceMeters,
		Photo:             p.Photo,
		JustificationText: strings.TrimSpace(p.JustificationText),
		Date:              p.CapturedAt.In(loc).Format(DateLayout),
		CapturedAt:        p.CapturedAt,
	}, nil
}

// EffectiveTime is the server timestamp when known, otherwise the client
// capture time. Offline punches always use the capture time so a late sync
// never moves them within their day.
func (p Punch) EffectiveTime() time.Time {
	if p.ServerTimestamp != nil && !p.Offline {
		return *p.ServerTimestamp
	}
	return p.CapturedAt
}

// MarkSynced records the authoritative write. It may happen only once.
func (p *Punch) MarkSynced(serverTimestamp time.Time) error {
	if p.Synced {
		return ErrAlreadySynced
	}
	p.Synced = true
	p.ServerTimestamp = &serverTimestamp
	return nil
}

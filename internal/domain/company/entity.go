package company

import (
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
)

// DefaultGeofenceRadiusMeters applies when neither the company nor the
// configuration sets a radius.
const DefaultGeofenceRadiusMeters = 100.0

type Company struct {
	ID           string
	Name         string
	Latitude     *float64
	Longitude    *float64
	RadiusMeters *float64
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Geofence is the circular zone punches are expected to happen in.
type Geofence struct {
	Center                punch.Coordinates
	ToleranceRadiusMeters float64
}

// Geofence returns the company zone. ok is false when the company has no
// site center configured, in which case no distance check applies.
func (c Company) Geofence(defaultRadius float64) (fence Geofence, ok bool) {
	if c.Latitude == nil || c.Longitude == nil {
		return Geofence{}, false
	}
	radius := defaultRadius
	if c.RadiusMeters != nil && *c.RadiusMeters > 0 {
		radius = *c.RadiusMeters
	}
	if radius <= 0 {
		radius = DefaultGeofenceRadiusMeters
	}
	return Geofence{
		Center:                punch.Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude},
		ToleranceRadiusMeters: radius,
	}, true
}

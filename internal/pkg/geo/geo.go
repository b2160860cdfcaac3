// Package geo acquires validated device positions and checks them
// against a company geofence.
package geo

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/utils"
)

const (
	DefaultTimeout = 15 * time.Second

	// DefaultMaxAccuracyMeters is the worst horizontal accuracy accepted
	// for a punch.
	DefaultMaxAccuracyMeters = 150.0

	// FallbackRadiusMeters applies when neither the company nor the
	// configuration sets a tolerance radius.
	FallbackRadiusMeters = 100.0
)

// PositionOptions mirrors what a platform location request accepts.
type PositionOptions struct {
	EnableHighAccuracy bool
	Timeout            time.Duration
	// MaximumAge is the oldest cached position accepted. Zero forces a
	// fresh fix.
	MaximumAge time.Duration
}

// Position is a raw platform fix.
type Position struct {
	Coordinates    punch.Coordinates
	AccuracyMeters float64
	Timestamp      time.Time
}

// LocationProvider is the platform location service.
type LocationProvider interface {
	CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error)
}

// Fix is a position that passed validation.
type Fix struct {
	Coordinates    punch.Coordinates
	AccuracyMeters float64
}

type ErrorKind int

const (
	ErrorUnavailable ErrorKind = iota + 1
	ErrorLowAccuracy
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorUnavailable:
		return "unavailable"
	case ErrorLowAccuracy:
		return "low_accuracy"
	}
	return "unknown"
}

// Error is a location failure the operator can act on.
type Error struct {
	Kind     ErrorKind
	Accuracy float64
	Err      error
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorLowAccuracy:
		return fmt.Sprintf("location accuracy too low (%.0fm), go to open ground and try again", math.Round(e.Accuracy))
	case ErrorUnavailable:
		if e.Err != nil {
			return fmt.Sprintf("location unavailable: %v", e.Err)
		}
		return "location unavailable"
	}
	return "location error"
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var geoErr *Error
	return errors.As(err, &geoErr) && geoErr.Kind == kind
}

type Validator struct {
	provider          LocationProvider
	timeout           time.Duration
	maxAccuracyMeters float64
}

type Option func(*Validator)

func WithTimeout(d time.Duration) Option {
	return func(v *Validator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

func WithMaxAccuracy(meters float64) Option {
	return func(v *Validator) {
		if meters > 0 {
			v.maxAccuracyMeters = meters
		}
	}
}

func NewValidator(provider LocationProvider, opts ...Option) *Validator {
	v := &Validator{
		provider:          provider,
		timeout:           DefaultTimeout,
		maxAccuracyMeters: DefaultMaxAccuracyMeters,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// AcquireValidatedLocation requests one fresh high-accuracy fix. It does
// not retry.
func (v *Validator) AcquireValidatedLocation(ctx context.Context) (Fix, error) {
	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	pos, err := v.provider.CurrentPosition(ctx, PositionOptions{
		EnableHighAccuracy: true,
		Timeout:            v.timeout,
		MaximumAge:         0,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s: %w", v.timeout, err)
		}
		return Fix{}, &Error{Kind: ErrorUnavailable, Err: err}
	}

	if pos.AccuracyMeters > v.maxAccuracyMeters {
		return Fix{}, &Error{Kind: ErrorLowAccuracy, Accuracy: pos.AccuracyMeters}
	}

	return Fix{
		Coordinates:    pos.Coordinates,
		AccuracyMeters: pos.AccuracyMeters,
	}, nil
}

// Distance is the haversine distance between a and b in meters.
func Distance(a, b punch.Coordinates) float64 {
	return utils.CalculateHaversineDistance(a.Latitude, a.Longitude, b.Latitude, b.Longitude)
}

// EffectiveRadius resolves the tolerance radius: company radius, then the
// configured default, then FallbackRadiusMeters.
func EffectiveRadius(companyRadius *float64, defaultRadius float64) float64 {
	if companyRadius != nil && *companyRadius > 0 {
		return *companyRadius
	}
	if defaultRadius > 0 {
		return defaultRadius
	}
	return FallbackRadiusMeters
}

// FenceCheck is the outcome of comparing a position with a geofence.
type FenceCheck struct {
	DistanceMeters float64
	RadiusMeters   float64
}

// Outside reports whether the position needs an external-punch confirmation.
func (c FenceCheck) Outside() bool {
	return c.DistanceMeters > c.RadiusMeters
}

func CheckFence(pos, center punch.Coordinates, radiusMeters float64) FenceCheck {
	return FenceCheck{
		DistanceMeters: Distance(pos, center),
		RadiusMeters:   radiusMeters,
	}
}

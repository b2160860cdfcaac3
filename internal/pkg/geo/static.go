package geo

import (
	"context"
	"errors"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
)

var ErrPositionNotConfigured = errors.New("no position configured for this terminal")

// StaticProvider reports a fixed position. Kiosk terminals are mounted at
// a known spot and have no GNSS receiver.
type StaticProvider struct {
	Coordinates    *punch.Coordinates
	AccuracyMeters float64
	Now            func() time.Time
}

func (p StaticProvider) CurrentPosition(ctx context.Context, opts PositionOptions) (Position, error) {
	if err := ctx.Err(); err != nil {
		return Position{}, err
	}
	if p.Coordinates == nil {
		return Position{}, ErrPositionNotConfigured
	}
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	return Position{
		Coordinates:    *p.Coordinates,
		AccuracyMeters: p.AccuracyMeters,
		Timestamp:      now(),
	}, nil
}

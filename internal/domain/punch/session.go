package punch

import "context"

// Session identifies who is punching on a terminal.
type Session interface {
	CurrentUserID() string
	// CurrentCompanyID is empty when the user has no company binding.
	CurrentCompanyID() string
}

// StaticSession is a Session fixed at startup.
type StaticSession struct {
	UserID    string
	CompanyID string
}

func (s StaticSession) CurrentUserID() string    { return s.UserID }
func (s StaticSession) CurrentCompanyID() string { return s.CompanyID }

// ExternalConfirmer asks the operator whether to record a punch made
// outside the company geofence.
type ExternalConfirmer interface {
	ConfirmExternal(ctx context.Context, distanceMeters, radiusMeters float64) (bool, error)
}

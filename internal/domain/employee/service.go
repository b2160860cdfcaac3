package employee

import "context"

type EmployeeService interface {
	// GetMyCaptureContext returns the caller's status window and company
	// geofence for punch terminals.
	GetMyCaptureContext(ctx context.Context) (CaptureContextResponse, error)
}

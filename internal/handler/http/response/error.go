package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/auth"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var blocked *punch.BlockedError
	if errors.As(err, &blocked) {
		writeError(w, http.StatusConflict, CodePunchBlocked, blocked.Error(), map[string]string{
			"status":     blocked.Status,
			"start_date": blocked.StartDate.Format(punch.DateLayout),
			"end_date":   blocked.EndDate.Format(punch.DateLayout),
		})
		return
	}

	switch {
	// Auth
	case errors.Is(err, auth.ErrTokenExpired):
		Unauthorized(w, "Token expired")
	case errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, "Invalid or expired token")
	case errors.Is(err, user.ErrInsufficientPermissions),
		errors.Is(err, user.ErrManagerAccessRequired):
		Forbidden(w, err.Error())

	// Punch domain errors
	case errors.Is(err, punch.ErrCompanyBindingMissing):
		writeError(w, http.StatusForbidden, CodeCompanyBindingMissing, err.Error(), nil)
	case errors.Is(err, punch.ErrInvalidType):
		writeError(w, http.StatusBadRequest, CodeInvalidPunchType, err.Error(), nil)
	case errors.Is(err, punch.ErrPunchNotFound):
		NotFound(w, "Punch not found")

	// Justification domain errors
	case errors.Is(err, justification.ErrJustificationNotFound):
		NotFound(w, "Justification not found")
	case errors.Is(err, justification.ErrJustificationAlreadyProcessed):
		Conflict(w, "Justification already processed")
	case errors.Is(err, justification.ErrInvalidAttachmentType):
		BadRequest(w, err.Error(), nil)

	// Employee and company
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, company.ErrCompanyNotFound):
		NotFound(w, "Company not found")

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

package response

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleError(t *testing.T) {
	blocked := &punch.BlockedError{
		Status:    "vacation",
		StartDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", validator.ValidationErrors{{Field: "type", Message: "bad"}}, http.StatusUnprocessableEntity, CodeValidation},
		{"blocked", fmt.Errorf("create: %w", blocked), http.StatusConflict, CodePunchBlocked},
		{"company binding", punch.ErrCompanyBindingMissing, http.StatusForbidden, CodeCompanyBindingMissing},
		{"permission", user.ErrInsufficientPermissions, http.StatusForbidden, CodeForbidden},
		{"not found", justification.ErrJustificationNotFound, http.StatusNotFound, CodeNotFound},
		{"already processed", justification.ErrJustificationAlreadyProcessed, http.StatusConflict, CodeConflict},
		{"unknown", fmt.Errorf("boom"), http.StatusInternalServerError, CodeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			HandleError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body Response
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
}

func TestHandleError_BlockedDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	HandleError(rec, &punch.BlockedError{
		Status:    "leave",
		StartDate: time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:   time.Date(2024, time.March, 2, 0, 0, 0, 0, time.UTC),
	})

	var body Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "leave", body.Error.Details["status"])
	assert.Equal(t, "2024-03-02", body.Error.Details["end_date"])
}

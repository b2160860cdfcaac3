package employee

import (
	"context"
	"testing"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubEmployees map[string]employee.Employee

func (s stubEmployees) GetByUserID(ctx context.Context, userID string) (employee.Employee, error) {
	e, ok := s[userID]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

type stubCompanies map[string]company.Company

func (s stubCompanies) GetByID(ctx context.Context, id string) (company.Company, error) {
	c, ok := s[id]
	if !ok {
		return company.Company{}, company.ErrCompanyNotFound
	}
	return c, nil
}

func ptr[T any](v T) *T { return &v }

func contextFor(t *testing.T, identity user.Identity) context.Context {
	t.Helper()
	svc := jwt.NewJWTService("test-secret-key-for-jwt", "1h")
	token, _, err := svc.GenerateAccessToken(identity)
	require.NoError(t, err)
	decoded, err := svc.JWTAuth().Decode(token)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), decoded, nil)
}

func TestGetMyCaptureContext(t *testing.T) {
	start := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)

	employees := stubEmployees{
		"user-1": {UserID: "user-1", CompanyID: ptr("company-1"), FullName: "Ana Souza", Status: employee.StatusActive},
		"user-2": {UserID: "user-2", CompanyID: ptr("company-2"), Status: employee.StatusVacation, StatusStartDate: &start, StatusEndDate: &end},
	}
	companies := stubCompanies{
		"company-1": {ID: "company-1", Latitude: ptr(-23.55052), Longitude: ptr(-46.633308)},
		"company-2": {ID: "company-2", Latitude: ptr(-22.9068), Longitude: ptr(-43.1729), RadiusMeters: ptr(250.0)},
		"company-3": {ID: "company-3"},
	}
	svc := NewEmployeeService(employees, companies, 100)

	t.Run("default radius", func(t *testing.T) {
		ctx := contextFor(t, user.Identity{UserID: "user-1", CompanyID: ptr("company-1"), Role: user.RoleEmployee})
		resp, err := svc.GetMyCaptureContext(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", resp.FullName)
		require.NotNil(t, resp.Geofence)
		assert.Equal(t, 100.0, resp.Geofence.RadiusMeters)
		assert.Equal(t, -23.55052, resp.Geofence.Latitude)
	})

	t.Run("company radius and status window", func(t *testing.T) {
		ctx := contextFor(t, user.Identity{UserID: "user-2", CompanyID: ptr("company-2"), Role: user.RoleEmployee})
		resp, err := svc.GetMyCaptureContext(ctx)
		require.NoError(t, err)
		require.NotNil(t, resp.Geofence)
		assert.Equal(t, 250.0, resp.Geofence.RadiusMeters)
		assert.Equal(t, employee.StatusVacation, resp.Status)
		require.NotNil(t, resp.StatusStartDate)
		assert.Equal(t, "2024-03-01", *resp.StatusStartDate)
		assert.True(t, resp.Employee().BlockedOn(time.Date(2024, time.March, 15, 18, 0, 0, 0, time.UTC)))
	})

	t.Run("no employee record falls back to token company", func(t *testing.T) {
		ctx := contextFor(t, user.Identity{UserID: "user-9", CompanyID: ptr("company-3"), Role: user.RoleEmployee})
		resp, err := svc.GetMyCaptureContext(ctx)
		require.NoError(t, err)
		require.NotNil(t, resp.CompanyID)
		assert.Equal(t, "company-3", *resp.CompanyID)
		assert.Equal(t, employee.StatusActive, resp.Status)
		assert.Nil(t, resp.Geofence)
	})

	t.Run("no company at all", func(t *testing.T) {
		ctx := contextFor(t, user.Identity{UserID: "user-9", Role: user.RolePending})
		resp, err := svc.GetMyCaptureContext(ctx)
		require.NoError(t, err)
		assert.Nil(t, resp.CompanyID)
		assert.Nil(t, resp.Geofence)
	})
}

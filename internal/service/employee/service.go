package employee

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/company"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
)

type EmployeeServiceImpl struct {
	employeeRepo        employee.EmployeeRepository
	companyRepo         company.CompanyRepository
	defaultRadiusMeters float64
}

func NewEmployeeService(
	employeeRepo employee.EmployeeRepository,
	companyRepo company.CompanyRepository,
	defaultRadiusMeters float64,
) employee.EmployeeService {
	return &EmployeeServiceImpl{
		employeeRepo:        employeeRepo,
		companyRepo:         companyRepo,
		defaultRadiusMeters: defaultRadiusMeters,
	}
}

// GetMyCaptureContext implements employee.EmployeeService.
func (s *EmployeeServiceImpl) GetMyCaptureContext(ctx context.Context) (employee.CaptureContextResponse, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return employee.CaptureContextResponse{}, err
	}

	emp, err := s.employeeRepo.GetByUserID(ctx, identity.UserID)
	switch {
	case errors.Is(err, employee.ErrEmployeeNotFound):
		// users without an employee record punch as active
		emp = employee.Employee{UserID: identity.UserID, Status: employee.StatusActive}
	case err != nil:
		return employee.CaptureContextResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	if emp.CompanyID == nil {
		emp.CompanyID = identity.CompanyID
	}
	if emp.CompanyID == nil {
		return employee.NewCaptureContextResponse(emp, nil), nil
	}

	c, err := s.companyRepo.GetByID(ctx, *emp.CompanyID)
	if err != nil {
		if errors.Is(err, company.ErrCompanyNotFound) {
			slog.Warn("Company of employee not found", "user_id", emp.UserID, "company_id", *emp.CompanyID)
			return employee.NewCaptureContextResponse(emp, nil), nil
		}
		return employee.CaptureContextResponse{}, fmt.Errorf("failed to get company: %w", err)
	}

	fence, ok := c.Geofence(s.defaultRadiusMeters)
	if !ok {
		return employee.NewCaptureContextResponse(emp, nil), nil
	}
	return employee.NewCaptureContextResponse(emp, &fence), nil
}

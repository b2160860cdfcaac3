package punch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/file"
)

const photoURLExpiry = 15 * time.Minute

// PunchServiceImpl is the server side of punch recording.
type PunchServiceImpl struct {
	punch.PunchRepository
	employee.EmployeeRepository
	fileService file.FileService
	hub         *sse.Hub
	location    *time.Location
	now         func() time.Time
}

func NewPunchService(
	punchRepo punch.PunchRepository,
	employeeRepo employee.EmployeeRepository,
	fileService file.FileService,
	hub *sse.Hub,
	location *time.Location,
) punch.PunchService {
	if location == nil {
		location = time.UTC
	}
	return &PunchServiceImpl{
		PunchRepository:    punchRepo,
		EmployeeRepository: employeeRepo,
		fileService:        fileService,
		hub:                hub,
		location:           location,
		now:                time.Now,
	}
}

func (s *PunchServiceImpl) identity(ctx context.Context, perm user.Permission) (user.Identity, string, error) {
	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return user.Identity{}, "", err
	}
	if identity.CompanyID == nil || *identity.CompanyID == "" {
		return user.Identity{}, "", punch.ErrCompanyBindingMissing
	}
	if !user.HasPermission(identity.Role, perm) {
		return user.Identity{}, "", user.ErrInsufficientPermissions
	}
	return identity, *identity.CompanyID, nil
}

// Create implements punch.PunchService.
func (s *PunchServiceImpl) Create(ctx context.Context, req punch.CreatePunchRequest) (punch.PunchResponse, error) {
	if err := req.Validate(); err != nil {
		return punch.PunchResponse{}, err
	}

	identity, companyID, err := s.identity(ctx, user.PermissionPunchCreate)
	if err != nil {
		return punch.PunchResponse{}, err
	}

	capturedAt, _ := time.Parse(time.RFC3339Nano, req.CapturedAt)
	typ, _ := punch.ParseType(req.Type)

	emp, err := s.EmployeeRepository.GetByUserID(ctx, identity.UserID)
	if err != nil && !errors.Is(err, employee.ErrEmployeeNotFound) {
		return punch.PunchResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if err == nil && emp.BlockedOn(capturedAt.In(s.location)) {
		return punch.PunchResponse{}, &punch.BlockedError{
			Status:    string(emp.Status),
			StartDate: *emp.StatusStartDate,
			EndDate:   *emp.StatusEndDate,
		}
	}

	var location *punch.Coordinates
	if req.Latitude != nil && req.Longitude != nil {
		location = &punch.Coordinates{Latitude: *req.Latitude, Longitude: *req.Longitude}
	}

	p, err := punch.NewPunch(punch.NewPunchParams{
		IdempotencyKey:    req.IdempotencyKey,
		UserID:            identity.UserID,
		CompanyID:         companyID,
		Type:              typ,
		Location:          location,
		GPSAccuracyMeters: req.GPSAccuracyMeters,
		External:          req.External,
		DistanceMeters:    req.DistanceMeters,
		JustificationText: req.JustificationText,
		CapturedAt:        capturedAt,
		TimeZone:          s.location,
	})
	if err != nil {
		return punch.PunchResponse{}, err
	}
	// the terminal decides which civil day the punch belongs to
	p.Date = req.Date
	p.Offline = req.Offline

	if req.File != nil {
		path, err := s.fileService.UploadPunchPhoto(ctx, companyID, identity.UserID, p.Date, p.IdempotencyKey, req.File)
		if err != nil {
			return punch.PunchResponse{}, fmt.Errorf("failed to upload punch photo: %w", err)
		}
		p.PhotoPath = &path
	}

	stored, created, err := s.PunchRepository.Create(ctx, p)
	if err != nil {
		return punch.PunchResponse{}, fmt.Errorf("failed to create punch: %w", err)
	}

	resp := stored.ToResponse(s.photoURL(ctx, stored.PhotoPath))

	if created {
		slog.Info("Punch stored",
			"punch_id", stored.ID,
			"user_id", stored.UserID,
			"company_id", companyID,
			"type", stored.Type,
			"external", stored.External)

		if s.hub != nil {
			event := sse.Event{Event: sse.EventPunchRecorded, Data: resp}
			s.hub.Publish(sse.UserTopic(stored.UserID), event)
			s.hub.Publish(sse.CompanyTopic(companyID), event)
		}
	} else {
		slog.Info("Punch replay ignored", "punch_id", stored.ID, "idempotency_key", stored.IdempotencyKey)
	}

	return resp, nil
}

func (s *PunchServiceImpl) photoURL(ctx context.Context, path *string) *string {
	if path == nil {
		return nil
	}
	url, err := s.fileService.GetFileURL(ctx, *path, photoURLExpiry)
	if err != nil {
		slog.Warn("Failed to resolve photo URL", "path", *path, "error", err)
		return nil
	}
	return &url
}

func (s *PunchServiceImpl) toResponses(ctx context.Context, punches []punch.Punch) []punch.PunchResponse {
	out := make([]punch.PunchResponse, 0, len(punches))
	for _, p := range punches {
		out = append(out, p.ToResponse(s.photoURL(ctx, p.PhotoPath)))
	}
	return out
}

// ListMine implements punch.PunchService.
func (s *PunchServiceImpl) ListMine(ctx context.Context, filter punch.PunchFilter) ([]punch.PunchResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	identity, companyID, err := s.identity(ctx, user.PermissionPunchViewOwn)
	if err != nil {
		return nil, err
	}

	filter.UserID = &identity.UserID
	filter.CompanyID = companyID

	punches, err := s.PunchRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	return s.toResponses(ctx, punches), nil
}

// List implements punch.PunchService.
func (s *PunchServiceImpl) List(ctx context.Context, filter punch.PunchFilter) ([]punch.PunchResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	_, companyID, err := s.identity(ctx, user.PermissionPunchViewAll)
	if err != nil {
		return nil, err
	}
	filter.CompanyID = companyID

	punches, err := s.PunchRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}
	return s.toResponses(ctx, punches), nil
}

// GetMyLastOfDay implements punch.PunchService.
func (s *PunchServiceImpl) GetMyLastOfDay(ctx context.Context, date string) (*punch.PunchResponse, error) {
	if date == "" {
		date = s.now().In(s.location).Format(punch.DateLayout)
	}
	if _, ok := validator.IsValidDate(date); !ok {
		return nil, validator.ValidationErrors{{Field: "date", Message: "date must be in YYYY-MM-DD format"}}
	}

	identity, companyID, err := s.identity(ctx, user.PermissionPunchViewOwn)
	if err != nil {
		return nil, err
	}

	last, err := s.PunchRepository.GetLastOfDay(ctx, identity.UserID, companyID, date)
	if err != nil {
		return nil, fmt.Errorf("failed to get last punch: %w", err)
	}
	if last == nil {
		return nil, nil
	}

	resp := last.ToResponse(s.photoURL(ctx, last.PhotoPath))
	return &resp, nil
}

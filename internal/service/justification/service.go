package justification

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/sse"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/service/file"
)

const attachmentURLExpiry = 15 * time.Minute

type JustificationServiceImpl struct {
	justification.JustificationRepository
	fileService file.FileService
	hub         *sse.Hub
	now         func() time.Time
}

func NewJustificationService(repo justification.JustificationRepository, fileService file.FileService, hub *sse.Hub) justification.JustificationService {
	return &JustificationServiceImpl{
		JustificationRepository: repo,
		fileService:             fileService,
		hub:                     hub,
		now:                     time.Now,
	}
}

func (s *JustificationServiceImpl) identity(ctx context.Context, perm user.Permission) (user.Identity, string, error) {
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

func (s *JustificationServiceImpl) toResponse(ctx context.Context, j justification.Justification) justification.JustificationResponse {
	resp := justification.JustificationResponse{
		ID:              j.ID,
		UserID:          j.UserID,
		Date:            j.Date,
		Type:            j.Type,
		Observation:     j.Observation,
		Status:          j.Status,
		ReviewedBy:      j.ReviewedBy,
		RejectionReason: j.RejectionReason,
		CreatedAt:       j.CreatedAt.Format(time.RFC3339),
	}
	if j.ReviewedAt != nil {
		reviewedAt := j.ReviewedAt.Format(time.RFC3339)
		resp.ReviewedAt = &reviewedAt
	}
	if j.AttachmentPath != nil {
		url, err := s.fileService.GetFileURL(ctx, *j.AttachmentPath, attachmentURLExpiry)
		if err != nil {
			slog.Warn("Failed to resolve attachment URL", "path", *j.AttachmentPath, "error", err)
		} else {
			resp.AttachmentURL = &url
		}
	}
	return resp
}

func (s *JustificationServiceImpl) publish(topic, event string, resp justification.JustificationResponse) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(topic, sse.Event{Event: event, Data: resp})
}

// Create implements justification.JustificationService.
func (s *JustificationServiceImpl) Create(ctx context.Context, req justification.CreateJustificationRequest) (justification.JustificationResponse, error) {
	if err := req.Validate(); err != nil {
		return justification.JustificationResponse{}, err
	}

	identity, companyID, err := s.identity(ctx, user.PermissionJustificationCreate)
	if err != nil {
		return justification.JustificationResponse{}, err
	}

	j := justification.Justification{
		UserID:      identity.UserID,
		CompanyID:   companyID,
		Date:        req.Date,
		Type:        req.Type,
		Observation: req.Observation,
		Status:      justification.StatusPending,
	}

	if req.File != nil && req.FileHeader != nil {
		path, err := s.fileService.UploadJustificationAttachment(ctx, companyID, identity.UserID, req.File, req.FileHeader.Filename)
		if err != nil {
			return justification.JustificationResponse{}, fmt.Errorf("failed to upload attachment: %w", err)
		}
		j.AttachmentPath = &path
	}

	created, err := s.JustificationRepository.Create(ctx, j)
	if err != nil {
		if j.AttachmentPath != nil {
			if delErr := s.fileService.DeleteFile(ctx, *j.AttachmentPath); delErr != nil {
				slog.Warn("Failed to clean up attachment", "path", *j.AttachmentPath, "error", delErr)
			}
		}
		return justification.JustificationResponse{}, fmt.Errorf("failed to create justification: %w", err)
	}

	slog.Info("Justification created", "justification_id", created.ID, "user_id", created.UserID, "date", created.Date)

	resp := s.toResponse(ctx, created)
	s.publish(sse.CompanyTopic(companyID), sse.EventJustificationCreated, resp)
	return resp, nil
}

// ListMine implements justification.JustificationService.
func (s *JustificationServiceImpl) ListMine(ctx context.Context, filter justification.JustificationFilter) ([]justification.JustificationResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	identity, companyID, err := s.identity(ctx, user.PermissionJustificationViewOwn)
	if err != nil {
		return nil, err
	}
	filter.UserID = &identity.UserID
	filter.CompanyID = companyID

	return s.list(ctx, filter)
}

// List implements justification.JustificationService.
func (s *JustificationServiceImpl) List(ctx context.Context, filter justification.JustificationFilter) ([]justification.JustificationResponse, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	_, companyID, err := s.identity(ctx, user.PermissionJustificationViewAll)
	if err != nil {
		return nil, err
	}
	filter.CompanyID = companyID

	return s.list(ctx, filter)
}

func (s *JustificationServiceImpl) list(ctx context.Context, filter justification.JustificationFilter) ([]justification.JustificationResponse, error) {
	items, err := s.JustificationRepository.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}
	out := make([]justification.JustificationResponse, 0, len(items))
	for _, j := range items {
		out = append(out, s.toResponse(ctx, j))
	}
	return out, nil
}

// Approve implements justification.JustificationService.
func (s *JustificationServiceImpl) Approve(ctx context.Context, req justification.ApproveJustificationRequest) (justification.JustificationResponse, error) {
	return s.review(ctx, req.ID, justification.StatusApproved, nil)
}

// Reject implements justification.JustificationService.
func (s *JustificationServiceImpl) Reject(ctx context.Context, req justification.RejectJustificationRequest) (justification.JustificationResponse, error) {
	if err := req.Validate(); err != nil {
		return justification.JustificationResponse{}, err
	}
	reason := req.Reason
	return s.review(ctx, req.ID, justification.StatusRejected, &reason)
}

func (s *JustificationServiceImpl) review(ctx context.Context, id string, status justification.Status, reason *string) (justification.JustificationResponse, error) {
	identity, companyID, err := s.identity(ctx, user.PermissionJustificationReview)
	if err != nil {
		return justification.JustificationResponse{}, err
	}

	j, err := s.JustificationRepository.GetByID(ctx, id, companyID)
	if err != nil {
		return justification.JustificationResponse{}, err
	}
	if j.Status != justification.StatusPending {
		return justification.JustificationResponse{}, justification.ErrJustificationAlreadyProcessed
	}

	reviewedAt := s.now()
	j.Status = status
	j.ReviewedBy = &identity.UserID
	j.ReviewedAt = &reviewedAt
	j.RejectionReason = reason

	if err := s.JustificationRepository.UpdateStatus(ctx, j); err != nil {
		return justification.JustificationResponse{}, err
	}

	slog.Info("Justification reviewed",
		"justification_id", j.ID,
		"status", j.Status,
		"reviewed_by", identity.UserID)

	resp := s.toResponse(ctx, j)
	s.publish(sse.UserTopic(j.UserID), sse.EventJustificationReviewed, resp)
	return resp, nil
}

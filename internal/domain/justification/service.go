package justification

import (
	"context"
)

type JustificationService interface {
	Create(ctx context.Context, req CreateJustificationRequest) (JustificationResponse, error)
	ListMine(ctx context.Context, filter JustificationFilter) ([]JustificationResponse, error)
	List(ctx context.Context, filter JustificationFilter) ([]JustificationResponse, error)
	Approve(ctx context.Context, req ApproveJustificationRequest) (JustificationResponse, error)
	Reject(ctx context.Context, req RejectJustificationRequest) (JustificationResponse, error)
}

package balance

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/balance"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/justification"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/punch"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/jwt"
	"golang.org/x/sync/singleflight"
)

type Options struct {
	ExpectedDailyMinutes int
	WeekendsOff          bool
	Location             *time.Location
	Now                  func() time.Time
}

type BalanceServiceImpl struct {
	punch.PunchRepository
	justification.JustificationRepository
	opts  Options
	group singleflight.Group
}

func NewBalanceService(punchRepo punch.PunchRepository, justificationRepo justification.JustificationRepository, opts Options) balance.BalanceService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &BalanceServiceImpl{
		PunchRepository:         punchRepo,
		JustificationRepository: justificationRepo,
		opts:                    opts,
	}
}

// GetMyMonthly implements balance.BalanceService.
func (s *BalanceServiceImpl) GetMyMonthly(ctx context.Context, req balance.MonthlyBalanceRequest) (balance.MonthlyBalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}
	if identity.CompanyID == nil {
		return balance.MonthlyBalanceResponse{}, punch.ErrCompanyBindingMissing
	}

	return s.monthly(ctx, identity.UserID, *identity.CompanyID, req.Month)
}

// GetUserMonthly implements balance.BalanceService.
func (s *BalanceServiceImpl) GetUserMonthly(ctx context.Context, req balance.MonthlyBalanceRequest) (balance.MonthlyBalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}
	if identity.CompanyID == nil {
		return balance.MonthlyBalanceResponse{}, punch.ErrCompanyBindingMissing
	}
	if !user.HasPermission(identity.Role, user.PermissionBalanceViewAll) {
		return balance.MonthlyBalanceResponse{}, user.ErrInsufficientPermissions
	}

	return s.monthly(ctx, req.UserID, *identity.CompanyID, req.Month)
}

func (s *BalanceServiceImpl) monthly(ctx context.Context, userID, companyID, month string) (balance.MonthlyBalanceResponse, error) {
	key := companyID + "/" + userID + "/" + month
	// the shared call must outlive whichever caller started it
	shared := context.WithoutCancel(ctx)
	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		return s.computeMonthly(shared, userID, companyID, month)
	})
	if err != nil {
		return balance.MonthlyBalanceResponse{}, err
	}
	return v.(balance.MonthlyBalanceResponse), nil
}

func (s *BalanceServiceImpl) computeMonthly(ctx context.Context, userID, companyID, month string) (balance.MonthlyBalanceResponse, error) {
	start, _ := time.Parse("2006-01", month)
	end := start.AddDate(0, 1, -1)
	startStr := start.Format(punch.DateLayout)
	endStr := end.Format(punch.DateLayout)

	punches, err := s.PunchRepository.List(ctx, punch.PunchFilter{
		UserID:    &userID,
		CompanyID: companyID,
		StartDate: startStr,
		EndDate:   endStr,
	})
	if err != nil {
		return balance.MonthlyBalanceResponse{}, fmt.Errorf("failed to list punches: %w", err)
	}

	justifications, err := s.JustificationRepository.List(ctx, justification.JustificationFilter{
		UserID:    &userID,
		CompanyID: companyID,
		StartDate: startStr,
		EndDate:   endStr,
	})
	if err != nil {
		return balance.MonthlyBalanceResponse{}, fmt.Errorf("failed to list justifications: %w", err)
	}

	logs := BuildRange(userID, start, end, punches, justifications, RangeOptions{
		IncludeEmpty: true,
		WeekendsOff:  s.opts.WeekendsOff,
		Until:        s.opts.Now().In(s.opts.Location),
	})

	resp := balance.MonthlyBalanceResponse{
		UserID: userID,
		Month:  month,
		Days:   make([]balance.DayBalanceResponse, 0, len(logs)),
	}
	for _, log := range logs {
		day := Summarize(log, s.expectedOn(log.Date))
		resp.WorkedMinutes += day.WorkedMinutes
		resp.BalanceMinutes += day.BalanceMinutes
		resp.Days = append(resp.Days, day)
	}
	resp.Balance = FormatSignedDuration(resp.BalanceMinutes)

	return resp, nil
}

// GetCompanyDaily implements balance.BalanceService.
func (s *BalanceServiceImpl) GetCompanyDaily(ctx context.Context, req balance.CompanyDailyRequest) ([]balance.DayBalanceResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	identity, err := jwt.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if identity.CompanyID == nil {
		return nil, punch.ErrCompanyBindingMissing
	}
	if !user.HasPermission(identity.Role, user.PermissionBalanceViewAll) {
		return nil, user.ErrInsufficientPermissions
	}

	punches, err := s.PunchRepository.List(ctx, punch.PunchFilter{
		CompanyID: *identity.CompanyID,
		StartDate: req.Date,
		EndDate:   req.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list punches: %w", err)
	}

	justifications, err := s.JustificationRepository.List(ctx, justification.JustificationFilter{
		CompanyID: *identity.CompanyID,
		StartDate: req.Date,
		EndDate:   req.Date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list justifications: %w", err)
	}

	logs := GroupByDay(punches, justifications)
	days := make([]balance.DayBalanceResponse, 0, len(logs))
	for _, log := range logs {
		days = append(days, Summarize(log, s.expectedOn(log.Date)))
	}
	return days, nil
}

func (s *BalanceServiceImpl) expectedOn(date string) int {
	return ExpectedMinutes(date, s.opts.ExpectedDailyMinutes, s.opts.WeekendsOff)
}

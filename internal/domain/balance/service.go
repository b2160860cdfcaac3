package balance

import (
	"context"
)

type BalanceService interface {
	// GetMyMonthly computes the authenticated user's balance for a month.
	GetMyMonthly(ctx context.Context, req MonthlyBalanceRequest) (MonthlyBalanceResponse, error)

	// GetUserMonthly computes another user's balance (manager).
	GetUserMonthly(ctx context.Context, req MonthlyBalanceRequest) (MonthlyBalanceResponse, error)

	// GetCompanyDaily lists every user's balance on one date (manager).
	GetCompanyDaily(ctx context.Context, req CompanyDailyRequest) ([]DayBalanceResponse, error)
}

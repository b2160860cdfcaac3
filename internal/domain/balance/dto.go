package balance

import (
	"github.com/cmlabs-hris/timeclock-backend-go/internal/pkg/validator"
)

type MonthlyBalanceRequest struct {
	UserID string `json:"-"`
	Month  string `json:"month"` // YYYY-MM
}

func (r *MonthlyBalanceRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, valid := validator.IsValidMonth(r.Month); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "month",
			Message: "month must be in YYYY-MM format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type CompanyDailyRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

func (r *CompanyDailyRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, valid := validator.IsValidDate(r.Date); !valid {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}

	if len(errs) > 0 {
		return errs
	}

	return nil
}

type DayBalanceResponse struct {
	UserID          string `json:"user_id"`
	Date            string `json:"date"`
	PunchCount      int    `json:"punch_count"`
	WorkedMinutes   int    `json:"worked_minutes"`
	ExpectedMinutes int    `json:"expected_minutes"`
	BalanceMinutes  int    `json:"balance_minutes"`
	Balance         string `json:"balance"`
	Worked          string `json:"worked"`
	Excused         bool   `json:"excused"`
}

type MonthlyBalanceResponse struct {
	UserID         string               `json:"user_id"`
	Month          string               `json:"month"`
	WorkedMinutes  int                  `json:"worked_minutes"`
	BalanceMinutes int                  `json:"balance_minutes"`
	Balance        string               `json:"balance"`
	Days           []DayBalanceResponse `json:"days"`
}

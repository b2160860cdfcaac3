package http

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/balance"
	"github.com/cmlabs-hris/timeclock-backend-go/internal/handler/http/response"
	balanceService "github.com/cmlabs-hris/timeclock-backend-go/internal/service/balance"
	"github.com/go-chi/chi/v5"
)

type BalanceHandler interface {
	GetMyMonthly(w http.ResponseWriter, r *http.Request)
	GetUserMonthly(w http.ResponseWriter, r *http.Request)
	GetCompanyDaily(w http.ResponseWriter, r *http.Request)
}

type balanceHandlerImpl struct {
	balanceService balance.BalanceService
}

func NewBalanceHandler(balanceService balance.BalanceService) BalanceHandler {
	return &balanceHandlerImpl{
		balanceService: balanceService,
	}
}

// GetMyMonthly implements BalanceHandler.
func (h *balanceHandlerImpl) GetMyMonthly(w http.ResponseWriter, r *http.Request) {
	req := balance.MonthlyBalanceRequest{Month: r.URL.Query().Get("month")}

	result, err := h.balanceService.GetMyMonthly(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	writeMonthly(w, r, result)
}

// GetUserMonthly implements BalanceHandler.
func (h *balanceHandlerImpl) GetUserMonthly(w http.ResponseWriter, r *http.Request) {
	req := balance.MonthlyBalanceRequest{
		UserID: chi.URLParam(r, "userID"),
		Month:  r.URL.Query().Get("month"),
	}

	result, err := h.balanceService.GetUserMonthly(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	writeMonthly(w, r, result)
}

// GetCompanyDaily implements BalanceHandler.
func (h *balanceHandlerImpl) GetCompanyDaily(w http.ResponseWriter, r *http.Request) {
	req := balance.CompanyDailyRequest{Date: r.URL.Query().Get("date")}

	result, err := h.balanceService.GetCompanyDaily(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// writeMonthly answers with JSON, or a workbook when format=xlsx.
func writeMonthly(w http.ResponseWriter, r *http.Request, result balance.MonthlyBalanceResponse) {
	if r.URL.Query().Get("format") != "xlsx" {
		response.Success(w, result)
		return
	}

	data, err := balanceService.MonthlyWorkbook(result)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	w.Header().Set("Content-Type", balanceService.XLSXContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="balance-%s-%s.xlsx"`, result.UserID, result.Month))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		slog.Warn("Failed to write workbook", "user_id", result.UserID, "error", err)
	}
}

package balance

import (
	"fmt"

	"github.com/cmlabs-hris/timeclock-backend-go/internal/domain/balance"
	"github.com/xuri/excelize/v2"
)

// XLSXContentType is the media type of MonthlyWorkbook output.
const XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var workbookHeader = []interface{}{"Date", "Punches", "Worked", "Expected (min)", "Balance (min)", "Balance", "Excused"}

// MonthlyWorkbook renders a monthly balance as a single-sheet XLSX file
// with one row per day and a totals row.
func MonthlyWorkbook(resp balance.MonthlyBalanceResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := resp.Month
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	if err := f.SetSheetRow(sheet, "A1", &workbookHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create style: %w", err)
	}
	if err := f.SetCellStyle(sheet, "A1", "G1", bold); err != nil {
		return nil, fmt.Errorf("failed to style header: %w", err)
	}

	row := 2
	for _, d := range resp.Days {
		excused := ""
		if d.Excused {
			excused = "yes"
		}
		values := []interface{}{d.Date, d.PunchCount, d.Worked, d.ExpectedMinutes, d.BalanceMinutes, d.Balance, excused}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &values); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", d.Date, err)
		}
		row++
	}

	totals := []interface{}{"Total", "", FormatDuration(resp.WorkedMinutes), "", resp.BalanceMinutes, resp.Balance, ""}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &totals); err != nil {
		return nil, fmt.Errorf("failed to write totals: %w", err)
	}
	if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("G%d", row), bold); err != nil {
		return nil, fmt.Errorf("failed to style totals: %w", err)
	}
	if err := f.SetColWidth(sheet, "A", "G", 14); err != nil {
		return nil, fmt.Errorf("failed to size columns: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to encode workbook: %w", err)
	}
	return buf.Bytes(), nil
}

package reports

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

const (
	sheetRADuties = "RA Duties"
	sheetMonthly  = "Monthly Summary"
)

var shiftHeaders = []string{"Total", "Primary", "Secondary", "Tertiary"}

// Workbook renders the per-RA report for bounds and the monthly summary for year as an XLSX
// file and returns it with a suggested file name.
func (s *Service) Workbook(ctx context.Context, bounds Range, year int) (*bytes.Buffer, string, error) {
	perRA, err := s.RADuties(ctx, bounds)
	if err != nil {
		return nil, "", err
	}
	monthly, err := s.MonthlySummary(ctx, year)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetRADuties); err != nil {
		return nil, "", err
	}
	if _, err := f.NewSheet(sheetMonthly); err != nil {
		return nil, "", err
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#D9E1F2"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, "", err
	}

	raRows := make([][]interface{}, 0, len(perRA))
	for _, row := range perRA {
		raRows = append(raRows, append([]interface{}{row.RAName}, countCells(row.ShiftTotals)...))
	}
	if err := writeSheet(f, sheetRADuties, "RA", raRows, headerStyle); err != nil {
		return nil, "", err
	}

	monthRows := make([][]interface{}, 0, len(monthly))
	for _, row := range monthly {
		monthRows = append(monthRows, append([]interface{}{fmt.Sprintf("%04d-%s", year, row.Month)}, countCells(row.ShiftTotals)...))
	}
	if err := writeSheet(f, sheetMonthly, "Month", monthRows, headerStyle); err != nil {
		return nil, "", err
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("report workbook write failed", zap.Error(err))
		return nil, "", err
	}
	return buf, fmt.Sprintf("duty-report-%04d.xlsx", year), nil
}

func writeSheet(f *excelize.File, sheet, label string, rows [][]interface{}, headerStyle int) error {
	header := append([]interface{}{label}, stringCells(shiftHeaders)...)
	if err := f.SetSheetRow(sheet, cell(0, 1), &header); err != nil {
		return err
	}
	last := cell(len(header)-1, 1)
	if err := f.SetCellStyle(sheet, cell(0, 1), last, headerStyle); err != nil {
		return err
	}
	if err := f.SetColWidth(sheet, "A", "A", 24); err != nil {
		return err
	}
	for index, values := range rows {
		row := values
		if err := f.SetSheetRow(sheet, cell(0, index+2), &row); err != nil {
			return err
		}
	}
	return nil
}

func countCells(totals ShiftTotals) []interface{} {
	return []interface{}{totals.TotalDuties, totals.PrimaryCount, totals.SecondaryCount, totals.TertiaryCount}
}

func stringCells(values []string) []interface{} {
	cells := make([]interface{}, 0, len(values))
	for _, value := range values {
		cells = append(cells, value)
	}
	return cells
}

func cell(column, row int) string {
	name, _ := excelize.CoordinatesToCellName(column+1, row)
	return name
}

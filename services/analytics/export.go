package analytics

import (
	"fmt"
	"sort"

	"bloomify-insights/models"

	"github.com/xuri/excelize/v2"
)

const (
	sheetKPIs     = "KPIs"
	sheetEarnings = "Earnings"
	sheetBookings = "Bookings"
	sheetServices = "Top Services"
)

// ExportProviderDashboard renders a provider dashboard as an XLSX workbook.
func ExportProviderDashboard(dash *models.ProviderDashboard) ([]byte, error) {
	if dash == nil {
		return nil, NewContractViolation("export dashboard", "dashboard is required")
	}
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetKPIs); err != nil {
		return nil, fmt.Errorf("failed to name KPI sheet: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	kpiRows := make([][]interface{}, 0, len(dash.KPIs))
	for _, m := range dash.KPIs {
		kpiRows = append(kpiRows, []interface{}{m.Name, m.Value, m.Unit})
	}
	if err := writeSheet(f, sheetKPIs, headerStyle, []string{"Metric", "Value", "Unit"}, kpiRows); err != nil {
		return nil, err
	}
	if err := writeTrend(f, sheetEarnings, headerStyle, dash.EarningsTrend); err != nil {
		return nil, err
	}
	if err := writeTrend(f, sheetBookings, headerStyle, dash.BookingsTrend); err != nil {
		return nil, err
	}

	serviceRows := make([][]interface{}, 0, len(dash.TopServices))
	for _, s := range dash.TopServices {
		serviceRows = append(serviceRows, []interface{}{s.ServiceID, s.Name, s.Bookings, s.Revenue})
	}
	if _, err := f.NewSheet(sheetServices); err != nil {
		return nil, fmt.Errorf("failed to create sheet %s: %w", sheetServices, err)
	}
	if err := writeSheet(f, sheetServices, headerStyle, []string{"Service ID", "Name", "Bookings", "Revenue"}, serviceRows); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTrend(f *excelize.File, sheet string, headerStyle int, trend []models.TimeBucket) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to create sheet %s: %w", sheet, err)
	}
	names := map[string]struct{}{}
	for _, b := range trend {
		for k := range b.Aggregates {
			names[k] = struct{}{}
		}
	}
	aggs := make([]string, 0, len(names))
	for k := range names {
		aggs = append(aggs, k)
	}
	sort.Strings(aggs)

	header := append([]string{"Period", "Start", "End"}, aggs...)
	rows := make([][]interface{}, 0, len(trend))
	for _, b := range trend {
		row := []interface{}{b.Label, b.WindowStart.Format("2006-01-02 15:04:05"), b.WindowEnd.Format("2006-01-02 15:04:05")}
		for _, k := range aggs {
			row = append(row, b.Aggregates[k])
		}
		rows = append(rows, row)
	}
	return writeSheet(f, sheet, headerStyle, header, rows)
}

func writeSheet(f *excelize.File, sheet string, headerStyle int, header []string, rows [][]interface{}) error {
	for i, col := range header {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return fmt.Errorf("failed to write %s header: %w", sheet, err)
		}
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, r+2)
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, r+1, err)
		}
	}
	for i := range header {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, 18)
	}
	return nil
}

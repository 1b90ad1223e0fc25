package analytics

import (
	"bytes"
	"errors"
	"testing"

	"bloomify-insights/models"

	"github.com/xuri/excelize/v2"
)

func TestExportProviderDashboard(t *testing.T) {
	w := models.Window{Start: day(2024, 3, 1, 0), End: day(2024, 3, 3, 0)}
	dash := ComputeProviderDashboard(providerSnapshot(), w, DashboardOptions{})

	data, err := ExportProviderDashboard(&dash)
	if err != nil {
		t.Fatalf("ExportProviderDashboard() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("OpenReader() error = %v", err)
	}
	defer f.Close()

	want := []string{sheetKPIs, sheetEarnings, sheetBookings, sheetServices}
	got := f.GetSheetList()
	if !equalStrings(got, want) {
		t.Errorf("sheets = %v, want %v", got, want)
	}

	header, err := f.GetCellValue(sheetKPIs, "A1")
	if err != nil || header != "Metric" {
		t.Errorf("KPI header = %q, %v", header, err)
	}
	rows, err := f.GetRows(sheetKPIs)
	if err != nil {
		t.Fatalf("GetRows() error = %v", err)
	}
	if len(rows) != len(dash.KPIs)+1 {
		t.Errorf("KPI rows = %d, want %d", len(rows), len(dash.KPIs)+1)
	}
	trend, _ := f.GetRows(sheetEarnings)
	if len(trend) != len(dash.EarningsTrend)+1 {
		t.Errorf("earnings rows = %d, want %d", len(trend), len(dash.EarningsTrend)+1)
	}
}

func TestExportProviderDashboardRequiresDashboard(t *testing.T) {
	_, err := ExportProviderDashboard(nil)
	var violation *ContractViolation
	if !errors.As(err, &violation) {
		t.Errorf("error = %v, want ContractViolation", err)
	}
}

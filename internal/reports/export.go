// Package reports renders shift reconciliation reports for download.
package reports

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	handover "station-ops/internal/handover/domain"
	reconcile "station-ops/internal/reconcile/domain"
)

// BuildShiftReportPDF renders a minimal PDF for a shift: one tank
// reconciliation block per tank, then the cash handovers.
func BuildShiftReportPDF(shiftID string, tanks []reconcile.StoredReconciliation, handovers []handover.StoredHandover) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Shift Reconciliation Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Shift: %s", shiftID))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", time.Now().UTC().Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(25, 6, "Tank", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Movement (L)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Nozzles (L)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Variance (L)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Var %", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Verdict", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range tanks {
		result := row.Result
		pdf.CellFormat(25, 6, result.TankID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", result.TankVolumeMovement), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", result.NozzleTotalLiters), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", result.VarianceLiters), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%.2f", result.VariancePercent), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, string(result.Verdict), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		if !result.Complete() {
			pdf.CellFormat(180, 6, fmt.Sprintf("  %d nozzle(s) excluded as invalid", len(result.ExcludedNozzles)), "1", 0, "L", false, 0, "")
			pdf.Ln(-1)
		}
	}

	pdf.Ln(6)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Attendant", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Expected", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Actual", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Difference", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range handovers {
		result := row.Result
		pdf.CellFormat(35, 6, result.AttendantID, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, result.ExpectedCash.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, result.ActualCash.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, result.Difference.StringFixed(2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, string(row.Status), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildShiftReportXLSX renders a minimal XLSX for a shift, with tank and
// handover sheets.
func BuildShiftReportXLSX(shiftID string, tanks []reconcile.StoredReconciliation, handovers []handover.StoredHandover) ([]byte, error) {
	f := excelize.NewFile()
	tankSheet := "tanks"
	cashSheet := "handovers"
	f.SetSheetName("Sheet1", tankSheet)
	f.NewSheet(cashSheet)

	headers := []string{"Shift", "Tank", "Opening Dip (L)", "Closing Dip (L)", "Delivered (L)", "Movement (L)", "Nozzles (L)", "Variance (L)", "Variance %", "Verdict", "Source", "Complete"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(tankSheet, cell, header)
	}
	for i, row := range tanks {
		result := row.Result
		values := []any{
			shiftID,
			result.TankID,
			result.OpeningDipLiters,
			result.ClosingDipLiters,
			result.TotalDeliveredLiters,
			result.TankVolumeMovement,
			result.NozzleTotalLiters,
			result.VarianceLiters,
			result.VariancePercent,
			string(result.Verdict),
			string(result.DataSource),
			result.Complete(),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(tankSheet, cell, value)
		}
	}

	cashHeaders := []string{"Shift", "Attendant", "Fuel", "LPG", "Lubricants", "Accessories", "Expected Cash", "Actual Cash", "Difference", "Status"}
	for i, header := range cashHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(cashSheet, cell, header)
	}
	for i, row := range handovers {
		result := row.Result
		values := []any{
			shiftID,
			result.AttendantID,
			result.FuelRevenue.StringFixed(2),
			result.LPGSales.StringFixed(2),
			result.LubricantSales.StringFixed(2),
			result.AccessorySales.StringFixed(2),
			result.ExpectedCash.StringFixed(2),
			result.ActualCash.StringFixed(2),
			result.Difference.StringFixed(2),
			string(row.Status),
		}
		for j, value := range values {
			cell, _ := excelize.CoordinatesToCellName(j+1, i+2)
			_ = f.SetCellValue(cashSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

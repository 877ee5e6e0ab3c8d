// Package report renders weekly vital-sign reports for download.
package report

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	measurement "vitals-cloud/internal/measurement/domain"
)

// BuildWeeklyPDF renders a minimal PDF for a weekly summary.
func BuildWeeklyPDF(summary *measurement.WeeklySummary, daily []measurement.DailyAggregate, patientID string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Weekly Vitals Report")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Patient: %s", patientID))
	pdf.Ln(5)
	if summary != nil {
		pdf.Cell(0, 6, fmt.Sprintf("Range: %s to %s", summary.RangeStart.Format("2006-01-02"), summary.RangeEnd.Format("2006-01-02")))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Measurements: %d", summary.TotalMeasurements))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("Heart rate: avg %.1f bpm, min %d, max %d", summary.AverageHeartRate, summary.MinHeartRate, summary.MaxHeartRate))
		pdf.Ln(5)
		pdf.Cell(0, 6, fmt.Sprintf("SpO2: avg %.1f%%, min %d, max %d", summary.AverageSpO2, summary.MinSpO2, summary.MaxSpO2))
		pdf.Ln(8)
	} else {
		pdf.Cell(0, 6, "No measurements recorded in the last 7 days")
		pdf.Ln(8)
	}

	// Daily table
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(35, 6, "Day", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Avg HR (bpm)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "HR min/max", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Avg SpO2 (%)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(25, 6, "Count", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, day := range daily {
		pdf.CellFormat(35, 6, day.Date, "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%.1f", day.AverageHeartRate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprintf("%d / %d", day.MinHeartRate, day.MaxHeartRate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.1f", day.AverageSpO2), "1", 0, "R", false, 0, "")
		pdf.CellFormat(25, 6, fmt.Sprintf("%d", day.Count), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	err := pdf.Output(&buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildWeeklyXLSX renders a minimal XLSX for a weekly summary.
func BuildWeeklyXLSX(summary *measurement.WeeklySummary, daily []measurement.DailyAggregate, patientID string) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	dailySheet := "daily"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(dailySheet)

	_ = f.SetCellValue(summarySheet, "A1", "Weekly Vitals Report")
	_ = f.SetCellValue(summarySheet, "A3", "Patient")
	_ = f.SetCellValue(summarySheet, "B3", patientID)
	if summary != nil {
		_ = f.SetCellValue(summarySheet, "A4", "Range start")
		_ = f.SetCellValue(summarySheet, "B4", summary.RangeStart.Format("2006-01-02"))
		_ = f.SetCellValue(summarySheet, "A5", "Range end")
		_ = f.SetCellValue(summarySheet, "B5", summary.RangeEnd.Format("2006-01-02"))
		_ = f.SetCellValue(summarySheet, "A6", "Measurements")
		_ = f.SetCellValue(summarySheet, "B6", summary.TotalMeasurements)
		_ = f.SetCellValue(summarySheet, "A7", "Avg heart rate")
		_ = f.SetCellValue(summarySheet, "B7", summary.AverageHeartRate)
		_ = f.SetCellValue(summarySheet, "A8", "Min/Max heart rate")
		_ = f.SetCellValue(summarySheet, "B8", fmt.Sprintf("%d / %d", summary.MinHeartRate, summary.MaxHeartRate))
		_ = f.SetCellValue(summarySheet, "A9", "Avg SpO2")
		_ = f.SetCellValue(summarySheet, "B9", summary.AverageSpO2)
		_ = f.SetCellValue(summarySheet, "A10", "Min/Max SpO2")
		_ = f.SetCellValue(summarySheet, "B10", fmt.Sprintf("%d / %d", summary.MinSpO2, summary.MaxSpO2))
	} else {
		_ = f.SetCellValue(summarySheet, "A4", "No measurements recorded in the last 7 days")
	}

	_ = f.SetCellValue(dailySheet, "A1", "Day")
	_ = f.SetCellValue(dailySheet, "B1", "Avg HR (bpm)")
	_ = f.SetCellValue(dailySheet, "C1", "Min HR")
	_ = f.SetCellValue(dailySheet, "D1", "Max HR")
	_ = f.SetCellValue(dailySheet, "E1", "Avg SpO2 (%)")
	_ = f.SetCellValue(dailySheet, "F1", "Count")
	for i, day := range daily {
		row := i + 2
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("A%d", row), day.Date)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("B%d", row), day.AverageHeartRate)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("C%d", row), day.MinHeartRate)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("D%d", row), day.MaxHeartRate)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("E%d", row), day.AverageSpO2)
		_ = f.SetCellValue(dailySheet, fmt.Sprintf("F%d", row), day.Count)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

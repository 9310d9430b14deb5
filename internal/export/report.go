package export

import (
	"fmt"
	"os"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/claims-extractor/internal/batch"
)

const reportSheet = "Batches"

// ReportXLSX renders a batch run as a workbook: one row per batch and a
// totals row.
func ReportXLSX(r batch.Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if index, _ := f.GetSheetIndex(reportSheet); index == -1 {
		if _, err := f.NewSheet(reportSheet); err != nil {
			return nil, err
		}
	}
	// the default sheet would otherwise stay empty in front
	_ = f.DeleteSheet("Sheet1")
	activeIndex, _ := f.GetSheetIndex(reportSheet)
	f.SetActiveSheet(activeIndex)

	headers := []string{
		"Batch",
		"Processed",
		"Total",
		"Failed Documents",
		"Duration (s)",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(reportSheet, cell, h)
	}

	row := 2
	write := func(col int, v any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(reportSheet, cell, v)
	}
	for _, b := range r.Batches {
		write(1, b.Number)
		write(2, b.Processed)
		write(3, b.Total)
		write(4, strings.Join(b.Failed, ", "))
		write(5, b.Duration.Seconds())
		row++
	}

	write(1, "Total")
	write(2, r.Processed)
	write(3, r.Total)
	status := "SUCCESS"
	if !r.Success {
		status = "FAILED: " + r.Reason
	}
	write(4, fmt.Sprintf("%s (run %s, ratio %.2f)", status, r.RunID, r.Ratio))

	_ = f.SetColWidth(reportSheet, "A", "A", 10)
	_ = f.SetColWidth(reportSheet, "B", "C", 12)
	_ = f.SetColWidth(reportSheet, "D", "D", 60)
	_ = f.SetColWidth(reportSheet, "E", "E", 14)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteReportXLSX writes ReportXLSX(r) to path. An empty path or a run with
// no batches writes nothing and returns false.
func WriteReportXLSX(path string, r batch.Report) (bool, error) {
	if path == "" || len(r.Batches) == 0 {
		return false, nil
	}
	data, err := ReportXLSX(r)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	return true, nil
}

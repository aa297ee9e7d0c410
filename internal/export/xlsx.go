// Package export renders a processed table as an Excel workbook for
// the people who work the phone lists. The CSV stays the canonical
// output; the workbook is the hand-off format.
package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"

	"phonehunt/internal/batch"
	"phonehunt/internal/dataset"
)

const (
	resultsSheet = "Results"
	runsSheet    = "Run Summary"
)

// Exporter builds workbooks from processed tables.
type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

// Export renders the table onto a Results sheet and, when summaries are
// given, a Run Summary sheet. The caller owns the returned file.
func (e *Exporter) Export(table *dataset.Table, summaries []*batch.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	f.SetSheetName("Sheet1", resultsSheet)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#E2E8F0"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	columns := table.Columns()
	for i, col := range columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(resultsSheet, cell, col)
	}
	f.SetRowStyle(resultsSheet, 1, 1, headerStyle)

	for row := 1; row <= table.RowCount(); row++ {
		for i, col := range columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, row+1)
			f.SetCellValue(resultsSheet, cell, table.Get(row, col))
		}
	}

	if len(columns) > 0 {
		last, _ := excelize.ColumnNumberToName(len(columns))
		f.SetColWidth(resultsSheet, "A", last, 22)
	}

	if len(summaries) > 0 {
		if _, err := f.NewSheet(runsSheet); err != nil {
			return nil, fmt.Errorf("summary sheet: %w", err)
		}
		rows := [][]interface{}{
			{"Run ID", "Range", "Resolved", "Skipped", "Unresolved", "Aborted", "Abort Reason"},
		}
		for _, s := range summaries {
			rows = append(rows, []interface{}{
				s.RunID.String(),
				fmt.Sprintf("%d-%d", s.Start, s.End),
				s.Resolved,
				s.Skipped,
				s.Unresolved,
				strconv.FormatBool(s.Aborted),
				s.AbortReason,
			})
		}
		for i, row := range rows {
			for j, val := range row {
				cell, _ := excelize.CoordinatesToCellName(j+1, i+1)
				f.SetCellValue(runsSheet, cell, val)
			}
		}
		f.SetRowStyle(runsSheet, 1, 1, headerStyle)
		f.SetColWidth(runsSheet, "A", "G", 20)
	}

	f.SetActiveSheet(0)
	return f, nil
}

// ExportFile writes the workbook straight to disk.
func (e *Exporter) ExportFile(table *dataset.Table, summaries []*batch.Summary, path string) error {
	f, err := e.Export(table, summaries)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

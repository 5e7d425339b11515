package format

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"tasktrack/internal/models"
)

const (
	// XLSXContentType is the media type of WriteTasksXLSX output.
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

	TaskSheetName = "Tasks"
)

var taskSheetHeaders = []string{"#", "Subject", "Action", "Department", "Status", "Due Date", "Completed Date", "Notes"}

var taskSheetWidths = map[string]float64{
	"A": 8, "B": 36, "C": 36, "D": 20, "E": 16, "F": 14, "G": 16, "H": 48,
}

// WriteTasksXLSX writes tasks as a one-sheet workbook. Rows keep the order
// given; the # column is the task id.
func WriteTasksXLSX(w io.Writer, tasks []models.TaskInfo) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), TaskSheetName); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(taskSheetHeaders))
	for i, h := range taskSheetHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(TaskSheetName, "A1", &header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	if err := f.SetCellStyle(TaskSheetName, "A1", "H1", bold); err != nil {
		return fmt.Errorf("header style: %w", err)
	}
	for col, width := range taskSheetWidths {
		if err := f.SetColWidth(TaskSheetName, col, col, width); err != nil {
			return fmt.Errorf("column width: %w", err)
		}
	}

	for i, t := range tasks {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		completed := ""
		if t.CompletedDate != nil {
			completed = t.CompletedDate.String()
		}
		row := []any{t.ID, t.Subject, t.Action, t.DepartmentName, t.StatusName, t.DueDate.String(), completed, t.Notes}
		if err := f.SetSheetRow(TaskSheetName, cell, &row); err != nil {
			return fmt.Errorf("write task %d: %w", t.ID, err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

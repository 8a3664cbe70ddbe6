package exportsvc

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"github.com/stg-academy/haksa/core/attendance"
)

const sheetName = "Attendance"

// ExcelExporter renders an attendance matrix into an xlsx workbook.
type ExcelExporter struct{}

func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// Export writes one sheet: a name/class column pair followed by one column
// per lecture. Cells carry the status short label; empty cells mean no
// record.
func (e *ExcelExporter) Export(matrix *attendance.Matrix, title string) (*bytes.Buffer, error) {
	file := excelize.NewFile()
	defer func() { _ = file.Close() }()

	file.SetSheetName(file.GetSheetName(0), sheetName)

	headerStyle, err := file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating header style")
	}

	lectures := matrix.Lectures()

	// header row
	setCell := func(col, row int, v interface{}) error {
		cell, err := excelize.CoordinatesToCellName(col, row)
		if err != nil {
			return err
		}
		return file.SetCellValue(sheetName, cell, v)
	}
	if err := setCell(1, 1, "Name"); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	if err := setCell(2, 1, "Class"); err != nil {
		return nil, errors.Wrap(err, "writing header")
	}
	for i, lec := range lectures {
		label := lec.Title
		if label == "" {
			label = fmt.Sprintf("Lecture %d", lec.Sequence)
		}
		if err := setCell(3+i, 1, label); err != nil {
			return nil, errors.Wrap(err, "writing header")
		}
	}
	lastHeader, err := excelize.CoordinatesToCellName(2+len(lectures), 1)
	if err != nil {
		return nil, err
	}
	if err := file.SetCellStyle(sheetName, "A1", lastHeader, headerStyle); err != nil {
		return nil, errors.Wrap(err, "styling header")
	}

	// one row per roster line, in the matrix's current order
	for r, row := range matrix.Rows("") {
		if err := setCell(1, r+2, row.User.Name); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
		if err := setCell(2, r+2, row.User.Class); err != nil {
			return nil, errors.Wrap(err, "writing row")
		}
		for i, lec := range lectures {
			att := row.Cells[lec.ID]
			if att == nil {
				continue
			}
			if err := setCell(3+i, r+2, att.Status.Meta().ShortLabel); err != nil {
				return nil, errors.Wrap(err, "writing row")
			}
		}
	}

	_ = file.SetColWidth(sheetName, "A", "B", 18)
	if title != "" {
		_ = file.SetDocProps(&excelize.DocProperties{Title: title})
	}

	buff, err := file.WriteToBuffer()
	if err != nil {
		return nil, errors.Wrap(err, "writing workbook")
	}
	return buff, nil
}

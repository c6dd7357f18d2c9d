package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	apperrors "github.com/gmsas95/docscan/internal/errors"
	"github.com/gmsas95/docscan/internal/extract"
)

const sheetName = "Documents"

// WriteXLSX writes one row per record: the index, each field's display
// value in fixed order, then the raw OCR text.
func WriteXLSX(w io.Writer, records []extract.DocumentRecord) error {
	if len(records) == 0 {
		return apperrors.ErrNothingToExport
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return err
	}

	kinds := extract.AllFieldKinds()
	headers := make([]any, 0, len(kinds)+2)
	headers = append(headers, "#")
	for _, k := range kinds {
		headers = append(headers, Label(k))
	}
	headers = append(headers, "Raw Text")

	if err := f.SetSheetRow(sheetName, "A1", &headers); err != nil {
		return fmt.Errorf("xlsx header: %w", err)
	}

	for i, rec := range records {
		row := make([]any, 0, len(headers))
		row = append(row, rec.Index())
		for _, nf := range rec.Fields() {
			row = append(row, nf.Field.String())
		}
		row = append(row, rec.RawText())

		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return fmt.Errorf("xlsx row %d: %w", i+1, err)
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(len(headers))
	_ = f.SetColWidth(sheetName, "A", "A", 5)
	_ = f.SetColWidth(sheetName, "B", lastCol, 20)
	_ = f.SetColWidth(sheetName, lastCol, lastCol, 60)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("xlsx write: %w", err)
	}
	return nil
}

package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"lazyprep/domain/table"
	"lazyprep/internal/errors"
)

// Write saves the table as CSV or xlsx depending on the path extension
func Write(t *table.Table, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.StorageError("create output dir", err)
		}
	}
	format, err := DetectFormat(path)
	if err != nil {
		return errors.UnsupportedFormat(path, err)
	}
	switch format {
	case FormatXLSX:
		return writeExcel(t, path)
	default:
		return writeCSV(t, path)
	}
}

func writeCSV(t *table.Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.StorageError("create csv", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(t.Names()); err != nil {
		return errors.StorageError("write csv header", err)
	}
	cols := t.Columns()
	record := make([]string, len(cols))
	for i := 0; i < t.NumRows(); i++ {
		for j, c := range cols {
			record[j] = c.Values[i].String()
		}
		if err := w.Write(record); err != nil {
			return errors.StorageError("write csv row", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.StorageError("flush csv", err)
	}
	return nil
}

func writeExcel(t *table.Table, path string) error {
	if strings.EqualFold(filepath.Ext(path), ".xls") {
		return errors.UnsupportedFormat(path, fmt.Errorf("legacy .xls output is not supported"))
	}
	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Sheet1"

	header := make([]interface{}, t.NumCols())
	for j, n := range t.Names() {
		header[j] = n
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return errors.StorageError("write xlsx header", err)
	}

	cols := t.Columns()
	for i := 0; i < t.NumRows(); i++ {
		row := make([]interface{}, len(cols))
		for j, c := range cols {
			v := c.Values[i]
			switch v.Type {
			case table.ValueTypeNumeric:
				row[j] = v.Float()
			case table.ValueTypeBoolean:
				row[j] = v.Boolean()
			case table.ValueTypeMissing:
				row[j] = nil
			default:
				row[j] = v.String()
			}
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return errors.StorageError("xlsx cell name", err)
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return errors.StorageError("write xlsx row", err)
		}
	}
	if err := f.SaveAs(path); err != nil {
		return errors.StorageError("save xlsx", err)
	}
	return nil
}

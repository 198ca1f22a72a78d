package history

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/careworks-jp/careform/report"
)

// ExportXLSX renders a set of fetched history records as an Excel workbook
// for offline review. The column layout matches the worksheet schema, except
// that the serialized item text is expanded to one readable line per item.
func ExportXLSX(records []report.Record) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)

	for i, h := range Header[:5] {
		column, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}

		if err := f.SetCellValue(sheet, fmt.Sprintf("%s1", column), h); err != nil {
			return nil, err
		}
	}

	for i, record := range records {
		row := i + 2
		values := []interface{}{
			record.Subject,
			record.Date.Format(dateFormat),
			record.Author,
			itemSummary(record.Items),
			record.Narrative,
		}

		for j, v := range values {
			column, err := excelize.ColumnNumberToName(j + 1)
			if err != nil {
				return nil, err
			}

			if err := f.SetCellValue(sheet, fmt.Sprintf("%s%d", column, row), v); err != nil {
				return nil, err
			}
		}
	}

	var b bytes.Buffer
	if err := f.Write(&b); err != nil {
		return nil, fmt.Errorf("unable to write workbook (%w)", err)
	}

	return b.Bytes(), nil
}

func itemSummary(items map[string]report.Item) string {
	var b bytes.Buffer

	for _, label := range report.ItemLabels {
		item, ok := items[label]
		if !ok {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n")
		}

		note := item.Note
		if note == "" {
			note = "-"
		}

		fmt.Fprintf(&b, "%s: %s / %s", label, item.Mode, note)
	}

	return b.String()
}

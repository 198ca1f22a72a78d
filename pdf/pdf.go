// Package pdf renders a submitted report as a single-page A4 document.
package pdf

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"

	"github.com/careworks-jp/careform/report"
)

const fontFamily = "careform"

// Column widths for the items table (mm). A4 portrait with 10mm margins
// leaves 190mm.
const (
	labelWidth = 45.0
	modeWidth  = 40.0
	noteWidth  = 105.0
)

type Renderer struct {
	// FontPath is a TTF file with Japanese glyph coverage (e.g. IPAex
	// Gothic). Without it the built-in core fonts are used and CJK text
	// will not render legibly, so it should always be configured in
	// production.
	FontPath string

	// Organization is printed in the signature block.
	Organization string
}

// Render produces the document bytes for a record. On any failure no bytes
// are returned and the submission must not proceed to upload.
func (r *Renderer) Render(record report.Record) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetMargins(10, 15, 10)
	doc.SetAutoPageBreak(true, 20)

	family := "Helvetica"
	tr := doc.UnicodeTranslatorFromDescriptor("")

	if r.FontPath != "" {
		doc.AddUTF8Font(fontFamily, "", r.FontPath)
		doc.AddUTF8Font(fontFamily, "B", r.FontPath)
		family = fontFamily
		tr = func(s string) string { return s }
	}

	doc.AddPage()

	// ... title band
	doc.SetFont(family, "B", 16)
	doc.CellFormat(0, 12, tr("支援報告書"), "", 1, "C", false, 0, "")

	doc.SetFont(family, "", 10)
	doc.CellFormat(0, 6, tr(fmt.Sprintf("報告日: %s", record.Date.Format("2006/01/02"))), "", 1, "R", false, 0, "")
	doc.Ln(2)

	doc.SetFont(family, "", 12)
	doc.CellFormat(0, 8, tr(fmt.Sprintf("利用者: %s 様", record.Subject)), "B", 1, "L", false, 0, "")
	doc.Ln(4)

	// ... items table
	doc.SetFont(family, "B", 10)
	doc.SetFillColor(235, 235, 235)
	doc.CellFormat(labelWidth, 8, tr("サービス項目"), "1", 0, "C", true, 0, "")
	doc.CellFormat(modeWidth, 8, tr("提供方法"), "1", 0, "C", true, 0, "")
	doc.CellFormat(noteWidth, 8, tr("備考"), "1", 1, "C", true, 0, "")

	doc.SetFont(family, "", 10)
	for _, label := range report.ItemLabels {
		item := record.Items[label]

		mode := string(item.Mode)
		if mode == "" {
			mode = "-"
		}

		note := item.Note
		if note == "" {
			note = "-"
		}

		doc.CellFormat(labelWidth, 8, tr(label), "1", 0, "L", false, 0, "")
		doc.CellFormat(modeWidth, 8, tr(mode), "1", 0, "C", false, 0, "")
		doc.CellFormat(noteWidth, 8, tr(note), "1", 1, "L", false, 0, "")
	}
	doc.Ln(6)

	// ... narrative, line breaks preserved
	doc.SetFont(family, "B", 11)
	doc.CellFormat(0, 8, tr("特記事項"), "", 1, "L", false, 0, "")
	doc.SetFont(family, "", 10)
	doc.MultiCell(0, 5, tr(record.Narrative), "", "L", false)

	// ... signature block
	doc.SetY(-45)
	doc.SetFont(family, "", 10)
	doc.CellFormat(0, 6, tr(r.Organization), "", 1, "R", false, 0, "")
	doc.CellFormat(0, 6, tr(fmt.Sprintf("記録者: %s          印", record.Author)), "", 1, "R", false, 0, "")

	if doc.Err() {
		return nil, fmt.Errorf("unable to render report document (%w)", doc.Error())
	}

	var b bytes.Buffer
	if err := doc.Output(&b); err != nil {
		return nil, fmt.Errorf("unable to render report document (%w)", err)
	}

	return b.Bytes(), nil
}

// Package pdf renders reports, receipts and exports.
package pdf

import (
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const (
	pageWidth  = 210.0
	marginSide = 15.0
	lineHeight = 6.0
)

// document wraps fpdf with the house layout and a UTF-8 to cp1252 translator
// so Norwegian letters survive the core fonts.
type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	p := fpdf.New("P", "mm", "A4", "")
	p.SetMargins(marginSide, 20, marginSide)
	p.SetAutoPageBreak(true, 20)
	p.SetTitle(title, true)
	p.SetCreator("Utleieskade", true)

	d := &document{pdf: p, tr: p.UnicodeTranslatorFromDescriptor("")}
	p.SetFooterFunc(func() {
		p.SetY(-15)
		p.SetFont("Helvetica", "I", 8)
		p.CellFormat(0, 10, d.tr(fmt.Sprintf("Utleieskade - side %d", p.PageNo())), "", 0, "C", false, 0, "")
	})
	p.AddPage()

	p.SetFont("Helvetica", "B", 18)
	p.CellFormat(0, 10, d.tr(title), "", 1, "L", false, 0, "")
	p.SetFont("Helvetica", "", 9)
	p.CellFormat(0, 5, d.tr("Generert "+time.Now().Format("02.01.2006 15:04")), "", 1, "L", false, 0, "")
	p.Ln(4)
	return d
}

func (d *document) heading(text string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "B", 12)
	d.pdf.CellFormat(0, 8, d.tr(text), "B", 1, "L", false, 0, "")
	d.pdf.Ln(1)
}

// field prints a label/value row.
func (d *document) field(label, value string) {
	d.pdf.SetFont("Helvetica", "B", 10)
	d.pdf.CellFormat(50, lineHeight, d.tr(label), "", 0, "L", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(value), "", "L", false)
}

func (d *document) paragraph(text string) {
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
}

// table prints a header row and body rows; widths are in mm.
func (d *document) table(headers []string, widths []float64, rows [][]string) {
	d.pdf.SetFont("Helvetica", "B", 9)
	d.pdf.SetFillColor(230, 230, 230)
	for i, h := range headers {
		d.pdf.CellFormat(widths[i], 7, d.tr(h), "1", 0, "L", true, 0, "")
	}
	d.pdf.Ln(-1)

	d.pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		for i, cell := range row {
			align := "L"
			if i > 0 && isNumeric(cell) {
				align = "R"
			}
			d.pdf.CellFormat(widths[i], 6, d.tr(truncate(cell, widths[i])), "1", 0, align, false, 0, "")
		}
		d.pdf.Ln(-1)
	}
}

func (d *document) write(w io.Writer) error {
	return d.pdf.Output(w)
}

func money(amount decimal.Decimal, currency string) string {
	return amount.StringFixed(2) + " " + upper(currency)
}

func date(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Format("02.01.2006")
}

func upper(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}

func isNumeric(s string) bool {
	_, err := decimal.NewFromString(firstWord(s))
	return err == nil
}

func firstWord(s string) string {
	for i, c := range s {
		if c == ' ' {
			return s[:i]
		}
	}
	return s
}

// truncate keeps cell text roughly within its column (about 2 mm per character at 9pt).
func truncate(s string, width float64) string {
	max := int(width / 1.9)
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}

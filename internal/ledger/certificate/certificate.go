// Package certificate renders retirement records as PDF certificates.
package certificate

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Data is everything printed on a certificate.
type Data struct {
	Number            string
	LedgerName        string
	LedgerSymbol      string
	LedgerAddress     string
	ProjectID         string
	ExternalProjectID string
	Holder            string
	Amount            uint64
	Reason            string
	RetiredAt         time.Time
}

// Options controls page layout.
type Options struct {
	PageSize   string
	FontFamily string
	Title      string
	Margin     float64
}

func DefaultOptions() Options {
	return Options{
		PageSize:   "A4",
		FontFamily: "Arial",
		Title:      "Carbon Credit Retirement Certificate",
		Margin:     20,
	}
}

// Render produces a single-page PDF.
func Render(d Data, opts Options) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", opts.PageSize, "")
	pdf.SetMargins(opts.Margin, opts.Margin, opts.Margin)
	pdf.SetAutoPageBreak(true, opts.Margin)
	pdf.SetTitle(opts.Title, true)
	pdf.SetSubject(d.Number, true)
	pdf.AddPage()

	pdf.SetFont(opts.FontFamily, "B", 18)
	pdf.SetTextColor(20, 90, 50)
	pdf.CellFormat(0, 12, opts.Title, "", 1, "C", false, 0, "")

	pdf.SetFont(opts.FontFamily, "", 11)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(0, 8, "Certificate No. "+d.Number, "", 1, "C", false, 0, "")
	pdf.Ln(8)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(opts.FontFamily, "", 12)
	pdf.MultiCell(0, 7, fmt.Sprintf(
		"This certifies that %d %s units were permanently retired from %s and can no longer be transferred or reused.",
		d.Amount, d.LedgerSymbol, d.LedgerName), "", "L", false)
	pdf.Ln(6)

	rows := [][2]string{
		{"Retired by", d.Holder},
		{"Amount", fmt.Sprintf("%d", d.Amount)},
		{"Reason", d.Reason},
		{"Retired at", d.RetiredAt.UTC().Format(time.RFC1123)},
		{"Project ID", d.ProjectID},
		{"GS Project ID", d.ExternalProjectID},
		{"Ledger", d.LedgerAddress},
	}
	pageWidth, _ := pdf.GetPageSize()
	labelWidth := 45.0
	valueWidth := pageWidth - 2*opts.Margin - labelWidth
	for i, row := range rows {
		fill := i%2 == 0
		pdf.SetFillColor(242, 242, 242)
		pdf.SetFont(opts.FontFamily, "B", 10)
		pdf.CellFormat(labelWidth, 8, row[0], "1", 0, "L", fill, 0, "")
		pdf.SetFont(opts.FontFamily, "", 10)
		pdf.CellFormat(valueWidth, 8, row[1], "1", 1, "L", fill, 0, "")
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render certificate: %w", err)
	}
	return buf.Bytes(), nil
}

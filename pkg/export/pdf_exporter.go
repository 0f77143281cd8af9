package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const pdfPrintableWidth = 277.0

// Document is a titled report: a key/value summary block followed by a table.
type Document struct {
	Title   string
	Summary [][2]string
	Table   Dataset
}

// PDFExporter renders documents on landscape A4.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render lays out the summary then the table, repeating the table header on each page.
func (e *PDFExporter) Render(doc Document) ([]byte, error) {
	if err := doc.Table.validate(); err != nil {
		return nil, err
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	widths := columnWidths(doc.Table.Columns)
	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(230, 230, 230)
		for i, c := range doc.Table.Columns {
			pdf.CellFormat(widths[i], 7, tr(c.Title), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 7)
	}

	pdf.AddPage()
	if doc.Title != "" {
		pdf.SetFont("Arial", "B", 13)
		pdf.CellFormat(0, 9, tr(doc.Title), "", 1, "L", false, 0, "")
	}
	if len(doc.Summary) > 0 {
		pdf.SetFont("Arial", "", 9)
		for _, kv := range doc.Summary {
			pdf.CellFormat(45, 5, tr(kv[0]), "", 0, "L", false, 0, "")
			pdf.CellFormat(0, 5, tr(kv[1]), "", 1, "L", false, 0, "")
		}
		pdf.Ln(4)
	}

	header()
	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, row := range doc.Table.Rows {
		if pdf.GetY()+6 > pageHeight-bottom {
			pdf.AddPage()
			header()
		}
		for i, cell := range row {
			pdf.CellFormat(widths[i], 6, tr(truncate(pdf, cell, widths[i])), "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func columnWidths(columns []Column) []float64 {
	total := 0.0
	weights := make([]float64, len(columns))
	for i, c := range columns {
		weights[i] = c.Width
		if weights[i] <= 0 {
			weights[i] = 1
		}
		total += weights[i]
	}
	for i := range weights {
		weights[i] = weights[i] / total * pdfPrintableWidth
	}
	return weights
}

// truncate shortens value so it fits in a cell of width mm.
func truncate(pdf *gofpdf.Fpdf, value string, width float64) string {
	limit := width - 2
	if pdf.GetStringWidth(value) <= limit {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 && pdf.GetStringWidth(string(runes)+"...") > limit {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}

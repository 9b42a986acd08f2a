package export

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfPageWidth  = 277.0 // printable A4 landscape width in mm
	pdfHeaderH    = 8.0
	pdfRowH       = 6.5
	pdfPageBottom = 190.0
)

// PDFExporter renders a Dataset as a tabular PDF. Timetable grids are
// wide, so pages are A4 landscape; the header row repeats after each page
// break.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the PDF bytes for the dataset with an optional title.
func (e *PDFExporter) Render(data Dataset, title string) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf dataset has no headers")
	}

	doc := gofpdf.New("L", "mm", "A4", "")
	doc.SetMargins(10, 12, 10)
	doc.AddPage()

	if title != "" {
		doc.SetFont("Arial", "B", 14)
		doc.CellFormat(0, 10, title, "", 1, "C", false, 0, "")
		doc.Ln(3)
	}

	colW := pdfPageWidth / float64(len(data.Headers))
	writeHeader := func() {
		doc.SetFont("Arial", "B", 9)
		doc.SetFillColor(230, 230, 230)
		for _, h := range data.Headers {
			doc.CellFormat(colW, pdfHeaderH, h, "1", 0, "C", true, 0, "")
		}
		doc.Ln(-1)
		doc.SetFont("Arial", "", 8)
	}
	writeHeader()

	for _, row := range data.Rows {
		if doc.GetY()+pdfRowH > pdfPageBottom {
			doc.AddPage()
			writeHeader()
		}
		for _, h := range data.Headers {
			doc.CellFormat(colW, pdfRowH, row[h], "1", 0, "", false, 0, "")
		}
		doc.Ln(-1)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

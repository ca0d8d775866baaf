package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/alphaflow/blobkit/pkg/sentiment"
	"github.com/jung-kurt/gofpdf"
)

const (
	pageLeft     = 10.0
	pageWidth    = 190.0
	pageBottom   = 280.0
	rowHeight    = 7.0
	tableStartY  = 40.0
	headerFont   = 11.0
	bodyFont     = 9.0
	titleFont    = 16.0
	fontFamily   = "Arial"
	maxCellChars = 40
)

// PDFGenerator builds a simple tabular PDF document.
type PDFGenerator struct {
	pdf *gofpdf.Fpdf
	y   float64
}

// NewPDFGenerator creates a generator with one A4 portrait page.
func NewPDFGenerator() *PDFGenerator {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	return &PDFGenerator{pdf: pdf, y: tableStartY}
}

// AddTitle writes a title and a rule at the top of the current page.
func (g *PDFGenerator) AddTitle(title, subtitle string) {
	g.pdf.SetFont(fontFamily, "B", titleFont)
	g.pdf.SetXY(pageLeft, 15)
	g.pdf.Cell(0, 10, title)

	if subtitle != "" {
		g.pdf.SetFont(fontFamily, "", bodyFont)
		g.pdf.SetXY(pageLeft, 24)
		g.pdf.Cell(0, 6, subtitle)
	}
	g.pdf.Line(pageLeft, 32, pageLeft+pageWidth, 32)
}

func (g *PDFGenerator) headerRow(headers []string, cellWidth float64) {
	g.pdf.SetFont(fontFamily, "B", headerFont)
	for i, header := range headers {
		g.pdf.SetXY(pageLeft+float64(i)*cellWidth, g.y)
		g.pdf.CellFormat(cellWidth, rowHeight, header, "B", 0, "L", false, 0, "")
	}
	g.y += rowHeight
	g.pdf.SetFont(fontFamily, "", bodyFont)
}

// AddTable writes rows under a header, repeating the header on each new page.
func (g *PDFGenerator) AddTable(headers []string, rows [][]string) {
	if len(headers) == 0 {
		return
	}
	cellWidth := pageWidth / float64(len(headers))

	g.headerRow(headers, cellWidth)
	for _, row := range rows {
		if g.y+rowHeight > pageBottom {
			g.pdf.AddPage()
			g.y = 15
			g.headerRow(headers, cellWidth)
		}
		for i, cell := range row {
			if i >= len(headers) {
				break
			}
			if len(cell) > maxCellChars {
				cell = cell[:maxCellChars-3] + "..."
			}
			g.pdf.SetXY(pageLeft+float64(i)*cellWidth, g.y)
			g.pdf.Cell(cellWidth, rowHeight, cell)
		}
		g.y += rowHeight
	}
}

// Bytes returns the finished document.
func (g *PDFGenerator) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := g.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderPDF renders a sentiment table as a PDF report.
func RenderPDF(title string, table *sentiment.Table) ([]byte, error) {
	g := NewPDFGenerator()
	g.AddTitle(title, fmt.Sprintf("%d rows, generated %s", table.Len(), time.Now().UTC().Format(time.RFC3339)))
	g.AddTable(table.Header(), table.Records())
	return g.Bytes()
}

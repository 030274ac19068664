package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pageWidth   = 277.0
	labelWidth  = 22.0
	cellHeight  = 12.0
	headerFont  = 10.0
	bodyFont    = 8.0
	titleHeight = 10.0
)

// PDFExporter renders grids into a landscape PDF, one page per grid.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// RenderGrids lays out every grid on its own page. Multi-line cell text is
// split on newlines.
func (e *PDFExporter) RenderGrids(grids []Grid) ([]byte, error) {
	if len(grids) == 0 {
		return nil, fmt.Errorf("pdf requires at least one grid")
	}
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 12, 10)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, grid := range grids {
		if len(grid.Columns) == 0 {
			return nil, fmt.Errorf("grid %q has no columns", grid.Title)
		}
		pdf.AddPage()

		if grid.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, titleHeight, tr(strings.ToUpper(grid.Title)), "", 1, "C", false, 0, "")
			pdf.Ln(3)
		}

		colWidth := (pageWidth - labelWidth) / float64(len(grid.Columns))
		pdf.SetFont("Arial", "B", headerFont)
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(labelWidth, 8, tr(grid.Corner), "1", 0, "C", true, 0, "")
		for _, column := range grid.Columns {
			pdf.CellFormat(colWidth, 8, tr(column), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)

		for r, label := range grid.RowLabels {
			pdf.SetFont("Arial", "B", bodyFont)
			pdf.CellFormat(labelWidth, cellHeight, tr(label), "1", 0, "C", false, 0, "")
			pdf.SetFont("Arial", "", bodyFont)
			for c := range grid.Columns {
				x, y := pdf.GetXY()
				pdf.Rect(x, y, colWidth, cellHeight, "D")
				lines := strings.Split(grid.cell(r, c), "\n")
				lineHeight := cellHeight / float64(max(len(lines), 2))
				for i, line := range lines {
					pdf.SetXY(x, y+float64(i)*lineHeight)
					pdf.CellFormat(colWidth, lineHeight, tr(line), "", 0, "C", false, 0, "")
				}
				pdf.SetXY(x+colWidth, y)
			}
			pdf.Ln(cellHeight)
		}
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

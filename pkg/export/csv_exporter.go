package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// CSVExporter renders grids as CSV bytes.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// RenderGrids writes each grid as a titled block separated by a blank line.
func (e *CSVExporter) RenderGrids(grids []Grid) ([]byte, error) {
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, grid := range grids {
		if len(grid.Columns) == 0 {
			return nil, fmt.Errorf("grid %q has no columns", grid.Title)
		}
		if i > 0 {
			writer.Flush()
			buf.WriteString("\n")
		}
		if err := writer.Write([]string{grid.Title}); err != nil {
			return nil, fmt.Errorf("write csv title: %w", err)
		}
		if err := writer.Write(append([]string{grid.Corner}, grid.Columns...)); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for r, label := range grid.RowLabels {
			record := make([]string, 0, len(grid.Columns)+1)
			record = append(record, label)
			for c := range grid.Columns {
				record = append(record, grid.cell(r, c))
			}
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	return flush(writer, buf)
}

func flush(writer *csv.Writer, buf *bytes.Buffer) ([]byte, error) {
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}

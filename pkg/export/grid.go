package export

// Grid is a two-dimensional sheet: one labelled row per period and one
// column per day. Cells[i][j] belongs to RowLabels[i] and Columns[j].
type Grid struct {
	Title     string
	Corner    string
	Columns   []string
	RowLabels []string
	Cells     [][]string
}

func (g Grid) cell(row, col int) string {
	if row >= len(g.Cells) || col >= len(g.Cells[row]) {
		return ""
	}
	return g.Cells[row][col]
}

package label

// Points per inch.
const inch = 72.0

// Layout describes a sheet of labels in points.
type Layout struct {
	PageWidth   float64
	PageHeight  float64
	LabelWidth  float64
	LabelHeight float64
	Margin      float64
}

// DefaultLayout is US Letter with 2.25" x 1.25" labels and 0.5" margins.
func DefaultLayout() Layout {
	return Layout{
		PageWidth:   8.5 * inch,
		PageHeight:  11 * inch,
		LabelWidth:  2.25 * inch,
		LabelHeight: 1.25 * inch,
		Margin:      0.5 * inch,
	}
}

// Columns is the number of labels across a page.
func (l Layout) Columns() int {
	return int((l.PageWidth - 2*l.Margin) / l.LabelWidth)
}

// Rows is the number of labels down a page.
func (l Layout) Rows() int {
	return int((l.PageHeight - 2*l.Margin) / l.LabelHeight)
}

// PerPage is the number of labels on a page.
func (l Layout) PerPage() int {
	return l.Columns() * l.Rows()
}

// Pages is the number of pages needed for n labels.
func (l Layout) Pages(n int) int {
	per := l.PerPage()
	if n <= 0 || per <= 0 {
		return 0
	}
	return (n + per - 1) / per
}

// Position returns the page (0-based) and the top-left corner of label i.
// Labels fill a page row by row.
func (l Layout) Position(i int) (page int, x, y float64) {
	per := l.PerPage()
	page = i / per
	pos := i % per
	col := pos % l.Columns()
	row := pos / l.Columns()
	return page, l.Margin + float64(col)*l.LabelWidth, l.Margin + float64(row)*l.LabelHeight
}

// Package document holds the tree produced by the markup scanner: a Document
// is an ordered list of Pages, each Page an ordered list of Rows, each Row an
// ordered list of Columns and each Column an ordered list of Segments.
//
// Every level is created with one child already in place, so a Page always
// has at least one Row, a Row at least one Column and a Column at least one
// Segment. Nothing in the tree carries an identifier besides its position.
package document

// Segment is a run of text inside a column. Rendered elements are appended to
// it as plain text.
type Segment struct {
	Text string
}

// Append adds s to the end of the segment.
func (s *Segment) Append(text string) {
	s.Text += text
}

// AppendRune adds r to the end of the segment.
func (s *Segment) AppendRune(r rune) {
	s.Text += string(r)
}

// Column is one horizontal slot of a row.
type Column struct {
	Segments []*Segment
}

// NewColumn returns a column holding one empty segment.
func NewColumn() *Column {
	return &Column{Segments: []*Segment{{}}}
}

// Current returns the last segment of the column.
func (c *Column) Current() *Segment {
	return c.Segments[len(c.Segments)-1]
}

// OpenSegment starts a new segment and returns it.
func (c *Column) OpenSegment() *Segment {
	seg := &Segment{}
	c.Segments = append(c.Segments, seg)
	return seg
}

// IsEmpty reports whether the column still holds a single empty segment.
func (c *Column) IsEmpty() bool {
	return len(c.Segments) == 1 && c.Segments[0].Text == ""
}

// Row is a group of columns laid out side by side.
type Row struct {
	Columns []*Column
}

// NewRow returns a row holding one fresh column.
func NewRow() *Row {
	return &Row{Columns: []*Column{NewColumn()}}
}

// Column returns the column at the 1-based index, creating every missing
// column up to and including it.
func (r *Row) Column(index int) *Column {
	if index < 1 {
		index = 1
	}
	for len(r.Columns) < index {
		r.Columns = append(r.Columns, NewColumn())
	}
	return r.Columns[index-1]
}

// IsEmpty reports whether the row has only one empty column.
func (r *Row) IsEmpty() bool {
	return len(r.Columns) == 1 && r.Columns[0].IsEmpty()
}

// Page is a named sequence of rows. The name becomes the page anchor when
// rendered.
type Page struct {
	Name string
	Rows []*Row
}

// NewPage returns a page holding one fresh row.
func NewPage(name string) *Page {
	return &Page{Name: name, Rows: []*Row{NewRow()}}
}

// CurrentRow returns the row that is still accepting content.
func (p *Page) CurrentRow() *Row {
	return p.Rows[len(p.Rows)-1]
}

// BreakRow seals the current row and starts a new one.
func (p *Page) BreakRow() *Row {
	row := NewRow()
	p.Rows = append(p.Rows, row)
	return row
}

// IsEmpty reports whether the page has no name and received no content.
func (p *Page) IsEmpty() bool {
	return p.Name == "" && len(p.Rows) == 1 && p.Rows[0].IsEmpty()
}

// Document is the result of scanning a whole input.
type Document struct {
	Pages []*Page
}

// Stats counts the nodes of a document at every level.
type Stats struct {
	Pages    int
	Rows     int
	Columns  int
	Segments int
}

// Stats walks the document and counts its nodes.
func (d *Document) Stats() Stats {
	var s Stats
	for _, p := range d.Pages {
		s.Pages++
		for _, r := range p.Rows {
			s.Rows++
			for _, c := range r.Columns {
				s.Columns++
				s.Segments += len(c.Segments)
			}
		}
	}
	return s
}

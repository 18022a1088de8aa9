package document

// Builder grows a Document page by page. It owns the page that is still open
// and the list of sealed pages.
type Builder struct {
	// SkipEmptyPages drops an unnamed page without content when a page
	// break seals it, instead of keeping it as an empty page.
	SkipEmptyPages bool

	sealed []*Page
	page   *Page
}

// NewBuilder returns a builder with one unnamed page open.
func NewBuilder() *Builder {
	return &Builder{page: NewPage("")}
}

// Page returns the open page.
func (b *Builder) Page() *Page {
	return b.page
}

// Row returns the open row of the open page.
func (b *Builder) Row() *Row {
	return b.page.CurrentRow()
}

// BreakRow seals the open row and starts a new one on the same page.
func (b *Builder) BreakRow() {
	b.page.BreakRow()
}

// BreakPage seals the open page and starts a new one called name.
func (b *Builder) BreakPage(name string) {
	if !b.SkipEmptyPages || !b.page.IsEmpty() {
		b.sealed = append(b.sealed, b.page)
	}
	b.page = NewPage(name)
}

// Document seals the open page and returns the finished document. The
// builder starts over with a fresh page afterwards.
func (b *Builder) Document() *Document {
	pages := append(b.sealed, b.page)
	b.sealed = nil
	b.page = NewPage("")
	return &Document{Pages: pages}
}

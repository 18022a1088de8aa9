// Package renderer turns classified elements and scanned documents into output
// text through a template set.
//
// The Renderer is used twice in a run: the scanner calls RenderElement each
// time an annotation closes, and once scanning is done the whole document is
// serialized by WriteDocument. Both are pure functions of their input and the
// template set, so rendering the same document twice yields the same bytes.
package renderer

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/conneroisu/txtof/internal/document"
	"github.com/conneroisu/txtof/internal/element"
	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/templates"
)

// Renderer renders elements and documents with one template set.
type Renderer struct {
	set *templates.Set
}

// New creates a renderer bound to set.
func New(set *templates.Set) *Renderer {
	return &Renderer{set: set}
}

// Set returns the template set used by the renderer.
func (r *Renderer) Set() *templates.Set {
	return r.set
}

// RenderElement renders a classified annotation with the template of its kind.
func (r *Renderer) RenderElement(el element.Element) (string, error) {
	slot, ok := templates.SlotForKind(el.Kind)
	if !ok {
		return "", errors.NewInternalError(errors.ErrCodeInternalError,
			fmt.Sprintf("no template slot for element kind %s", el.Kind), nil)
	}
	return r.set.Render(slot, el.Config)
}

// Render serializes doc and returns the output.
func (r *Renderer) Render(doc *document.Document) (string, error) {
	var b strings.Builder
	if err := r.WriteDocument(&b, doc); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteDocument serializes doc to w. The head, every page wrapper, every row
// and the foot are each written on their own line.
func (r *Renderer) WriteDocument(w io.Writer, doc *document.Document) error {
	bw := bufio.NewWriter(w)

	line := func(s string) {
		bw.WriteString(s)
		bw.WriteByte('\n')
	}

	line(r.set.Source(templates.SlotHead))

	for i, page := range doc.Pages {
		data := element.PageConfig{Value: page.Name, Anchor: PageAnchor(page.Name, i)}

		open, err := r.set.Render(templates.SlotPageOpen, data)
		if err != nil {
			return err
		}
		line(open)

		for _, row := range page.Rows {
			line(r.row(row))
		}

		closing, err := r.set.Render(templates.SlotPageClose, data)
		if err != nil {
			return err
		}
		line(closing)
	}

	line(r.set.Source(templates.SlotFoot))

	if err := bw.Flush(); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteOutput, "failed to write output", err)
	}
	return nil
}

func (r *Renderer) row(row *document.Row) string {
	var b strings.Builder

	b.WriteString(r.set.Source(templates.SlotRowOpen))
	for _, col := range row.Columns {
		b.WriteString(r.set.Source(templates.SlotColOpen))
		for _, seg := range col.Segments {
			b.WriteString(r.set.Source(templates.SlotSegmentOpen))
			b.WriteString(seg.Text)
			b.WriteString(r.set.Source(templates.SlotSegmentEnd))
		}
		b.WriteString(r.set.Source(templates.SlotColEnd))
	}
	b.WriteString(r.set.Source(templates.SlotRowEnd))

	return b.String()
}

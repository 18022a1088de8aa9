//go:build property
// +build property

package scanner

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/conneroisu/txtof/internal/renderer"
	"github.com/conneroisu/txtof/internal/templates"
)

// TestScannerProperties checks the structural invariants of scanned documents.
func TestScannerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	parameters.Rng.Seed(1234)
	properties := gopter.NewProperties(parameters)

	// Plain content that never contains newlines, separators or line-start markers.
	word := gen.AlphaString().Map(func(s string) string { return "w" + s })

	properties.Property("N blank lines give N+1 rows", prop.ForAll(
		func(blanks int, content string) bool {
			lines := []string{content}
			for i := 0; i < blanks; i++ {
				lines = append(lines, "", content)
			}

			doc, err := New(&recorder{}, Options{}).ScanString(strings.Join(lines, "\n"))
			if err != nil || len(doc.Pages) != 1 {
				return false
			}
			return len(doc.Pages[0].Rows) == blanks+1
		},
		gen.IntRange(0, 30),
		word,
	))

	properties.Property("every separator reaches a column", prop.ForAll(
		func(cells []string) bool {
			line := "|" + strings.Join(cells, "|")

			doc, err := New(&recorder{}, Options{}).ScanString(line)
			if err != nil {
				return false
			}
			return len(doc.Pages[0].Rows[0].Columns) == strings.Count(line, "|")
		},
		gen.SliceOfN(8, word).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.Property("separators count inside open annotations", prop.ForAll(
		func(cells []string) bool {
			line := "|[" + strings.Join(cells, "|") + "]"

			doc, err := New(&recorder{}, Options{}).ScanString(line)
			if err != nil {
				return false
			}
			return len(doc.Pages[0].Rows[0].Columns) == strings.Count(line, "|")
		},
		gen.SliceOfN(8, word).SuchThat(func(v []string) bool { return len(v) > 0 }),
	))

	properties.Property("rendering is idempotent", prop.ForAll(
		func(cells []string, blanks int) bool {
			var b strings.Builder
			for i, c := range cells {
				b.WriteString("|{" + c + "}[" + c + "?p->n]<" + c + ",x>")
				if i < blanks {
					b.WriteString("\n\n")
				} else {
					b.WriteString("\n")
				}
			}

			r := renderer.New(templates.Default())
			doc, err := New(r, Options{}).ScanString(b.String())
			if err != nil {
				return false
			}

			first, err1 := r.Render(doc)
			second, err2 := r.Render(doc)
			return err1 == nil && err2 == nil && first == second
		},
		gen.SliceOfN(5, word),
		gen.IntRange(0, 5),
	))

	properties.Property("unterminated annotations never fail", prop.ForAll(
		func(content string, literal bool) bool {
			policy := DropUnterminated
			if literal {
				policy = LiteralUnterminated
			}

			doc, err := New(&recorder{}, Options{Unterminated: policy}).ScanString("|[" + content + "\n|{" + content)
			if err != nil {
				return false
			}

			segs := doc.Pages[0].Rows[0].Columns[0].Segments
			if literal {
				return segs[len(segs)-1].Text == "{"+content
			}
			return segs[len(segs)-1].Text == ""
		},
		word,
		gen.Bool(),
	))

	properties.TestingRun(t)
}

package scanner

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/conneroisu/txtof/internal/errors"
)

// FuzzScanString feeds arbitrary markup to the scanner. Malformed markup must
// never fail the scan and must never break the tree invariants.
func FuzzScanString(f *testing.F) {
	f.Add("|[hello?world->name1]|(Save->submit)")
	f.Add("#Page\n|<a,b,c>\n\n---\n=comment")
	f.Add("|[unterminated")
	f.Add("|%binding without end")
	f.Add("|[a|b]|||")
	f.Add("\r\n\r\n#\n|")
	f.Add("|(#)[o][/][+]<>{}")

	f.Fuzz(func(t *testing.T, input string) {
		if !utf8.ValidString(input) {
			t.Skip()
		}

		for _, policy := range []Policy{DropUnterminated, LiteralUnterminated} {
			s := New(&recorder{}, Options{Unterminated: policy, Diagnostics: errors.NewCollector()})

			doc, err := s.ScanString(input)
			if err != nil {
				t.Fatalf("scan failed on %q: %v", input, err)
			}
			if len(doc.Pages) == 0 {
				t.Fatalf("no pages for %q", input)
			}
			for _, page := range doc.Pages {
				if len(page.Rows) == 0 {
					t.Fatalf("page %q has no rows", page.Name)
				}
				if page.Name != strings.TrimSpace(page.Name) {
					t.Fatalf("page name %q not trimmed", page.Name)
				}
				for _, row := range page.Rows {
					if len(row.Columns) == 0 {
						t.Fatal("row has no columns")
					}
					for _, col := range row.Columns {
						if len(col.Segments) == 0 {
							t.Fatal("column has no segments")
						}
					}
				}
			}
		}
	})
}

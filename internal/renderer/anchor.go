package renderer

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// PageAnchor derives the id of a page from its name: lower-cased, accents
// removed, every run of other characters replaced by a single hyphen. Pages
// without a usable name are numbered from their position, starting at 1.
func PageAnchor(name string, index int) string {
	lowered := cases.Lower(language.Und).String(name)
	folded, _, err := transform.String(
		transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		lowered,
	)
	if err != nil {
		folded = lowered
	}

	var b strings.Builder
	hyphen := false
	for _, r := range folded {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if hyphen && b.Len() > 0 {
				b.WriteByte('-')
			}
			hyphen = false
			b.WriteRune(r)
			continue
		}
		hyphen = true
	}

	if b.Len() == 0 {
		return "page-" + strconv.Itoa(index+1)
	}
	return b.String()
}

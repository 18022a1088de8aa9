// Package lint checks rendered output for structural problems a custom
// template set can introduce: unbalanced tags, duplicate ids, empty selects,
// unnamed text inputs and links to page anchors that do not exist.
package lint

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Severity of an Issue.
type Severity int

const (
	SeverityWarning Severity = iota
	SeverityError
)

func (s Severity) String() string {
	if s == SeverityError {
		return "error"
	}
	return "warning"
}

// Issue codes.
const (
	CodeUnclosedTag   = "unclosed-tag"
	CodeMismatchedTag = "mismatched-tag"
	CodeStrayEndTag   = "stray-end-tag"
	CodeDuplicateID   = "duplicate-id"
	CodeEmptySelect   = "empty-select"
	CodeMissingName   = "missing-name"
	CodeBrokenAnchor  = "broken-anchor"
)

// Issue is one problem found in the output.
type Issue struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Message  string   `json:"message"`
	Line     int      `json:"line"`
}

func (i Issue) String() string {
	return fmt.Sprintf("%d: %s: %s (%s)", i.Line, i.Severity, i.Message, i.Code)
}

// Report lists the issues of one document ordered by line.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Errors returns the number of error level issues.
func (r *Report) Errors() int {
	n := 0
	for _, issue := range r.Issues {
		if issue.Severity == SeverityError {
			n++
		}
	}
	return n
}

// OK reports whether the document has no issues at all.
func (r *Report) OK() bool {
	return len(r.Issues) == 0
}

type openTag struct {
	name    string
	line    int
	options int
}

type anchorRef struct {
	target string
	line   int
}

type checker struct {
	report  Report
	stack   []openTag
	ids     map[string]int
	anchors []anchorRef
	line    int
}

func (c *checker) add(severity Severity, code string, line int, format string, args ...interface{}) {
	c.report.Issues = append(c.report.Issues, Issue{
		Severity: severity,
		Code:     code,
		Message:  fmt.Sprintf(format, args...),
		Line:     line,
	})
}

// Check tokenizes r and reports every issue found.
func Check(r io.Reader) (*Report, error) {
	c := &checker{ids: make(map[string]int), line: 1}
	z := html.NewTokenizer(r)

	for {
		tt := z.Next()
		line := c.line
		c.line += bytes.Count(z.Raw(), []byte("\n"))

		switch tt {
		case html.ErrorToken:
			if err := z.Err(); err != io.EOF {
				return nil, fmt.Errorf("reading output: %w", err)
			}
			c.finish()
			return &c.report, nil

		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			c.attributes(tok, line)
			if tt == html.StartTagToken && !isVoid(tok.DataAtom) {
				c.open(tok, line)
			}

		case html.EndTagToken:
			tok := z.Token()
			c.close(tok.Data, line)
		}
	}
}

// CheckString is Check over an in-memory document.
func CheckString(s string) (*Report, error) {
	return Check(strings.NewReader(s))
}

func (c *checker) attributes(tok html.Token, line int) {
	attrs := make(map[string]string, len(tok.Attr))
	for _, a := range tok.Attr {
		attrs[a.Key] = a.Val
	}

	if id, ok := attrs["id"]; ok && id != "" {
		if first, seen := c.ids[id]; seen {
			c.add(SeverityError, CodeDuplicateID, line, "id %q already used on line %d", id, first)
		} else {
			c.ids[id] = line
		}
	}

	switch tok.DataAtom {
	case atom.Input:
		typ := strings.ToLower(attrs["type"])
		if (typ == "" || typ == "text") && attrs["name"] == "" {
			c.add(SeverityWarning, CodeMissingName, line, "text input has no name")
		}
	case atom.A:
		if href := attrs["href"]; strings.HasPrefix(href, "#") && len(href) > 1 {
			c.anchors = append(c.anchors, anchorRef{target: href[1:], line: line})
		}
	case atom.Option:
		for i := len(c.stack) - 1; i >= 0; i-- {
			if c.stack[i].name == "select" {
				c.stack[i].options++
				break
			}
		}
	}
}

func (c *checker) open(tok html.Token, line int) {
	c.stack = append(c.stack, openTag{name: tok.Data, line: line})
}

func (c *checker) close(name string, line int) {
	for i := len(c.stack) - 1; i >= 0; i-- {
		if c.stack[i].name != name {
			continue
		}
		for _, inner := range c.stack[i+1:] {
			c.add(SeverityError, CodeMismatchedTag, inner.line, "<%s> closed by </%s> on line %d", inner.name, name, line)
		}
		c.closed(c.stack[i])
		c.stack = c.stack[:i]
		return
	}
	c.add(SeverityError, CodeStrayEndTag, line, "</%s> has no matching start tag", name)
}

func (c *checker) closed(tag openTag) {
	if tag.name == "select" && tag.options == 0 {
		c.add(SeverityWarning, CodeEmptySelect, tag.line, "select has no options")
	}
}

func (c *checker) finish() {
	for _, tag := range c.stack {
		c.add(SeverityError, CodeUnclosedTag, tag.line, "<%s> is never closed", tag.name)
	}
	c.stack = nil

	for _, ref := range c.anchors {
		if _, ok := c.ids[ref.target]; !ok {
			c.add(SeverityWarning, CodeBrokenAnchor, ref.line, "link to #%s has no matching id", ref.target)
		}
	}

	sort.SliceStable(c.report.Issues, func(i, j int) bool {
		return c.report.Issues[i].Line < c.report.Issues[j].Line
	})
}

func isVoid(a atom.Atom) bool {
	switch a {
	case atom.Area, atom.Base, atom.Br, atom.Col, atom.Embed, atom.Hr, atom.Img,
		atom.Input, atom.Link, atom.Meta, atom.Source, atom.Track, atom.Wbr:
		return true
	}
	return false
}

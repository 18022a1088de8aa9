// Package scanner turns txtof markup into a document tree.
//
// The scanner walks the input one line at a time and each line one character
// at a time. It is always in one of two states: idle, where characters are
// appended to the current segment and structural tokens are honoured, or
// inside an annotation, where characters are collected until the closing
// character of that annotation arrives. Column separators and openers are
// never collected: they apply in both states. Closed annotations are
// classified and handed to an ElementRenderer; the rendered text lands in the
// current segment.
//
// Line grammar:
//
//	(empty line)   seal the row, start a new one
//	=...           comment, ignored
//	---...         horizontal rule, rest of line ignored
//	#Name          seal the page, start a page called Name
//	|a|b|c         form mode: each | opens a segment in the next column
//
// Annotations, recognised in form mode only:
//
//	[text?placeholder->name]  [oradio]  [/checkbox]  [+textarea]
//	{label}  (button->trigger)  (#link->target)  <a,b,c>  %binding<space>
package scanner

import (
	"fmt"
	"io"
	"strings"

	"github.com/conneroisu/txtof/internal/document"
	"github.com/conneroisu/txtof/internal/element"
	"github.com/conneroisu/txtof/internal/errors"
)

// Structural characters.
const (
	CommentMarker   = '='
	RuleMarker      = '-'
	PageMarker      = '#'
	ColumnSeparator = '|'

	// RuleLength is the number of RuleMarker characters that start a rule.
	RuleLength = 3
)

// ElementRenderer renders a classified annotation.
type ElementRenderer interface {
	RenderElement(el element.Element) (string, error)
}

// Policy decides what happens to an annotation that is still open when its
// line ends.
type Policy int

const (
	// DropUnterminated discards the opener and everything collected after it.
	DropUnterminated Policy = iota
	// LiteralUnterminated appends the opener and the collected text verbatim.
	LiteralUnterminated
)

// String returns the configuration name of the policy.
func (p Policy) String() string {
	switch p {
	case DropUnterminated:
		return "drop"
	case LiteralUnterminated:
		return "literal"
	default:
		return "unknown"
	}
}

// ParsePolicy resolves a policy name as found in configuration.
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "drop":
		return DropUnterminated, nil
	case "literal":
		return LiteralUnterminated, nil
	default:
		return DropUnterminated, fmt.Errorf("unknown unterminated policy %q (supported: drop, literal)", name)
	}
}

// Options tunes a Scanner.
type Options struct {
	Unterminated Policy
	// SkipEmptyPages drops the unnamed empty page that a leading page
	// marker would otherwise seal.
	SkipEmptyPages bool
	// Diagnostics receives notes about malformed markup. May be nil.
	Diagnostics *errors.Collector
}

// opener describes an annotation delimiter. When kind is KindUnknown the
// character after the opener is looked up in qualifiers; any other character
// selects fallback and is kept as content.
type opener struct {
	terminator rune
	kind       element.Kind
	qualifiers map[rune]element.Kind
	fallback   element.Kind
}

var openers = map[rune]opener{
	'[': {
		terminator: ']',
		qualifiers: map[rune]element.Kind{
			'o': element.KindRadio,
			'/': element.KindCheckbox,
			'+': element.KindTextarea,
		},
		fallback: element.KindText,
	},
	'{': {terminator: '}', kind: element.KindLabel},
	'(': {
		terminator: ')',
		qualifiers: map[rune]element.Kind{'#': element.KindLink},
		fallback:   element.KindButton,
	},
	'<': {terminator: '>', kind: element.KindSelect},
	'%': {terminator: ' ', kind: element.KindDataBind},
}

// annotation is the in-progress state of one open annotation.
type annotation struct {
	opener
	delimiter rune
	column    int
	raw       strings.Builder
	verbatim  strings.Builder
}

// Scanner converts markup into a document. A Scanner is not safe for
// concurrent use; each Scan call starts from an empty document.
type Scanner struct {
	renderer ElementRenderer
	opts     Options

	builder *document.Builder
	line    int

	// Per-line state.
	formMode bool
	column   int
	open     *annotation
}

// New returns a scanner that renders annotations with renderer.
func New(renderer ElementRenderer, opts Options) *Scanner {
	return &Scanner{
		renderer: renderer,
		opts:     opts,
	}
}

// Scan reads all of r and scans it.
func (s *Scanner) Scan(r io.Reader) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadInput, "failed to read input", err)
	}
	return s.ScanString(string(data))
}

// ScanString scans a complete input. The only errors it returns come from
// the element renderer; malformed markup is reported through
// Options.Diagnostics and never stops the scan.
func (s *Scanner) ScanString(input string) (*document.Document, error) {
	s.builder = document.NewBuilder()
	s.builder.SkipEmptyPages = s.opts.SkipEmptyPages
	s.line = 0

	if input != "" {
		input = strings.TrimSuffix(input, "\n")
		for _, line := range strings.Split(input, "\n") {
			s.line++
			if err := s.scanLine(strings.TrimSuffix(line, "\r")); err != nil {
				return nil, err
			}
		}
	}

	return s.builder.Document(), nil
}

func (s *Scanner) scanLine(line string) error {
	if line == "" {
		s.builder.BreakRow()
		return nil
	}

	s.formMode = false
	s.column = 1
	s.open = nil

	switch {
	case line[0] == CommentMarker:
		return nil
	case strings.HasPrefix(line, strings.Repeat(string(RuleMarker), RuleLength)):
		return s.emit(element.Classify(element.KindHR, ""))
	case line[0] == PageMarker:
		s.builder.BreakPage(strings.TrimSpace(line[1:]))
		return nil
	}

	pos := 0
	for _, r := range line {
		pos++
		if err := s.step(pos, r); err != nil {
			return err
		}
	}

	s.endOfLine()
	return nil
}

// step consumes one character. pos is the 1-based character position.
// Separators and openers take precedence over an open annotation: a
// separator moves the annotation to the next column and an opener replaces
// it.
func (s *Scanner) step(pos int, r rune) error {
	switch {
	case r == ColumnSeparator && pos == 1:
		s.formMode = true
		s.builder.Row().Column(s.column).OpenSegment()
	case r == ColumnSeparator && s.formMode:
		s.column++
		s.builder.Row().Column(s.column).OpenSegment()
	case s.formMode && isOpener(r):
		s.abandon()
		s.open = &annotation{opener: openers[r], delimiter: r, column: pos}
	case s.open != nil:
		return s.stepAnnotation(r)
	default:
		s.segment().AppendRune(r)
	}
	return nil
}

func (s *Scanner) stepAnnotation(r rune) error {
	a := s.open
	if r == a.terminator {
		return s.close()
	}

	a.verbatim.WriteRune(r)
	if a.kind == element.KindUnknown {
		if kind, ok := a.qualifiers[r]; ok {
			a.kind = kind
			return nil
		}
		a.kind = a.fallback
	}
	a.raw.WriteRune(r)
	return nil
}

func (s *Scanner) close() error {
	a := s.open
	s.open = nil

	kind := a.kind
	if kind == element.KindUnknown {
		kind = a.fallback
	}
	return s.emit(element.Classify(kind, a.raw.String()))
}

func (s *Scanner) emit(el element.Element) error {
	out, err := s.renderer.RenderElement(el)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeTemplate, errors.ErrCodeTemplateExec,
			fmt.Sprintf("rendering %s on line %d", el.Kind, s.line))
	}
	s.segment().Append(out)
	return nil
}

func (s *Scanner) endOfLine() {
	s.abandon()
}

// abandon discards an annotation that will never see its terminator, either
// because the line ended or because another opener replaced it.
func (s *Scanner) abandon() {
	a := s.open
	if a == nil {
		return
	}
	s.open = nil

	if s.opts.Diagnostics != nil {
		s.opts.Diagnostics.AddError(errors.ErrUnterminated(a.delimiter, s.line, a.column))
	}
	if s.opts.Unterminated == LiteralUnterminated {
		s.segment().Append(string(a.delimiter) + a.verbatim.String())
	}
}

func (s *Scanner) segment() *document.Segment {
	return s.builder.Row().Column(s.column).Current()
}

func isOpener(r rune) bool {
	_, ok := openers[r]
	return ok
}

// Package templates holds the template set that maps every element kind and
// structural wrapper to a template string.
//
// A Set is built from the built-in defaults with any number of override
// layers applied on top; a slot a layer never set keeps whatever was below
// it, while a slot set to "" renders nothing. Templates use html/template syntax and are bound to the configuration
// variants of the element package ({{.Value}}, {{.Name}}, {{.Placeholder}},
// {{.Trigger}}, {{.Anchor}}, {{range .Value}} for selects). Every templated
// slot is parsed and dry-run when the set is built, so a template that
// references a field its element does not carry is reported before any
// input is read.
package templates

import (
	"html/template"
	"io"
	"strings"

	"github.com/conneroisu/txtof/internal/element"
	"github.com/conneroisu/txtof/internal/errors"
)

// Overrides is one layer of slot values. Only slots that were set take part
// in a merge, so an empty value can be told apart from an absent one.
type Overrides struct {
	values  [NumSlots]string
	present [NumSlots]bool
}

// Set assigns a value to a slot, marking it present.
func (o *Overrides) Set(slot Slot, value string) {
	o.values[slot] = value
	o.present[slot] = true
}

// Get returns the value of a slot, "" when it was never set.
func (o Overrides) Get(slot Slot) string {
	return o.values[slot]
}

// Has reports whether the slot was set.
func (o Overrides) Has(slot Slot) bool {
	return o.present[slot]
}

// Merge returns o with every slot set in next applied on top.
func (o Overrides) Merge(next Overrides) Overrides {
	for i, ok := range next.present {
		if ok {
			o.values[i] = next.values[i]
			o.present[i] = true
		}
	}
	return o
}

// Set is an immutable, validated template set.
type Set struct {
	source   [NumSlots]string
	compiled [NumSlots]*template.Template
}

// New builds a set from the defaults and the given layers, later layers
// winning. It fails with a configuration error if any templated slot does not
// parse or does not execute against its element configuration.
func New(layers ...Overrides) (*Set, error) {
	merged := Defaults()
	for _, layer := range layers {
		merged = merged.Merge(layer)
	}

	set := &Set{source: merged.values}
	for _, slot := range AllSlots() {
		if !slot.Templated() || merged.Get(slot) == "" {
			continue
		}

		tmpl, err := template.New(slot.String()).Parse(merged.Get(slot))
		if err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeTemplateParse, "cannot parse template", err).
				WithSlot(slot.String())
		}

		if err := tmpl.Execute(io.Discard, sample(slot)); err != nil {
			return nil, errors.NewConfigError(errors.ErrCodeTemplateExec, "template does not fit its element", err).
				WithSlot(slot.String())
		}

		set.compiled[slot] = tmpl
	}

	return set, nil
}

// Default returns the set built from the defaults alone.
func Default() *Set {
	set, err := New()
	if err != nil {
		panic("templates: built-in defaults do not compile: " + err.Error())
	}
	return set
}

// Source returns the template string of a slot.
func (s *Set) Source(slot Slot) string {
	return s.source[slot]
}

// Overrides returns every slot value of the set, each marked present.
func (s *Set) Overrides() Overrides {
	var o Overrides
	for _, slot := range AllSlots() {
		o.Set(slot, s.source[slot])
	}
	return o
}

// Render executes the template of a slot against data. Slots that are not
// templated are returned verbatim and empty slots render as "".
func (s *Set) Render(slot Slot, data any) (string, error) {
	if !slot.Templated() {
		return s.source[slot], nil
	}

	tmpl := s.compiled[slot]
	if tmpl == nil {
		return "", nil
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", errors.WrapTemplate(err, errors.ErrCodeTemplateExec, "cannot render template", slot.String())
	}
	return b.String(), nil
}

// sample returns representative data for dry-running a slot's template.
func sample(slot Slot) any {
	switch slot {
	case SlotPageOpen, SlotPageClose:
		return element.PageConfig{Value: "Page", Anchor: "page"}
	case SlotText:
		return element.TextConfig{Name: "name", Value: "value", Placeholder: "placeholder"}
	case SlotButton, SlotLink:
		return element.ActionConfig{Value: "value", Trigger: "trigger"}
	case SlotSelect:
		return element.SelectConfig{Value: []string{"a", "b"}}
	default:
		return element.ScalarConfig{Value: "value"}
	}
}

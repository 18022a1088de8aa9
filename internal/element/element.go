// Package element classifies the raw text of a closed annotation into a typed
// configuration. Each configuration variant carries exactly the fields its
// template may reference.
package element

import "strings"

// Kind is the classified type of an annotation.
type Kind int

const (
	KindUnknown Kind = iota
	KindLabel
	KindText
	KindCheckbox
	KindRadio
	KindTextarea
	KindHR
	KindButton
	KindLink
	KindSelect
	KindDataBind
)

var kindNames = map[Kind]string{
	KindUnknown:  "unknown",
	KindLabel:    "label",
	KindText:     "text",
	KindCheckbox: "checkbox",
	KindRadio:    "radio",
	KindTextarea: "textarea",
	KindHR:       "hr",
	KindButton:   "button",
	KindLink:     "link",
	KindSelect:   "select",
	KindDataBind: "data-bind",
}

// String returns the kind name, which is also the name of its template slot.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Separators recognised inside annotation text.
const (
	NameSeparator        = "->"
	PlaceholderSeparator = "?"
	TriggerSeparator     = "->"
	OptionSeparator      = ","
)

// Config is implemented by every configuration variant.
type Config interface {
	config()
}

// TextConfig binds a text input.
type TextConfig struct {
	Name        string
	Value       string
	Placeholder string
}

// ActionConfig binds a button or a link.
type ActionConfig struct {
	Value   string
	Trigger string
}

// SelectConfig binds a select; Value holds the options in input order.
type SelectConfig struct {
	Value []string
}

// ScalarConfig binds every kind that only carries its raw text.
type ScalarConfig struct {
	Value string
}

// PageConfig binds the page-open and page-close wrappers.
type PageConfig struct {
	Value  string
	Anchor string
}

func (TextConfig) config()   {}
func (ActionConfig) config() {}
func (SelectConfig) config() {}
func (ScalarConfig) config() {}
func (PageConfig) config()   {}

// Element is a classified annotation.
type Element struct {
	Kind   Kind
	Config Config
}

// Classify turns the raw text collected for an annotation into an Element.
// Missing separators never fail; the absent piece is the empty string.
func Classify(kind Kind, raw string) Element {
	switch kind {
	case KindText:
		return Element{Kind: kind, Config: parseText(raw)}
	case KindButton, KindLink:
		value, trigger, _ := strings.Cut(raw, TriggerSeparator)
		return Element{Kind: kind, Config: ActionConfig{Value: value, Trigger: trigger}}
	case KindSelect:
		return Element{Kind: kind, Config: SelectConfig{Value: parseOptions(raw)}}
	case KindHR:
		return Element{Kind: kind, Config: ScalarConfig{}}
	default:
		return Element{Kind: kind, Config: ScalarConfig{Value: raw}}
	}
}

// parseText splits "value?placeholder->name".
func parseText(raw string) TextConfig {
	rest, name, _ := strings.Cut(raw, NameSeparator)
	value, placeholder, _ := strings.Cut(rest, PlaceholderSeparator)
	return TextConfig{Name: name, Value: value, Placeholder: placeholder}
}

// parseOptions splits a select body on commas. An empty body has no options.
func parseOptions(raw string) []string {
	if raw == "" {
		return []string{}
	}
	return strings.Split(raw, OptionSeparator)
}

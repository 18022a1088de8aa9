package templates

import "github.com/conneroisu/txtof/internal/element"

// Slot identifies one entry of a template set. The numeric order is the
// positional order used by line and comma-list sources.
type Slot int

const (
	SlotHead Slot = iota
	SlotFoot
	SlotPageOpen
	SlotPageClose
	SlotRowOpen
	SlotRowEnd
	SlotColOpen
	SlotColEnd
	SlotSegmentOpen
	SlotSegmentEnd
	SlotLabel
	SlotText
	SlotCheckbox
	SlotRadio
	SlotTextarea
	SlotHR
	SlotButton
	SlotLink
	SlotSelect
	SlotDataBind

	// NumSlots is the number of slots in a set.
	NumSlots int = iota
)

var slotNames = [NumSlots]string{
	SlotHead:        "head",
	SlotFoot:        "foot",
	SlotPageOpen:    "page-open",
	SlotPageClose:   "page-close",
	SlotRowOpen:     "row-open",
	SlotRowEnd:      "row-end",
	SlotColOpen:     "col-open",
	SlotColEnd:      "col-end",
	SlotSegmentOpen: "segment-open",
	SlotSegmentEnd:  "segment-end",
	SlotLabel:       "label",
	SlotText:        "text",
	SlotCheckbox:    "checkbox",
	SlotRadio:       "radio",
	SlotTextarea:    "textarea",
	SlotHR:          "hr",
	SlotButton:      "button",
	SlotLink:        "link",
	SlotSelect:      "select",
	SlotDataBind:    "data-bind",
}

// String returns the slot name used by keyed sources.
func (s Slot) String() string {
	if s < 0 || int(s) >= NumSlots {
		return "unknown"
	}
	return slotNames[s]
}

// Templated reports whether the slot is executed as a template. The
// structural wrappers other than the page wrappers are emitted verbatim.
func (s Slot) Templated() bool {
	return (s >= SlotPageOpen && s <= SlotPageClose) || (s >= SlotLabel && int(s) < NumSlots)
}

// ParseSlot resolves a slot name. Underscores are accepted in place of
// hyphens so that environment variables and TOML keys can name every slot.
func ParseSlot(name string) (Slot, bool) {
	for i, n := range slotNames {
		if n == name || underscored(n) == name {
			return Slot(i), true
		}
	}
	return 0, false
}

// AllSlots returns every slot in positional order.
func AllSlots() []Slot {
	out := make([]Slot, NumSlots)
	for i := range out {
		out[i] = Slot(i)
	}
	return out
}

// SlotForKind maps an element kind to the slot that renders it.
func SlotForKind(kind element.Kind) (Slot, bool) {
	switch kind {
	case element.KindLabel:
		return SlotLabel, true
	case element.KindText:
		return SlotText, true
	case element.KindCheckbox:
		return SlotCheckbox, true
	case element.KindRadio:
		return SlotRadio, true
	case element.KindTextarea:
		return SlotTextarea, true
	case element.KindHR:
		return SlotHR, true
	case element.KindButton:
		return SlotButton, true
	case element.KindLink:
		return SlotLink, true
	case element.KindSelect:
		return SlotSelect, true
	case element.KindDataBind:
		return SlotDataBind, true
	}
	return 0, false
}

func underscored(name string) string {
	b := []byte(name)
	for i, c := range b {
		if c == '-' {
			b[i] = '_'
		}
	}
	return string(b)
}

// defaults holds the built-in HTML for every slot.
var defaults = [NumSlots]string{
	SlotHead:        `<div class="txtof">`,
	SlotFoot:        `</div>`,
	SlotPageOpen:    `<section class="page" id="{{.Anchor}}">`,
	SlotPageClose:   `</section>`,
	SlotRowOpen:     `<div class="row">`,
	SlotRowEnd:      `</div>`,
	SlotColOpen:     `<div class="col">`,
	SlotColEnd:      `</div>`,
	SlotSegmentOpen: ``,
	SlotSegmentEnd:  `<br/>`,
	SlotLabel:       `<label>{{.Value}}</label>`,
	SlotText:        `<input type="text" name="{{.Name}}" value="{{.Value}}" placeholder="{{.Placeholder}}"/>`,
	SlotCheckbox:    `<label><input type="checkbox"/>{{.Value}}</label>`,
	SlotRadio:       `<label><input type="radio"/>{{.Value}}</label>`,
	SlotTextarea:    `<textarea>{{.Value}}</textarea>`,
	SlotHR:          `<hr/>`,
	SlotButton:      `<button type="button" data-trigger="{{.Trigger}}">{{.Value}}</button>`,
	SlotLink:        `<a href="#{{.Trigger}}">{{.Value}}</a>`,
	SlotSelect:      `<select>{{range .Value}}<option>{{.}}</option>{{end}}</select>`,
	SlotDataBind:    `<span data-bind="{{.Value}}"></span>`,
}

// Defaults returns the built-in templates with every slot present.
func Defaults() Overrides {
	var o Overrides
	for _, slot := range AllSlots() {
		o.Set(slot, defaults[slot])
	}
	return o
}

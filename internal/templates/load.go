package templates

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/txtof/internal/errors"
)

// ParseLines reads a positional source with one slot per line. Every line is
// trimmed; a blank line keeps the slot below it.
func ParseLines(content string) (Overrides, error) {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	return parsePositional(strings.Split(content, "\n"))
}

// ParseList reads a positional comma separated source, as supplied through an
// environment variable.
func ParseList(value string) (Overrides, error) {
	if strings.TrimSpace(value) == "" {
		return Overrides{}, nil
	}
	return parsePositional(strings.Split(value, ","))
}

func parsePositional(fields []string) (Overrides, error) {
	// Trailing blank fields are padding, not extra slots.
	last := len(fields)
	for last > 0 && strings.TrimSpace(fields[last-1]) == "" {
		last--
	}
	fields = fields[:last]

	var o Overrides
	if len(fields) > NumSlots {
		return o, errors.ErrTooManySlots(len(fields), NumSlots)
	}
	for i, f := range fields {
		if v := strings.TrimSpace(f); v != "" {
			o.Set(Slot(i), v)
		}
	}
	return o, nil
}

// ParseKeyed builds a layer from slot names. Unknown names are a
// configuration error. Every named slot is set, so a blank value empties the
// slot rather than keeping the one below.
func ParseKeyed(values map[string]string) (Overrides, error) {
	var o Overrides

	// Sorted so the first unknown name reported is stable.
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		slot, ok := ParseSlot(strings.ToLower(strings.TrimSpace(k)))
		if !ok {
			return o, errors.ErrUnknownSlot(k)
		}
		o.Set(slot, strings.TrimSpace(values[k]))
	}
	return o, nil
}

// LoadFile reads a template source from disk. Files ending in .yml or .yaml
// are keyed YAML maps, .toml files are keyed TOML tables, and anything else is
// the positional one-slot-per-line format.
func LoadFile(path string) (Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Overrides{}, errors.WrapConfig(err, errors.ErrCodeTemplateSource, "unable to open template file", path)
	}

	var o Overrides
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		values := map[string]string{}
		if err := yaml.Unmarshal(data, &values); err != nil {
			return o, errors.WrapConfig(err, errors.ErrCodeTemplateSource, "unable to parse YAML template file", path)
		}
		o, err = ParseKeyed(values)
	case ".toml":
		values := map[string]string{}
		if _, err := toml.Decode(string(data), &values); err != nil {
			return o, errors.WrapConfig(err, errors.ErrCodeTemplateSource, "unable to parse TOML template file", path)
		}
		o, err = ParseKeyed(values)
	default:
		o, err = ParseLines(string(data))
	}

	if err != nil {
		return o, errors.WrapConfig(err, errors.ErrCodeTemplateSource, "unable to process template file", path)
	}
	return o, nil
}

// Keyed returns every slot of the set by name, as written by YAML and JSON
// dumps.
func (s *Set) Keyed() map[string]string {
	out := make(map[string]string, NumSlots)
	for _, slot := range AllSlots() {
		out[slot.String()] = s.source[slot]
	}
	return out
}

// Lines returns the set in the positional line format accepted by ParseLines.
func (s *Set) Lines() string {
	var b strings.Builder
	for _, slot := range AllSlots() {
		v := s.source[slot]
		if strings.ContainsAny(v, "\r\n") {
			v = strings.Join(strings.Fields(v), " ")
		}
		fmt.Fprintln(&b, v)
	}
	return b.String()
}

package config

import (
	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/templates"
)

// TemplatePath returns the template file that will be read, if any. A path
// given on the command line replaces templates.file.
func (c *Config) TemplatePath(fileArg string) string {
	if fileArg != "" {
		return fileArg
	}
	return c.Templates.File
}

// TemplateSet builds the template set from every configured source. Later
// sources win: the built-in defaults, templates.<slot> keys, the
// TXTOF_TEMPLATE list and finally the template file.
func (c *Config) TemplateSet(fileArg string) (*templates.Set, error) {
	keyed, err := templates.ParseKeyed(c.Templates.Slots)
	if err != nil {
		return nil, err
	}

	list, err := templates.ParseList(c.Templates.List)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.ErrCodeTemplateSource,
			"invalid "+EnvPrefix+"_TEMPLATE list")
	}

	layers := []templates.Overrides{keyed, list}

	if path := c.TemplatePath(fileArg); path != "" {
		file, err := templates.LoadFile(path)
		if err != nil {
			return nil, err
		}
		layers = append(layers, file)
	}

	return templates.New(layers...)
}

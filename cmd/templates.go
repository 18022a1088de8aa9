package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/txtof/internal/templates"
)

func newTemplatesCmd(a *app) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:     "templates [template-file]",
		Aliases: []string{"t"},
		Short:   "Print the effective template set",
		Long: `Print every template slot after all sources have been applied. The output
of each format can be used again as a template file.

Examples:
  txtof templates                      # positional lines
  txtof templates --format yaml > theme.yml
  txtof templates theme.yml -f json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			set, err := a.config.TemplateSet(argOrEmpty(args, 0))
			if err != nil {
				return err
			}
			return writeTemplates(cmd.OutOrStdout(), set, format)
		},
	}

	addFormatFlag(cmd, &format, "lines", "yaml", "json")

	return cmd
}

func writeTemplates(w io.Writer, set *templates.Set, format string) error {
	switch format {
	case "lines":
		_, err := io.WriteString(w, set.Lines())
		return err

	case "yaml":
		// A mapping node keeps the positional slot order.
		doc := &yaml.Node{Kind: yaml.MappingNode}
		for _, slot := range templates.AllSlots() {
			doc.Content = append(doc.Content,
				&yaml.Node{Kind: yaml.ScalarNode, Value: slot.String()},
				&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: set.Source(slot)},
			)
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return err
		}
		return enc.Close()

	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		enc.SetEscapeHTML(false)
		return enc.Encode(set.Keyed())

	default:
		return fmt.Errorf("unsupported format: %s (supported: lines, yaml, json)", format)
	}
}

package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/txtof/internal/version"
)

func newVersionCmd(a *app) *cobra.Command {
	var (
		format   string
		short    bool
		detailed bool
	)

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long: `Display version information for txtof: the version, git commit, build
time, Go version and target platform.

Examples:
  txtof version              # Show version
  txtof version --detailed   # Show detailed version info
  txtof version --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			switch format {
			case "json":
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(version.GetBuildInfo())
			case "yaml":
				return yaml.NewEncoder(out).Encode(version.GetBuildInfo())
			}

			switch {
			case short:
				fmt.Fprintln(out, version.GetShortVersion())
			case detailed:
				fmt.Fprintln(out, version.GetDetailedVersion())
			default:
				info := version.GetBuildInfo()
				fmt.Fprintf(out, "txtof %s (%s)\n", version.GetShortVersion(), info.Platform)
			}
			return nil
		},
	}

	addFormatFlag(cmd, &format, "text", "json", "yaml")
	cmd.Flags().BoolVar(&short, "short", false, "Show short version only")
	cmd.Flags().BoolVar(&detailed, "detailed", false, "Show detailed version information")

	return cmd
}

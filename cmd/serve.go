package cmd

import (
	"github.com/spf13/cobra"

	"github.com/conneroisu/txtof/internal/server"
)

func newServeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "serve <input> [template-file]",
		Aliases: []string{"s"},
		Short:   "Preview the rendered input in a browser with live reload",
		Long: `Serve the rendered input over HTTP. The page reloads itself whenever the
input or the template file changes and the rendered output differs.

Routes:
  /        preview page
  /raw     rendered output only
  /health  server status as JSON

Examples:
  txtof serve form.txt
  txtof serve form.txt theme.yml --port 3000`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			srv := server.New(a.config, args[0], argOrEmpty(args, 1), a.logger)
			return srv.Start(cmd.Context())
		},
	}

	addServerFlags(cmd)

	return cmd
}

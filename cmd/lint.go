package cmd

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/lint"
	"github.com/conneroisu/txtof/internal/services"
)

func newLintCmd(a *app) *cobra.Command {
	var (
		markup       bool
		strict       bool
		templateFile string
	)

	cmd := &cobra.Command{
		Use:   "lint [file]",
		Short: "Check rendered output for structural problems",
		Long: `Parse rendered output and report unbalanced tags, duplicate ids, empty
selects, unnamed text inputs and links to missing page anchors. The file is
read from stdin when omitted.

With --markup the file is txtof markup and is rendered first, which checks a
template set against real input.

Examples:
  txtof lint form.html
  txtof lint --markup form.txt --template theme.yml
  txtof render < form.txt | txtof lint --strict`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := argOrEmpty(args, 0)
			data, err := readFile(cmd.InOrStdin(), path)
			if err != nil {
				return err
			}

			if markup {
				svc, err := services.NewRenderServiceFromConfig(a.config, templateFile, a.logger)
				if err != nil {
					return err
				}
				result, err := svc.Render(cmd.Context(), bytes.NewReader(data))
				if err != nil {
					return err
				}
				data = result.Output
			}

			report, err := lint.Check(bytes.NewReader(data))
			if err != nil {
				return errors.NewIOError(errors.ErrCodeReadInput, "unable to parse output", err)
			}

			out := cmd.OutOrStdout()
			for _, issue := range report.Issues {
				fmt.Fprintln(out, issue)
			}

			failed := report.Errors()
			if strict {
				failed = len(report.Issues)
			}
			if failed > 0 {
				return fmt.Errorf("lint found %d problem(s)", failed)
			}
			if report.OK() {
				fmt.Fprintln(out, "ok")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&markup, "markup", false, "Treat the file as markup and render it first")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail on warnings too")
	cmd.Flags().StringVarP(&templateFile, "template", "t", "", "Template file used with --markup")

	return cmd
}

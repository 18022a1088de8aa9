package cmd

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/services"
)

type renderOptions struct {
	templateFile string
	input        string
	output       string
	check        bool
}

func newRenderCmd(a *app) *cobra.Command {
	var opts renderOptions

	cmd := &cobra.Command{
		Use:     "render [template-file]",
		Aliases: []string{"r"},
		Short:   "Render markup from a file or stdin",
		Long: `Render markup and write the result. Nothing is written unless the whole
document renders, so a failing template never leaves partial output behind.

With --check the document is rendered but not written, and the command fails
when the markup has problems such as unterminated annotations.

Examples:
  txtof render --input form.txt --output form.html
  txtof render theme.yml < form.txt > form.html
  txtof render --input form.txt --check`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.templateFile = argOrEmpty(args, 0)
			return a.render(cmd, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.input, "input", "i", "-", "Markup file to read (- for stdin)")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "-", "File to write (- for stdout)")
	cmd.Flags().BoolVar(&opts.check, "check", false, "Render without writing and fail on malformed markup")

	return cmd
}

func (a *app) render(cmd *cobra.Command, opts renderOptions) error {
	ctx := cmd.Context()

	svc, err := services.NewRenderServiceFromConfig(a.config, opts.templateFile, a.logger)
	if err != nil {
		return err
	}

	var result *services.RenderResult
	if opts.input == "" || opts.input == "-" {
		result, err = svc.Render(ctx, cmd.InOrStdin())
	} else {
		result, err = svc.RenderFile(ctx, opts.input)
	}
	if err != nil {
		return err
	}

	if opts.check {
		if n := len(result.Diagnostics); n > 0 {
			return errors.NewInputError(errors.ErrCodeUnterminated,
				fmt.Sprintf("%d malformed annotation(s) found", n))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok: %d page(s), %d row(s), %s\n",
			result.Stats.Pages, result.Stats.Rows, humanize.Bytes(uint64(len(result.Output))))
		return nil
	}

	return writeOutput(cmd.OutOrStdout(), opts.output, result)
}

// writeOutput writes result to path, or to stdout for "" and "-".
func writeOutput(stdout io.Writer, path string, result *services.RenderResult) error {
	if path == "" || path == "-" {
		if _, err := io.Copy(stdout, bytes.NewReader(result.Output)); err != nil {
			return errors.NewIOError(errors.ErrCodeWriteOutput, "unable to write output", err)
		}
		return nil
	}
	return result.WriteFile(path)
}

// readFile reads a file given on the command line, or stdin for "" and "-".
func readFile(stdin io.Reader, path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "" || path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadInput, "unable to read input", err).WithLocation(path, 0, 0)
	}
	return data, nil
}

package cmd

import (
	"context"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/conneroisu/txtof/internal/services"
	"github.com/conneroisu/txtof/internal/watcher"
)

func newWatchCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:     "watch <input> [template-file]",
		Aliases: []string{"w"},
		Short:   "Re-render the input whenever it or the template file changes",
		Long: `Render the input, then keep watching it and the template file and render
again on every change. Output is only rewritten when the rendered bytes differ.
Render failures are logged and watching continues.

Examples:
  txtof watch form.txt --output form.html
  txtof watch form.txt theme.yml -o form.html`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.watch(cmd, args[0], argOrEmpty(args, 1), output)
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "-", "File to write (- for stdout)")

	return cmd
}

// rebuilder renders the input again and writes the result when it changed.
type rebuilder struct {
	app          *app
	input        string
	templateFile string
	output       string
	stdout       io.Writer

	mu       sync.Mutex
	lastHash uint64
	written  bool
}

func (r *rebuilder) rebuild(ctx context.Context) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Reloaded each time so template file edits take effect.
	svc, err := services.NewRenderServiceFromConfig(r.app.config, r.templateFile, r.app.logger)
	if err != nil {
		return false, err
	}
	result, err := svc.RenderFile(ctx, r.input)
	if err != nil {
		return false, err
	}

	if r.written && result.Hash == r.lastHash {
		r.app.logger.Debug(ctx, "Output unchanged, not writing", "input", r.input)
		return false, nil
	}
	if err := writeOutput(r.stdout, r.output, result); err != nil {
		return false, err
	}
	r.lastHash = result.Hash
	r.written = true
	r.app.logger.Info(ctx, "Rendered", "input", r.input, "output", r.output, "pages", result.Stats.Pages)
	return true, nil
}

func (a *app) watch(cmd *cobra.Command, input, templateFile, output string) error {
	ctx := cmd.Context()
	r := &rebuilder{
		app:          a,
		input:        input,
		templateFile: templateFile,
		output:       output,
		stdout:       cmd.OutOrStdout(),
	}

	fw, err := watcher.NewFileWatcher(a.config.Watch.Debounce, a.logger)
	if err != nil {
		return err
	}
	defer fw.Stop()

	fw.AddFilter(watcher.NoHiddenFilter)
	if err := fw.WatchFile(input); err != nil {
		return err
	}
	if tmpl := a.config.TemplatePath(templateFile); tmpl != "" {
		if err := fw.WatchFile(tmpl); err != nil {
			return err
		}
	}

	fw.AddHandler(func(events []watcher.ChangeEvent) error {
		_, err := r.rebuild(ctx)
		return err
	})

	if err := fw.Start(ctx); err != nil {
		return err
	}

	// The first render must succeed so a broken setup is reported at once.
	if _, err := r.rebuild(ctx); err != nil {
		return err
	}

	a.logger.Info(ctx, "Watching for changes", "files", len(fw.Targets()))
	<-ctx.Done()
	return nil
}

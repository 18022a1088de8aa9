// Package services holds the use cases behind the CLI commands. Each command
// builds a service from the loaded configuration and calls it; the service
// owns the wiring between scanner, renderer and logging.
package services

import (
	"bytes"
	"context"
	"io"
	"os"
	"time"

	"github.com/cespare/xxhash"
	"github.com/dustin/go-humanize"

	"github.com/conneroisu/txtof/internal/config"
	"github.com/conneroisu/txtof/internal/document"
	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/logging"
	"github.com/conneroisu/txtof/internal/renderer"
	"github.com/conneroisu/txtof/internal/scanner"
	"github.com/conneroisu/txtof/internal/templates"
)

// RenderService converts markup into output with one template set.
type RenderService struct {
	renderer       *renderer.Renderer
	policy         scanner.Policy
	skipEmptyPages bool
	logger         logging.Logger
}

// RenderResult contains the result of one render.
type RenderResult struct {
	Output      []byte
	Hash        uint64
	Document    *document.Document
	Stats       document.Stats
	Diagnostics []errors.Diagnostic
	Duration    time.Duration
}

// NewRenderService creates a render service. A nil logger discards output.
func NewRenderService(set *templates.Set, policy scanner.Policy, logger logging.Logger) *RenderService {
	if logger == nil {
		logger = logging.Discard()
	}
	return &RenderService{
		renderer: renderer.New(set),
		policy:   policy,
		logger:   logger.WithComponent("render"),
	}
}

// NewRenderServiceFromConfig builds the template set described by cfg, with
// templateFile taking precedence over templates.file, and returns a service
// using it.
func NewRenderServiceFromConfig(cfg *config.Config, templateFile string, logger logging.Logger) (*RenderService, error) {
	set, err := cfg.TemplateSet(templateFile)
	if err != nil {
		return nil, err
	}
	svc := NewRenderService(set, cfg.Policy(), logger)
	svc.SetSkipEmptyPages(cfg.Parser.SkipEmptyPages)
	return svc, nil
}

// SetSkipEmptyPages controls whether a leading page marker keeps the empty
// unnamed page before it.
func (s *RenderService) SetSkipEmptyPages(skip bool) {
	s.skipEmptyPages = skip
}

// Renderer returns the renderer used by the service.
func (s *RenderService) Renderer() *renderer.Renderer {
	return s.renderer
}

// Render reads all of input and renders it. Malformed markup is logged and
// returned as diagnostics; template and I/O failures abort the render.
func (s *RenderService) Render(ctx context.Context, input io.Reader) (*RenderResult, error) {
	start := time.Now()
	op := logging.StartOperation(s.logger, "render")

	diags := errors.NewCollector()
	sc := scanner.New(s.renderer, scanner.Options{
		Unterminated:   s.policy,
		SkipEmptyPages: s.skipEmptyPages,
		Diagnostics:    diags,
	})

	doc, err := sc.Scan(input)
	if err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}

	var buf bytes.Buffer
	if err := s.renderer.WriteDocument(&buf, doc); err != nil {
		op.EndWithError(ctx, err)
		return nil, err
	}

	result := &RenderResult{
		Output:      buf.Bytes(),
		Hash:        xxhash.Sum64(buf.Bytes()),
		Document:    doc,
		Stats:       doc.Stats(),
		Diagnostics: diags.Diagnostics(),
		Duration:    time.Since(start),
	}

	for i := range result.Diagnostics {
		d := &result.Diagnostics[i]
		s.logger.Warn(ctx, d, "Malformed markup", "code", d.Code, "line", d.Line, "column", d.Column)
	}

	op.End(ctx,
		"pages", result.Stats.Pages,
		"rows", result.Stats.Rows,
		"size", humanize.Bytes(uint64(len(result.Output))),
	)

	return result, nil
}

// RenderFile renders the markup stored at path.
func (s *RenderService) RenderFile(ctx context.Context, path string) (*RenderResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeReadInput, "unable to open input", err).
			WithLocation(path, 0, 0)
	}
	defer f.Close()

	return s.Render(ctx, f)
}

// WriteFile writes the result to path, replacing any previous content.
func (r *RenderResult) WriteFile(path string) error {
	if err := os.WriteFile(path, r.Output, 0644); err != nil {
		return errors.NewIOError(errors.ErrCodeWriteOutput, "unable to write output", err).
			WithLocation(path, 0, 0)
	}
	return nil
}

package services

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cespare/xxhash"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/txtof/internal/config"
	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/logging"
	"github.com/conneroisu/txtof/internal/scanner"
	"github.com/conneroisu/txtof/internal/templates"
)

const form = `#Contact
|Name: [?Your name->name]|{Role}<admin,user>

|(Save->submit)(#Back->home)
---
=hidden comment
`

func TestRenderService_Render(t *testing.T) {
	svc := NewRenderService(templates.Default(), scanner.DropUnterminated, nil)

	result, err := svc.Render(context.Background(), strings.NewReader(form))
	require.NoError(t, err)

	out := string(result.Output)
	assert.True(t, strings.HasPrefix(out, `<div class="txtof">`+"\n"))
	assert.Contains(t, out, `<section class="page" id="contact">`)
	assert.Contains(t, out, `<input type="text" name="name" value="" placeholder="Your name"/>`)
	assert.Contains(t, out, `<select><option>admin</option><option>user</option></select>`)
	assert.Contains(t, out, `<button type="button" data-trigger="submit">Save</button>`)
	assert.Contains(t, out, `<a href="#home">Back</a>`)
	assert.Contains(t, out, `<hr/>`)
	assert.NotContains(t, out, "hidden comment")

	// The leading page marker seals the empty unnamed page before it.
	assert.Equal(t, 2, result.Stats.Pages)
	assert.Equal(t, 3, result.Stats.Rows)
	assert.Empty(t, result.Diagnostics)
	assert.Equal(t, xxhash.Sum64(result.Output), result.Hash)
	assert.Equal(t, "Contact", result.Document.Pages[1].Name)
}

func TestRenderService_Diagnostics(t *testing.T) {
	var logs bytes.Buffer
	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LevelWarn, Format: "text", Output: &logs})

	svc := NewRenderService(templates.Default(), scanner.LiteralUnterminated, logger)

	result, err := svc.Render(context.Background(), strings.NewReader("|[open\n|{ok}"))
	require.NoError(t, err)

	require.Len(t, result.Diagnostics, 1)
	assert.Equal(t, errors.ErrCodeUnterminated, result.Diagnostics[0].Code)
	assert.Contains(t, string(result.Output), "[open")
	assert.Contains(t, logs.String(), "Malformed markup")
	assert.Contains(t, logs.String(), "component=render")
}

func TestRenderService_SameInputSameHash(t *testing.T) {
	svc := NewRenderService(templates.Default(), scanner.DropUnterminated, nil)

	first, err := svc.Render(context.Background(), strings.NewReader(form))
	require.NoError(t, err)
	second, err := svc.Render(context.Background(), strings.NewReader(form))
	require.NoError(t, err)

	assert.Equal(t, first.Output, second.Output)
	assert.Equal(t, first.Hash, second.Hash)

	third, err := svc.Render(context.Background(), strings.NewReader(form+"|{extra}\n"))
	require.NoError(t, err)
	assert.NotEqual(t, first.Hash, third.Hash)
}

func TestRenderService_TemplateError(t *testing.T) {
	var o templates.Overrides
	o.Set(templates.SlotSelect, `{{index .Value 1}}`)
	set, err := templates.New(o)
	require.NoError(t, err)

	svc := NewRenderService(set, scanner.DropUnterminated, nil)
	_, err = svc.Render(context.Background(), strings.NewReader("|<one>"))
	require.Error(t, err)
	assert.True(t, errors.IsTemplateError(err))
}

func TestRenderService_Files(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "form.txt")
	output := filepath.Join(dir, "form.html")
	require.NoError(t, os.WriteFile(input, []byte(form), 0644))

	svc := NewRenderService(templates.Default(), scanner.DropUnterminated, nil)

	result, err := svc.RenderFile(context.Background(), input)
	require.NoError(t, err)
	require.NoError(t, result.WriteFile(output))

	written, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, result.Output, written)

	_, err = svc.RenderFile(context.Background(), filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeReadInput, errors.GetErrorCode(err))

	err = result.WriteFile(filepath.Join(dir, "no", "such", "dir.html"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeWriteOutput, errors.GetErrorCode(err))
}

func TestNewRenderServiceFromConfig(t *testing.T) {
	dir := t.TempDir()
	tmpl := filepath.Join(dir, "tmpl.yml")
	require.NoError(t, os.WriteFile(tmpl, []byte("label: '<b>{{.Value}}</b>'\n"), 0644))

	cfg := &config.Config{Parser: config.ParserConfig{Unterminated: "literal"}}

	svc, err := NewRenderServiceFromConfig(cfg, tmpl, nil)
	require.NoError(t, err)
	assert.Equal(t, "<b>{{.Value}}</b>", svc.Renderer().Set().Source(templates.SlotLabel))

	result, err := svc.Render(context.Background(), strings.NewReader("|{Hi}[x"))
	require.NoError(t, err)
	assert.Contains(t, string(result.Output), "<b>Hi</b>[x")

	_, err = NewRenderServiceFromConfig(cfg, filepath.Join(dir, "missing.yml"), nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfigError(err))
}

func TestNewRenderServiceFromConfigSkipEmptyPages(t *testing.T) {
	for _, skip := range []bool{false, true} {
		cfg := &config.Config{Parser: config.ParserConfig{Unterminated: "drop", SkipEmptyPages: skip}}

		svc, err := NewRenderServiceFromConfig(cfg, "", nil)
		require.NoError(t, err)

		result, err := svc.Render(context.Background(), strings.NewReader(form))
		require.NoError(t, err)
		if skip {
			assert.Equal(t, 1, result.Stats.Pages)
		} else {
			assert.Equal(t, 2, result.Stats.Pages)
		}
	}
}

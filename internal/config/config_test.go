package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/scanner"
	"github.com/conneroisu/txtof/internal/templates"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
}

func TestLoadDefaults(t *testing.T) {
	resetViper(t)

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, DefaultHost, config.Server.Host)
	assert.Equal(t, DefaultPort, config.Server.Port)
	assert.Equal(t, DefaultDebounce, config.Watch.Debounce)
	assert.Equal(t, "drop", config.Parser.Unterminated)
	assert.Equal(t, scanner.DropUnterminated, config.Policy())
	assert.False(t, config.Parser.SkipEmptyPages)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "text", config.Log.Format)
	assert.Empty(t, config.Templates.Slots)
	assert.Empty(t, config.Templates.List)
	assert.Equal(t, "localhost:8080", config.Address())
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setup       func()
		expectError bool
		check       func(t *testing.T, c *Config)
	}{
		{
			name: "explicit values",
			setup: func() {
				viper.Set("server.port", 3000)
				viper.Set("server.host", "0.0.0.0")
				viper.Set("parser.unterminated", "literal")
				viper.Set("parser.skip_empty_pages", true)
				viper.Set("watch.debounce", "250ms")
			},
			check: func(t *testing.T, c *Config) {
				assert.True(t, c.Parser.SkipEmptyPages)
				assert.Equal(t, 3000, c.Server.Port)
				assert.Equal(t, "0.0.0.0", c.Server.Host)
				assert.Equal(t, scanner.LiteralUnterminated, c.Policy())
				assert.Equal(t, 250*time.Millisecond, c.Watch.Debounce)
			},
		},
		{
			name: "system assigned port",
			setup: func() {
				viper.Set("server.port", 0)
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 0, c.Server.Port)
			},
		},
		{
			name: "slot keys with either separator",
			setup: func() {
				viper.Set("templates.text", `<input name="{{.Name}}"/>`)
				viper.Set("templates.page_open", `<article>`)
				viper.Set("templates.data-bind", `<b>{{.Value}}</b>`)
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, map[string]string{
					"text":      `<input name="{{.Name}}"/>`,
					"page-open": `<article>`,
					"data-bind": `<b>{{.Value}}</b>`,
				}, c.Templates.Slots)
			},
		},
		{
			name: "unknown policy",
			setup: func() {
				viper.Set("parser.unterminated", "keep")
			},
			expectError: true,
		},
		{
			name: "port out of range",
			setup: func() {
				viper.Set("server.port", 70000)
			},
			expectError: true,
		},
		{
			name: "dangerous host",
			setup: func() {
				viper.Set("server.host", "localhost;rm")
			},
			expectError: true,
		},
		{
			name: "unknown log format",
			setup: func() {
				viper.Set("log.format", "xml")
			},
			expectError: true,
		},
		{
			name: "unknown log level",
			setup: func() {
				viper.Set("log.level", "loud")
			},
			expectError: true,
		},
		{
			name: "port that is not a number",
			setup: func() {
				viper.Set("server.port", "invalid_port")
			},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resetViper(t)
			tt.setup()

			config, err := Load()
			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, config)
				return
			}
			require.NoError(t, err)
			tt.check(t, config)
		})
	}
}

func TestLoadWithEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("TXTOF_SERVER_PORT", "9999")
	t.Setenv("TXTOF_PARSER_UNTERMINATED", "literal")
	t.Setenv("TXTOF_TEMPLATES_PAGE_OPEN", `<main id="{{.Anchor}}">`)
	t.Setenv("TXTOF_TEMPLATE", "<body>,</body>")
	BindEnv()

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9999, config.Server.Port)
	assert.Equal(t, scanner.LiteralUnterminated, config.Policy())
	assert.Equal(t, `<main id="{{.Anchor}}">`, config.Templates.Slots["page-open"])
	assert.Equal(t, "<body>,</body>", config.Templates.List)
}

func TestLoadFromFile(t *testing.T) {
	resetViper(t)

	dir := t.TempDir()
	path := filepath.Join(dir, ".txtof.yml")
	content := `templates:
  label: "<b>{{.Value}}</b>"
  page-open: '<article id="{{.Anchor}}">'
parser:
  unterminated: literal
server:
  port: 9000
watch:
  debounce: 1s
log:
  level: debug
  format: json
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	viper.SetConfigFile(path)
	require.NoError(t, viper.ReadInConfig())

	config, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9000, config.Server.Port)
	assert.Equal(t, time.Second, config.Watch.Debounce)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, "<b>{{.Value}}</b>", config.Templates.Slots["label"])
	assert.Equal(t, `<article id="{{.Anchor}}">`, config.Templates.Slots["page-open"])
	assert.NotNil(t, config.Logger())
}

func TestTemplateSetPrecedence(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "tmpl.txt")
	// Positional file: only head and foot.
	require.NoError(t, os.WriteFile(file, []byte("<file-head>\n<file-foot>\n"), 0644))

	config := &Config{Templates: TemplatesConfig{
		Slots: map[string]string{
			"head":  "<key-head>",
			"foot":  "<key-foot>",
			"label": "<key-label>{{.Value}}</key-label>",
			"hr":    "<key-hr/>",
		},
		List: "<list-head>,,,,,,,,,,<list-label>{{.Value}}</list-label>",
	}}

	set, err := config.TemplateSet("")
	require.NoError(t, err)
	assert.Equal(t, "<list-head>", set.Source(templates.SlotHead))
	assert.Equal(t, "<key-foot>", set.Source(templates.SlotFoot))
	assert.Equal(t, "<list-label>{{.Value}}</list-label>", set.Source(templates.SlotLabel))
	assert.Equal(t, "<key-hr/>", set.Source(templates.SlotHR))
	assert.Equal(t, templates.Defaults().Get(templates.SlotText), set.Source(templates.SlotText))

	set, err = config.TemplateSet(file)
	require.NoError(t, err)
	assert.Equal(t, "<file-head>", set.Source(templates.SlotHead))
	assert.Equal(t, "<file-foot>", set.Source(templates.SlotFoot))
	assert.Equal(t, "<list-label>{{.Value}}</list-label>", set.Source(templates.SlotLabel))

	// templates.file is used when no argument is given.
	config.Templates.File = file
	assert.Equal(t, file, config.TemplatePath(""))
	assert.Equal(t, "other.txt", config.TemplatePath("other.txt"))
	set, err = config.TemplateSet("")
	require.NoError(t, err)
	assert.Equal(t, "<file-head>", set.Source(templates.SlotHead))
}

func TestTemplateSetErrors(t *testing.T) {
	testCases := []struct {
		name   string
		config *Config
		arg    string
	}{
		{"unknown slot key", &Config{Templates: TemplatesConfig{Slots: map[string]string{"aside": "x"}}}, ""},
		{"list too long", &Config{Templates: TemplatesConfig{List: "a,b,c,d,e,f,g,h,i,j,k,l,m,n,o,p,q,r,s,t,u"}}, ""},
		{"missing file", &Config{}, filepath.Join(t.TempDir(), "missing.txt")},
		{"bad template", &Config{Templates: TemplatesConfig{Slots: map[string]string{"text": "{{.Value"}}}, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			set, err := tc.config.TemplateSet(tc.arg)
			require.Error(t, err)
			assert.Nil(t, set)
			assert.True(t, errors.IsConfigError(err))
		})
	}
}

// Package config loads txtof settings through Viper from a .txtof.yml file,
// TXTOF_ environment variables and command-line flags.
//
// Template slots can be overridden from configuration as templates.<slot>
// keys (TXTOF_TEMPLATES_<SLOT> in the environment), and the whole positional
// list can be supplied as a comma separated TXTOF_TEMPLATE variable. How
// those sources stack is decided by TemplateSet.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/conneroisu/txtof/internal/logging"
	"github.com/conneroisu/txtof/internal/scanner"
	"github.com/conneroisu/txtof/internal/templates"
)

type Config struct {
	Templates TemplatesConfig `yaml:"templates"`
	Parser    ParserConfig    `yaml:"parser"`
	Server    ServerConfig    `yaml:"server"`
	Watch     WatchConfig     `yaml:"watch"`
	Log       LogConfig       `yaml:"log"`
}

type TemplatesConfig struct {
	// File is a template source read after every other source.
	File string `yaml:"file"`
	// List is the positional comma separated source (TXTOF_TEMPLATE).
	List string `yaml:"-" mapstructure:"-"`
	// Slots holds templates.<slot> keys by slot name.
	Slots map[string]string `yaml:"-" mapstructure:"-"`
}

type ParserConfig struct {
	Unterminated   string `yaml:"unterminated"`
	SkipEmptyPages bool   `yaml:"skip_empty_pages" mapstructure:"skip_empty_pages"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Defaults.
const (
	DefaultHost         = "localhost"
	DefaultPort         = 8080
	DefaultDebounce     = 100 * time.Millisecond
	DefaultUnterminated = "drop"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// EnvPrefix is the prefix of every environment variable read by txtof.
const EnvPrefix = "TXTOF"

// BindEnv makes every configuration key readable from the environment, so
// server.port is read from TXTOF_SERVER_PORT and templates.page-open from
// TXTOF_TEMPLATES_PAGE_OPEN.
func BindEnv() {
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()
}

func setDefaults() {
	viper.SetDefault("templates.file", "")
	viper.SetDefault("parser.unterminated", DefaultUnterminated)
	viper.SetDefault("parser.skip_empty_pages", false)
	viper.SetDefault("server.host", DefaultHost)
	viper.SetDefault("server.port", DefaultPort)
	viper.SetDefault("watch.debounce", DefaultDebounce)
	viper.SetDefault("log.level", DefaultLogLevel)
	viper.SetDefault("log.format", DefaultLogFormat)
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	setDefaults()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Templates.List = viper.GetString("template")
	config.Templates.Slots = make(map[string]string)
	for _, slot := range templates.AllSlots() {
		name := slot.String()
		for _, key := range []string{name, strings.ReplaceAll(name, "-", "_")} {
			if v := viper.GetString("templates." + key); v != "" {
				config.Templates.Slots[name] = v
				break
			}
		}
	}

	// Blank values from a config file fall back to the defaults.
	if config.Server.Host == "" {
		config.Server.Host = DefaultHost
	}
	if config.Parser.Unterminated == "" {
		config.Parser.Unterminated = DefaultUnterminated
	}
	if config.Log.Level == "" {
		config.Log.Level = DefaultLogLevel
	}
	if config.Log.Format == "" {
		config.Log.Format = DefaultLogFormat
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Policy returns the configured unterminated annotation policy.
func (c *Config) Policy() scanner.Policy {
	policy, _ := scanner.ParsePolicy(c.Parser.Unterminated)
	return policy
}

// Logger builds the logger described by the log section.
func (c *Config) Logger() *logging.TxtofLogger {
	level, _ := logging.ParseLevel(c.Log.Level)
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = c.Log.Format
	return logging.NewLogger(cfg)
}

// Address returns host:port for the preview server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// validateConfig validates configuration values
func validateConfig(config *Config) error {
	if _, err := scanner.ParsePolicy(config.Parser.Unterminated); err != nil {
		return fmt.Errorf("parser config: %w", err)
	}

	if err := validateServerConfig(&config.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if config.Watch.Debounce < 0 {
		return fmt.Errorf("watch config: debounce %s is negative", config.Watch.Debounce)
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return fmt.Errorf("log config: %w", err)
	}
	if config.Log.Format != "text" && config.Log.Format != "json" {
		return fmt.Errorf("log config: unknown format %q (supported: text, json)", config.Log.Format)
	}

	return nil
}

// validateServerConfig validates server configuration values
func validateServerConfig(config *ServerConfig) error {
	// Port 0 lets the system pick one.
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("port %d is not in valid range 0-65535", config.Port)
	}

	dangerousChars := []string{";", "&", "|", "$", "`", "(", ")", "<", ">", "\"", "'", "\\", " "}
	for _, char := range dangerousChars {
		if strings.Contains(config.Host, char) {
			return fmt.Errorf("host contains dangerous character: %q", char)
		}
	}

	return nil
}

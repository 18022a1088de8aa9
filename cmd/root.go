// Package cmd provides the txtof command-line interface.
//
// Configuration is read, lowest priority first, from built-in defaults, a
// .txtof.yml file (or the file named by --config or TXTOF_CONFIG_FILE),
// TXTOF_<SECTION>_<OPTION> environment variables and command-line flags.
package cmd

import (
	"context"
	goerrors "errors"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/txtof/internal/config"
	"github.com/conneroisu/txtof/internal/errors"
	"github.com/conneroisu/txtof/internal/logging"
)

// app carries the state shared by every command of one invocation.
type app struct {
	cfgFile string
	config  *config.Config
	logger  logging.Logger
	stderr  io.Writer
}

// NewRootCmd builds the txtof command tree.
func NewRootCmd() *cobra.Command {
	rootCmd, _ := newRootCmd()
	return rootCmd
}

func newRootCmd() (*cobra.Command, *app) {
	a := &app{stderr: os.Stderr}

	rootCmd := &cobra.Command{
		Use:   "txtof [template-file]",
		Short: "Render compact plain-text form markup into HTML",
		Long: `txtof reads line-oriented form markup on stdin and writes the rendered
document to stdout.

  #Contact                      starts a page named Contact
  |Name: [?Your name->name]     a column holding a label and a text input
  |{Role}<admin,user>           a label and a select
  (Save->submit)(#Back->home)   a button and a link
  ---                           a horizontal rule
  =note                         a comment

Every element is rendered through a named template. Templates come from the
built-in defaults, templates.<slot> config keys, the TXTOF_TEMPLATE list and
finally the template file given as argument, later sources winning.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a.stderr = cmd.ErrOrStderr()
			return a.loadConfig(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.render(cmd, renderOptions{
				templateFile: argOrEmpty(args, 0),
				output:       "-",
			})
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default is .txtof.yml, can also use TXTOF_CONFIG_FILE env var)")
	flags.StringP("log-level", "l", "", "log level (debug, info, warn, error)")
	flags.String("log-format", "", "log format (text, json)")
	flags.String("unterminated", "", "unterminated annotation policy (drop, literal)")
	flags.Bool("skip-empty-pages", false, "drop the empty page before a leading page marker")
	AddFlagValidation(rootCmd, "log-format", ValidateChoice("text", "json"))
	AddFlagValidation(rootCmd, "unterminated", ValidateChoice("drop", "literal"))
	setViperBindings(rootCmd, map[string]string{
		"log-level":        "log.level",
		"log-format":       "log.format",
		"unterminated":     "parser.unterminated",
		"skip-empty-pages": "parser.skip_empty_pages",
	})

	rootCmd.AddCommand(
		newRenderCmd(a),
		newWatchCmd(a),
		newServeCmd(a),
		newTemplatesCmd(a),
		newLintCmd(a),
		newVersionCmd(a),
	)

	return rootCmd, a
}

// Execute runs the command line until it finishes or the process receives
// an interrupt, and reports a failure through the configured logger.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd, a := newRootCmd()
	return run(ctx, rootCmd, a)
}

func run(ctx context.Context, rootCmd *cobra.Command, a *app) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	// Flag and config errors happen before the configured logger exists.
	logger := a.logger
	if logger == nil {
		logger = fallbackLogger(rootCmd.ErrOrStderr())
	}
	errors.NewErrorHandler(logger).Handle(ctx, err)
	return err
}

func fallbackLogger(w io.Writer) logging.Logger {
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  logging.LevelInfo,
		Format: config.DefaultLogFormat,
		Output: w,
	})
}

// initConfig points viper at the configuration file.
//
// Priority (highest first): --config, TXTOF_CONFIG_FILE, .txtof.yml in the
// working directory. A missing default file is not an error; a file that was
// asked for explicitly must exist and parse.
func (a *app) initConfig() error {
	explicit := a.cfgFile
	if explicit == "" {
		explicit = os.Getenv("TXTOF_CONFIG_FILE")
	}

	if explicit != "" {
		viper.SetConfigFile(explicit)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".txtof")
	}

	config.BindEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if explicit == "" && goerrors.As(err, &notFound) {
			return nil
		}
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "unable to read config file", err)
	}
	return nil
}

func (a *app) loadConfig(cmd *cobra.Command) error {
	if err := a.initConfig(); err != nil {
		return err
	}
	if err := applyViperBindings(cmd); err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, "unable to bind flags", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid, err.Error(), err)
	}
	a.config = cfg

	level, _ := logging.ParseLevel(cfg.Log.Level)
	a.logger = logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: a.stderr,
	})
	if used := viper.ConfigFileUsed(); used != "" {
		a.logger.Debug(cmd.Context(), "Using config file", "path", used)
	}
	return nil
}

func argOrEmpty(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// addServerFlags adds --host and --port, bound to the server section.
func addServerFlags(cmd *cobra.Command) {
	cmd.Flags().String("host", "", "Host to bind to (default from server.host)")
	cmd.Flags().IntP("port", "p", 0, "Port to serve on (default from server.port)")
	AddFlagValidation(cmd, "port", ValidatePort)
	setViperBindings(cmd, map[string]string{
		"host": "server.host",
		"port": "server.port",
	})
}

// addFormatFlag adds a --format flag restricted to choices; the first choice
// is the default.
func addFormatFlag(cmd *cobra.Command, target *string, choices ...string) {
	cmd.Flags().StringVarP(target, "format", "f", choices[0], "Output format ("+strings.Join(choices, "|")+")")
	AddFlagValidation(cmd, "format", ValidateChoice(choices...))
}

// bindingsAnnotation marks a flag with the config key it overrides. Bindings
// are applied to viper right before the configuration is loaded, so only the
// flags of the running command take part.
const bindingsAnnotation = "txtof/viper-bindings"

func setViperBindings(cmd *cobra.Command, bindings map[string]string) {
	for flagName, configKey := range bindings {
		flag := lookupFlag(cmd, flagName)
		if flag == nil {
			continue
		}
		if flag.Annotations == nil {
			flag.Annotations = map[string][]string{}
		}
		flag.Annotations[bindingsAnnotation] = []string{configKey}
	}
}

// applyViperBindings binds every annotated flag visible to cmd.
func applyViperBindings(cmd *cobra.Command) error {
	var bindErr error
	visit := func(flag *pflag.Flag) {
		keys := flag.Annotations[bindingsAnnotation]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		bindErr = viper.BindPFlag(keys[0], flag)
	}
	cmd.Flags().VisitAll(visit)
	cmd.InheritedFlags().VisitAll(visit)
	return bindErr
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if flag := cmd.Flags().Lookup(name); flag != nil {
		return flag
	}
	return cmd.PersistentFlags().Lookup(name)
}

// AddFlagValidation adds validation for a specific flag
func AddFlagValidation(cmd *cobra.Command, flagName string, validator func(string) error) {
	flag := lookupFlag(cmd, flagName)
	if flag == nil {
		return
	}

	flag.Value = &validatingValue{
		Value:     flag.Value,
		validator: validator,
	}
}

type validatingValue struct {
	pflag.Value
	validator func(string) error
}

func (v *validatingValue) Set(val string) error {
	if v.validator != nil {
		if err := v.validator(val); err != nil {
			return err
		}
	}
	return v.Value.Set(val)
}

// ValidatePort accepts 0 (any free port) up to 65535.
func ValidatePort(portStr string) error {
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return fmt.Errorf("invalid port number: %s", portStr)
	}

	if port < 0 || port > 65535 {
		return fmt.Errorf("port must be between 0 and 65535, got %d", port)
	}

	return nil
}

// ValidateChoice returns a validator accepting one of choices.
func ValidateChoice(choices ...string) func(string) error {
	return func(val string) error {
		for _, choice := range choices {
			if val == choice {
				return nil
			}
		}
		return fmt.Errorf("invalid value %q, must be one of: %s", val, strings.Join(choices, ", "))
	}
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// flagAliases maps alternative spellings to canonical flag names.
var flagAliases = map[string]string{
	"iface":    "interface",
	"script":   "replay",
	"nocolor":  "no-color",
	"loglevel": "log-level",
}

// normalizeFlagName accepts underscores and a few aliases, so that
// --log_level and --iface work like --log-level and --interface.
func normalizeFlagName(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	name = strings.ReplaceAll(strings.ToLower(name), "_", "-")
	if canonical, ok := flagAliases[name]; ok {
		name = canonical
	}
	return pflag.NormalizedName(name)
}

// setupFlags installs the name normalizer on cmd and binds each flag to its
// viper key, so that an explicitly set flag overrides file and environment.
func setupFlags(cmd *cobra.Command, bindings map[string]string) {
	cmd.Flags().SetNormalizeFunc(normalizeFlagName)
	cmd.PersistentFlags().SetNormalizeFunc(normalizeFlagName)

	for name, key := range bindings {
		flag := lookupFlag(cmd, name)
		if flag == nil {
			panic(fmt.Sprintf("binding unknown flag %q", name))
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("binding flag %q: %v", name, err))
		}
	}
}

func lookupFlag(cmd *cobra.Command, name string) *pflag.Flag {
	if f := cmd.Flags().Lookup(name); f != nil {
		return f
	}
	return cmd.PersistentFlags().Lookup(name)
}

// validateFormat checks an output format flag against the supported values.
func validateFormat(format string, supported ...string) error {
	for _, s := range supported {
		if strings.EqualFold(format, s) {
			return nil
		}
	}
	return fmt.Errorf("unsupported format: %s (supported: %s)", format, strings.Join(supported, ", "))
}

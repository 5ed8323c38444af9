// Package config loads ptpconsole settings with Viper from a YAML file,
// PTPCONSOLE_ environment variables and command-line flags.
//
// Every key has a default registered by SetDefaults, so a missing config
// file is never an error. Load unmarshals the merged view and validates it.
package config

import (
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/logging"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. PTPCONSOLE_LOG_LEVEL.
	EnvPrefix = "PTPCONSOLE"
	// EnvConfigFile names the variable holding an explicit config file path.
	EnvConfigFile = "PTPCONSOLE_CONFIG_FILE"
	// DefaultConfigName is searched for in the working directory.
	DefaultConfigName = ".ptpconsole"

	maxInterfaceName = 15
)

type Config struct {
	Console   ConsoleConfig `mapstructure:"console" yaml:"console"`
	Log       LogConfig     `mapstructure:"log" yaml:"log"`
	Interface string        `mapstructure:"interface" yaml:"interface"`
	Replay    ReplayConfig  `mapstructure:"replay" yaml:"replay"`
	Remote    RemoteConfig  `mapstructure:"remote" yaml:"remote"`
}

type ConsoleConfig struct {
	Capacity         int    `mapstructure:"capacity" yaml:"capacity"`
	MaxTokenLength   int    `mapstructure:"max_token_length" yaml:"max_token_length"`
	MaxCommandTokens int    `mapstructure:"max_command_tokens" yaml:"max_command_tokens"`
	MaxLineTokens    int    `mapstructure:"max_line_tokens" yaml:"max_line_tokens"`
	MinGap           int    `mapstructure:"min_gap" yaml:"min_gap"`
	Prompt           string `mapstructure:"prompt" yaml:"prompt"`
	HistorySize      int    `mapstructure:"history_size" yaml:"history_size"`
	Color            string `mapstructure:"color" yaml:"color"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

type ReplayConfig struct {
	File     string        `mapstructure:"file" yaml:"file"`
	Watch    bool          `mapstructure:"watch" yaml:"watch"`
	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`
}

type RemoteConfig struct {
	Listen         string   `mapstructure:"listen" yaml:"listen"`
	Path           string   `mapstructure:"path" yaml:"path"`
	AllowedOrigins []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Console: ConsoleConfig{
			Capacity:         48,
			MaxTokenLength:   32,
			MaxCommandTokens: 8,
			MaxLineTokens:    16,
			MinGap:           3,
			Prompt:           ">> ",
			HistorySize:      32,
			Color:            "auto",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Replay: ReplayConfig{
			Debounce: 250 * time.Millisecond,
		},
		Remote: RemoteConfig{
			Path:           "/console",
			AllowedOrigins: []string{},
		},
	}
}

// SetDefaults registers every key of Default with v.
func SetDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("console.capacity", d.Console.Capacity)
	v.SetDefault("console.max_token_length", d.Console.MaxTokenLength)
	v.SetDefault("console.max_command_tokens", d.Console.MaxCommandTokens)
	v.SetDefault("console.max_line_tokens", d.Console.MaxLineTokens)
	v.SetDefault("console.min_gap", d.Console.MinGap)
	v.SetDefault("console.prompt", d.Console.Prompt)
	v.SetDefault("console.history_size", d.Console.HistorySize)
	v.SetDefault("console.color", d.Console.Color)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)

	v.SetDefault("interface", d.Interface)

	v.SetDefault("replay.file", d.Replay.File)
	v.SetDefault("replay.watch", d.Replay.Watch)
	v.SetDefault("replay.debounce", d.Replay.Debounce)

	v.SetDefault("remote.listen", d.Remote.Listen)
	v.SetDefault("remote.path", d.Remote.Path)
	v.SetDefault("remote.allowed_origins", d.Remote.AllowedOrigins)
}

var envKeyReplacer = strings.NewReplacer(".", "_")

// Configure points v at a config file and enables PTPCONSOLE_ environment
// overrides. An explicit file wins over EnvConfigFile, which wins over
// .ptpconsole.yml in the working directory. It returns the file actually read,
// or "" when none was found; a file that exists but cannot be parsed is an error.
func Configure(v *viper.Viper, explicit string) (string, error) {
	switch {
	case explicit != "":
		v.SetConfigFile(explicit)
	case os.Getenv(EnvConfigFile) != "":
		v.SetConfigFile(os.Getenv(EnvConfigFile))
	default:
		v.AddConfigPath(".")
		v.SetConfigType("yaml")
		v.SetConfigName(DefaultConfigName)
	}

	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(envKeyReplacer)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if stderrors.As(err, &notFound) {
			return "", nil
		}
		return "", errors.Wrap(err, errors.ErrorTypeConfig, errors.ErrCodeConfigInvalid,
			"cannot read config file")
	}
	return v.ConfigFileUsed(), nil
}

// Load reads the configuration from the global Viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom unmarshals and validates the configuration held by v.
func LoadFrom(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, errors.ErrCodeConfigInvalid,
			"cannot decode configuration")
	}

	// Env overrides for slices arrive as one space-separated string.
	if v.IsSet("remote.allowed_origins") {
		cfg.Remote.AllowedOrigins = v.GetStringSlice("remote.allowed_origins")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks every field and reports all problems at once.
func (c *Config) Validate() error {
	var vec errors.ValidationErrorCollection

	c.validateConsole(&vec)
	c.validateLog(&vec)
	c.validateReplay(&vec)
	c.validateRemote(&vec)

	if iface := c.Interface; iface != "" {
		if len(iface) > maxInterfaceName {
			vec.AddField("interface", iface,
				fmt.Sprintf("name longer than %d bytes", maxInterfaceName))
		}
		if strings.ContainsAny(iface, " \t/") {
			vec.AddField("interface", iface, "name contains a space, tab or slash")
		}
	}

	if !vec.HasErrors() {
		return nil
	}
	return vec.ToConsoleError()
}

func (c *Config) validateConsole(vec *errors.ValidationErrorCollection) {
	cc := &c.Console

	positive := []struct {
		field string
		value int
		limit int
	}{
		{"console.capacity", cc.Capacity, 1024},
		{"console.max_token_length", cc.MaxTokenLength, 256},
		{"console.max_line_tokens", cc.MaxLineTokens, 256},
		{"console.min_gap", cc.MinGap, 64},
		{"console.history_size", cc.HistorySize, 10000},
	}
	for _, p := range positive {
		if p.value < 1 || p.value > p.limit {
			vec.AddField(p.field, p.value, fmt.Sprintf("must be between 1 and %d", p.limit))
		}
	}

	if cc.MaxCommandTokens < 1 || cc.MaxCommandTokens > cc.MaxLineTokens {
		vec.AddField("console.max_command_tokens", cc.MaxCommandTokens,
			"must be between 1 and console.max_line_tokens",
			"a command prefix longer than an input line can never match")
	}

	switch cc.Color {
	case "auto", "always", "never":
	default:
		vec.AddField("console.color", cc.Color, "must be auto, always or never")
	}
}

func (c *Config) validateLog(vec *errors.ValidationErrorCollection) {
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		vec.AddField("log.level", c.Log.Level, err.Error(), "use debug, info, warn or error")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		vec.AddField("log.format", c.Log.Format, "must be text or json")
	}
}

func (c *Config) validateReplay(vec *errors.ValidationErrorCollection) {
	if c.Replay.Debounce < 0 {
		vec.AddField("replay.debounce", c.Replay.Debounce, "must not be negative")
	}
	if c.Replay.Watch && c.Replay.File == "" {
		vec.AddField("replay.watch", true, "needs replay.file", "pass a script with -r")
	}
}

func (c *Config) validateRemote(vec *errors.ValidationErrorCollection) {
	if c.Remote.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Remote.Listen); err != nil {
			vec.AddField("remote.listen", c.Remote.Listen, err.Error(), "use host:port, e.g. 127.0.0.1:8321")
		}
	}
	if !strings.HasPrefix(c.Remote.Path, "/") {
		vec.AddField("remote.path", c.Remote.Path, "must start with /")
	}
}

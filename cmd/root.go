// Package cmd provides the ptpconsole command line.
//
// Configuration is merged from several sources, highest priority first:
//  1. Command-line flags (-i, --listen, -l, ...)
//  2. PTPCONSOLE_<SECTION>_<OPTION> environment variables
//  3. The config file: --config, else PTPCONSOLE_CONFIG_FILE, else
//     .ptpconsole.yml in the working directory
//  4. Built-in defaults
package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/conneroisu/ptpconsole/internal/config"
	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/errors"
	"github.com/conneroisu/ptpconsole/internal/hostcmd"
	"github.com/conneroisu/ptpconsole/internal/logging"
	"github.com/conneroisu/ptpconsole/internal/remote"
	"github.com/conneroisu/ptpconsole/internal/replay"
	"github.com/conneroisu/ptpconsole/internal/version"
)

var cfgFile string

// rootCmd runs the interactive console.
var rootCmd = &cobra.Command{
	Use:   "ptpconsole",
	Short: "Operator console for a PTP daemon",
	Long: `ptpconsole runs the interactive operator console of a PTP daemon.

Lines typed at the prompt are matched against the registered commands; '?'
or 'help' lists them. A startup script can be replayed before the prompt
appears and, with --watch, again whenever it changes. With --listen the same
console is reachable over WebSocket (see 'ptpconsole attach').

Examples:
  ptpconsole -i eth0
  ptpconsole -i eth0 -r boot.cfg --watch
  ptpconsole -i eth0 --listen 127.0.0.1:8321 -l debug`,
	SilenceUsage:  true,
	SilenceErrors: true,
	Args:          cobra.NoArgs,
	RunE:          runConsole,
}

// Execute adds all child commands to the root command and runs it.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .ptpconsole.yml, can also use PTPCONSOLE_CONFIG_FILE env var)")
	pf.StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	pf.String("log-format", "text", "log format (text, json)")

	f := rootCmd.Flags()
	f.StringP("interface", "i", "", "network interface the PTP stack runs on (required)")
	f.StringP("replay", "r", "", "script to replay before the prompt")
	f.Bool("watch", false, "replay the script again whenever it changes")
	f.Bool("no-color", false, "disable ANSI colors")
	f.String("listen", "", "serve the console over WebSocket on host:port")

	setupFlags(rootCmd, map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"interface":  "interface",
		"replay":     "replay.file",
		"watch":      "replay.watch",
		"listen":     "remote.listen",
	})
}

// initConfig points viper at the config file and environment.
func initConfig() {
	used, err := config.Configure(viper.GetViper(), cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Warning:", err)
		return
	}
	if used != "" {
		fmt.Fprintln(os.Stderr, "Using config file:", used)
	}
}

func runConsole(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Interface == "" {
		return errors.NewConfigError(errors.ErrCodeConfigInvalid,
			"no network interface given, use -i <interface>")
	}
	if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
		cfg.Console.Color = console.ColorNever
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runSession(ctx, cfg, logger, cmd.InOrStdin(), cmd.OutOrStdout())
}

// runSession wires the console with its host commands, replays the startup
// script and serves until the loop ends.
func runSession(ctx context.Context, cfg *config.Config, logger *logging.ConsoleLogger, in io.Reader, out io.Writer) error {
	c := console.New(consoleOptions(cfg, out, logger))
	if _, err := hostcmd.Register(c, hostcmd.Deps{
		Levels:  logger,
		Version: func() string { return version.Get().Short() },
	}); err != nil {
		return err
	}

	logger.Info(ctx, "Console ready", "interface", cfg.Interface, "commands", c.Table().Len())

	replayOpts := replay.Options{Echo: true, Frame: true, Theme: c.Theme()}
	if cfg.Replay.File != "" {
		res, err := replay.File(ctx, c, out, cfg.Replay.File, replayOpts)
		if err != nil {
			return err
		}
		logger.Info(ctx, "Startup script replayed", "file", cfg.Replay.File, "lines", res.Lines, "failed", res.Failed)
	}

	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(workCtx)

	if cfg.Remote.Listen != "" {
		srv := remote.NewServer(c, remote.Options{
			Path:           cfg.Remote.Path,
			AllowedOrigins: cfg.Remote.AllowedOrigins,
		}, logger)
		g.Go(func() error { return srv.ListenAndServe(gctx, cfg.Remote.Listen) })
	}
	if cfg.Replay.Watch && cfg.Replay.File != "" {
		g.Go(func() error {
			return replay.Watch(gctx, c, replay.WatchConfig{
				Path:     cfg.Replay.File,
				Debounce: cfg.Replay.Debounce,
				Options:  replayOpts,
				Theme:    c.Theme,
				Out:      out,
				Logger:   logger,
			})
		})
	}

	// A failing worker stops the console too.
	g.Go(func() error {
		<-gctx.Done()
		c.Stop()
		return nil
	})

	runErr := c.Run(gctx, in)
	cancel()
	if err := g.Wait(); err != nil {
		return err
	}
	return runErr
}

func newLogger(cfg *config.Config, w io.Writer) *logging.ConsoleLogger {
	level, _ := logging.ParseLevel(cfg.Log.Level)
	return logging.NewLogger(&logging.LoggerConfig{
		Level:  level,
		Format: cfg.Log.Format,
		Output: w,
	})
}

func consoleOptions(cfg *config.Config, out io.Writer, logger logging.Logger) console.Options {
	cc := cfg.Console
	return console.Options{
		Capacity:         cc.Capacity,
		MaxTokenLength:   cc.MaxTokenLength,
		MaxCommandTokens: cc.MaxCommandTokens,
		MaxLineTokens:    cc.MaxLineTokens,
		MinGap:           cc.MinGap,
		HistorySize:      cc.HistorySize,
		Prompt:           cc.Prompt,
		Color:            console.DetectColor(cc.Color, out),
		Out:              out,
		Logger:           logger,
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/hostcmd"
	"github.com/conneroisu/ptpconsole/internal/logging"
	"github.com/conneroisu/ptpconsole/internal/version"
)

var commandsFormat string

var commandsCmd = &cobra.Command{
	Use:     "commands",
	Aliases: []string{"cmds"},
	Short:   "List the built-in console commands",
	Long: `List the commands every console registers, in table order.

Examples:
  ptpconsole commands              # Table
  ptpconsole commands -f yaml      # YAML
  ptpconsole commands -f help      # Exactly what '?' prints`,
	Args: cobra.NoArgs,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		return validateFormat(commandsFormat, "table", "json", "yaml", "help")
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return listCommands(cmd.OutOrStdout(), strings.ToLower(commandsFormat))
	},
}

func init() {
	rootCmd.AddCommand(commandsCmd)
	commandsCmd.Flags().StringVarP(&commandsFormat, "format", "f", "table", "Output format (table, json, yaml, help)")
}

type commandInfo struct {
	Command     string `json:"command" yaml:"command"`
	Usage       string `json:"usage" yaml:"usage"`
	MinArgs     int    `json:"min_args" yaml:"min_args"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

func listCommands(w io.Writer, format string) error {
	c := console.New(console.Options{Out: io.Discard})
	if _, err := hostcmd.Register(c, hostcmd.Deps{
		Levels:  logging.NewNop(),
		Version: func() string { return version.Get().Short() },
	}); err != nil {
		return err
	}

	if format == "help" {
		return c.Table().WriteHelp(w, console.Theme{})
	}

	entries := c.Table().Entries()
	infos := make([]commandInfo, len(entries))
	for i := range entries {
		e := &entries[i]
		infos[i] = commandInfo{
			Command:     e.Name(),
			Usage:       strings.TrimSpace(e.Label()),
			MinArgs:     e.MinArgs,
			Description: e.Hint(),
		}
	}

	switch format {
	case "json":
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(infos)
	case "yaml":
		encoder := yaml.NewEncoder(w)
		defer encoder.Close()
		return encoder.Encode(infos)
	default:
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "COMMAND\tUSAGE\tMIN ARGS\tDESCRIPTION")
		fmt.Fprintln(tw, "-------\t-----\t--------\t-----------")
		for _, info := range infos {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", info.Command, info.Usage, info.MinArgs, info.Description)
		}
		return tw.Flush()
	}
}

package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/conneroisu/ptpconsole/internal/console"
	"github.com/conneroisu/ptpconsole/internal/remote"
)

var attachCmd = &cobra.Command{
	Use:   "attach <url>",
	Short: "Connect to a console served with --listen",
	Long: `Open an interactive session on a remote console.

Examples:
  ptpconsole attach ws://127.0.0.1:8321/console
  echo "hist" | ptpconsole attach ws://ptp-gm.lab:8321/console`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		prompt, _ := cmd.Flags().GetString("prompt")
		return remote.Attach(ctx, args[0], cmd.InOrStdin(), cmd.OutOrStdout(), prompt)
	},
}

func init() {
	rootCmd.AddCommand(attachCmd)
	attachCmd.Flags().String("prompt", console.DefaultPrompt, "prompt printed before each line")
}

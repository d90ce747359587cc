package cmds

import (
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/RichardoC/support-widget/internal/app"
	"github.com/RichardoC/support-widget/internal/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start the interactive support chat",
	Example: `  $ widget chat

  # Keyboard controls:
  • Enter sends the message
  • PgUp/PgDown scroll the conversation
  • Esc quits`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	widget, cleanup, err := bootstrap(cmd, app.WithGreeting())
	if err != nil {
		return err
	}
	defer cleanup()

	model := tui.NewModel(cmd.Context(), widget.Client, widget.Log)
	if err := tui.Run(cmd.Context(), model); err != nil {
		return errors.Wrap(err, "failed to run chat")
	}
	return nil
}

package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	historyLimit int
	historyClear bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Print the locally recorded transcript",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "number of most recent messages to show")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "delete the recorded transcript instead of printing it")
}

func runHistory(cmd *cobra.Command, args []string) error {
	widget, cleanup, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	if widget.DB == nil {
		return errors.Errorf("transcript database %q is unavailable", widget.Config.Storage.DBPath)
	}

	if historyClear {
		if err := widget.DB.ClearMessages(); err != nil {
			return errors.Wrap(err, "failed to clear transcript")
		}
		fmt.Fprintln(cmd.OutOrStdout(), "transcript cleared")
		return nil
	}

	messages, err := widget.DB.GetConversationHistory(historyLimit)
	if err != nil {
		return errors.Wrap(err, "failed to read transcript")
	}

	out := cmd.OutOrStdout()
	for _, m := range messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.CreatedAt.Local().Format("2006-01-02 15:04"), m.Role, m.Content)
	}
	return nil
}

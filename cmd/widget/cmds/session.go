package cmds

import (
	"fmt"

	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Inspect or clear the stored support session",
}

var sessionShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the current session id",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		widget, cleanup, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		fmt.Fprintln(cmd.OutOrStdout(), widget.SessionLabel())
		return nil
	},
}

var sessionResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Forget the current session so the next message starts a new one",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		widget, cleanup, err := bootstrap(cmd)
		if err != nil {
			return err
		}
		defer cleanup()

		widget.Store.Clear()
		fmt.Fprintln(cmd.OutOrStdout(), "session cleared")
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionShowCmd)
	sessionCmd.AddCommand(sessionResetCmd)
}

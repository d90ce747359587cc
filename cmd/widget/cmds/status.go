package cmds

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the support backend and show the session it holds for you",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	widget, cleanup, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "backend: %s\n", widget.Client.BaseURL())

	serverTime, err := widget.Client.Health(cmd.Context())
	if err != nil {
		fmt.Fprintf(out, "health:  unreachable (%v)\n", err)
		return errors.New("backend unreachable")
	}
	fmt.Fprintf(out, "health:  ok (%s)\n", serverTime)

	id, ok := widget.Store.Get()
	if !ok {
		fmt.Fprintln(out, "session: not-started")
		return nil
	}

	record, err := widget.Client.FetchSession(cmd.Context(), id)
	if err != nil {
		fmt.Fprintf(out, "session: %s (%v)\n", id, err)
		return nil
	}
	fmt.Fprintf(out, "session: %s, status %s, %d messages\n", record.SessionID, record.Status, len(record.History))
	return nil
}

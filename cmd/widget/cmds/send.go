package cmds

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/RichardoC/support-widget/internal/conversation"
	"github.com/RichardoC/support-widget/internal/support"
)

var sendCmd = &cobra.Command{
	Use:   "send <message...>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

func runSend(cmd *cobra.Command, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return nil
	}

	widget, cleanup, err := bootstrap(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	widget.Log.AppendUser(text)
	out := widget.Client.Send(cmd.Context(), text)
	widget.Log.AppendOutcome(out)

	switch o := out.(type) {
	case support.Reply:
		fmt.Fprintln(cmd.OutOrStdout(), o.Text)
		return nil
	case support.Failure:
		fmt.Fprintln(cmd.ErrOrStderr(), conversation.FailureText(o))
		return errors.New("exchange failed")
	}
	return nil
}

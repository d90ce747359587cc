package cmds

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/RichardoC/support-widget/internal/app"
	"github.com/RichardoC/support-widget/internal/config"
	"github.com/RichardoC/support-widget/internal/logging"
)

const version = "0.1.0"

var flags struct {
	backend    string
	customerID string
	channel    string
	dbPath     string
	ordered    bool
}

var rootCmd = &cobra.Command{
	Use:     "widget",
	Short:   "Chat with the support service from your terminal",
	Version: version,
	Long: `A small support chat client. It keeps one support session id on disk so a
conversation continues across restarts, and sends each message to the support
backend as a single request.`,
	Example: `  # Start the interactive chat
  $ widget chat

  # Send one message and print the reply
  $ widget send "My app crashes on login"

  # Show or forget the current session
  $ widget session show
  $ widget session reset`,
	SilenceUsage: true,
}

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.backend, "backend", "", "support backend base URL (env SUPPORT_BACKEND_URL)")
	pf.StringVar(&flags.customerID, "customer-id", "", "customer identifier sent with every message (env SUPPORT_CUSTOMER_ID)")
	pf.StringVar(&flags.channel, "channel", "", "context channel tag (env SUPPORT_CHANNEL)")
	pf.StringVar(&flags.dbPath, "db", "", "sqlite file holding the session id (env WIDGET_DB_PATH)")
	pf.BoolVar(&flags.ordered, "ordered", false, "ignore session ids from replies to older messages (env WIDGET_ORDERED_UPDATES)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

// loadConfig reads .env and the environment, then applies flags the user set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, errors.Wrap(err, "failed to load .env file")
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pf := cmd.Flags()
	if pf.Changed("backend") {
		cfg.Backend.URL = flags.backend
	}
	if pf.Changed("customer-id") {
		cfg.Backend.CustomerID = flags.customerID
	}
	if pf.Changed("channel") {
		cfg.Backend.Channel = flags.channel
	}
	if pf.Changed("db") {
		cfg.Storage.DBPath = flags.dbPath
	}
	if pf.Changed("ordered") {
		cfg.Backend.OrderedUpdates = flags.ordered
	}
	return cfg, nil
}

// bootstrap builds the widget core for a command. Logs always go to the log
// file so command output stays clean.
func bootstrap(cmd *cobra.Command, opts ...app.Option) (*app.App, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(cfg.Log, true)
	if err != nil {
		return nil, nil, err
	}

	widget, err := app.New(cfg, logger, opts...)
	if err != nil {
		_ = logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := widget.Close(); err != nil {
			logger.Warn("failed to close database", zap.Error(err))
		}
		_ = logger.Sync()
	}
	return widget, cleanup, nil
}

package app

import (
	"net/http"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/RichardoC/support-widget/internal/config"
	"github.com/RichardoC/support-widget/internal/conversation"
	"github.com/RichardoC/support-widget/internal/db"
	"github.com/RichardoC/support-widget/internal/session"
	"github.com/RichardoC/support-widget/internal/support"
)

// App is the wired widget core shared by the CLI, the terminal UI and the
// HTTP bridge.
type App struct {
	Config *config.Config
	Logger *zap.Logger
	DB     *db.Database // nil when the database could not be opened
	Store  *session.Persistent
	Client *support.Client
	Log    *conversation.Log
}

type Option func(*options)

type options struct {
	httpClient *http.Client
	greeting   bool
}

// WithHTTPClient overrides the transport used for backend calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) {
		o.httpClient = hc
	}
}

// WithGreeting starts the conversation log with the assistant greeting.
func WithGreeting() Option {
	return func(o *options) {
		o.greeting = true
	}
}

func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	a := &App{Config: cfg, Logger: logger}

	database, err := db.New(cfg.Storage.DBPath)
	if err != nil {
		logger.Warn("database unavailable, session id will not survive a restart",
			zap.String("dbPath", cfg.Storage.DBPath),
			zap.Error(err))
	} else {
		a.DB = database
	}

	var backend session.Backend
	if a.DB != nil {
		backend = a.DB
	}
	a.Store = session.NewPersistent(backend,
		session.WithNotFound(func(err error) bool { return errors.Is(err, db.ErrNotFound) }),
		session.WithLogger(logger.Named("session")))

	hc := o.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Backend.Timeout}
	}
	clientOpts := []support.Option{
		support.WithHTTPClient(hc),
		support.WithLogger(logger.Named("support")),
		support.WithCustomerID(cfg.Backend.CustomerID),
		support.WithChannel(cfg.Backend.Channel),
	}
	if cfg.Backend.OrderedUpdates {
		clientOpts = append(clientOpts, support.WithOrderedUpdates())
	}
	a.Client, err = support.New(cfg.Backend.URL, a.Store, clientOpts...)
	if err != nil {
		_ = a.Close()
		return nil, errors.Wrap(err, "failed to create support client")
	}

	logOpts := []conversation.Option{conversation.WithLogger(logger.Named("conversation"))}
	if a.DB != nil {
		logOpts = append(logOpts, conversation.WithRecorder(a.DB))
	}
	if o.greeting {
		logOpts = append(logOpts, conversation.WithGreeting(conversation.Greeting))
	}
	a.Log = conversation.NewLog(logOpts...)

	return a, nil
}

// SessionLabel is the current session id, or "not-started".
func (a *App) SessionLabel() string {
	return a.Client.SessionLabel()
}

func (a *App) Close() error {
	if a.DB == nil {
		return nil
	}
	return a.DB.Close()
}

package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap/zapcore"

	"github.com/RichardoC/support-widget/internal/support"
)

// Config gathers everything the widget binaries need. Values come from the
// environment; main loads a .env file first.
type Config struct {
	Backend BackendConfig
	Storage StorageConfig
	Server  ServerConfig
	Log     LogConfig
}

type BackendConfig struct {
	URL            string
	CustomerID     string
	Channel        string
	Timeout        time.Duration // 0 leaves the transport default
	OrderedUpdates bool
}

type StorageConfig struct {
	DBPath string
}

type ServerConfig struct {
	Addr string
}

type LogConfig struct {
	File  string
	Level zapcore.Level
}

const (
	DefaultBackendURL = "http://127.0.0.1:8000"
	DefaultDBPath     = "support-widget.db"
	DefaultAddr       = ":8100"
	DefaultLogFile    = "support-widget.log"
)

func Load() (*Config, error) {
	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}

	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	logCfg, err := loadLogConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Backend: backend,
		Storage: StorageConfig{DBPath: getEnv("WIDGET_DB_PATH", DefaultDBPath)},
		Server:  server,
		Log:     logCfg,
	}, nil
}

func loadBackendConfig() (BackendConfig, error) {
	cfg := BackendConfig{
		URL:        getEnv("SUPPORT_BACKEND_URL", DefaultBackendURL),
		CustomerID: getEnv("SUPPORT_CUSTOMER_ID", support.DefaultCustomerID),
		Channel:    getEnv("SUPPORT_CHANNEL", support.DefaultChannel),
	}

	if raw := strings.TrimSpace(os.Getenv("SUPPORT_TIMEOUT")); raw != "" {
		timeout, err := time.ParseDuration(raw)
		if err != nil {
			return BackendConfig{}, errors.Wrapf(err, "invalid SUPPORT_TIMEOUT value %q", raw)
		}
		if timeout < 0 {
			return BackendConfig{}, errors.Errorf("invalid SUPPORT_TIMEOUT value %q: must not be negative", raw)
		}
		cfg.Timeout = timeout
	}

	if raw := strings.TrimSpace(os.Getenv("WIDGET_ORDERED_UPDATES")); raw != "" {
		ordered, err := strconv.ParseBool(raw)
		if err != nil {
			return BackendConfig{}, errors.Wrapf(err, "invalid WIDGET_ORDERED_UPDATES value %q", raw)
		}
		cfg.OrderedUpdates = ordered
	}

	return cfg, nil
}

// loadServerConfig accepts a bare port ("8100") or a full listen address.
func loadServerConfig() (ServerConfig, error) {
	addr := getEnv("WIDGET_ADDR", DefaultAddr)

	if strings.Contains(addr, ":") {
		return ServerConfig{Addr: addr}, nil
	}

	if strings.Contains(addr, " ") {
		return ServerConfig{}, errors.Errorf("invalid WIDGET_ADDR value: %q", addr)
	}

	return ServerConfig{Addr: ":" + addr}, nil
}

func loadLogConfig() (LogConfig, error) {
	cfg := LogConfig{
		File:  getEnv("WIDGET_LOG_FILE", DefaultLogFile),
		Level: zapcore.InfoLevel,
	}

	if raw := strings.TrimSpace(os.Getenv("WIDGET_LOG_LEVEL")); raw != "" {
		level, err := zapcore.ParseLevel(raw)
		if err != nil {
			return LogConfig{}, errors.Wrapf(err, "invalid WIDGET_LOG_LEVEL value %q", raw)
		}
		cfg.Level = level
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

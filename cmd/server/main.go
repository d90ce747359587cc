package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/RichardoC/support-widget/internal/api"
	"github.com/RichardoC/support-widget/internal/app"
	"github.com/RichardoC/support-widget/internal/config"
	"github.com/RichardoC/support-widget/internal/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("warning: failed to load .env file: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log, false)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	widget, err := app.New(cfg, logger, app.WithGreeting())
	if err != nil {
		logger.Fatal("failed to initialize widget", zap.Error(err))
	}
	defer widget.Close()

	handler := api.NewHandler(widget.Client, widget.Log, widget.Store, logger.Named("api"))
	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.NewRouter(handler, logger.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting bridge",
			zap.String("addr", cfg.Server.Addr),
			zap.String("backend", widget.Client.BaseURL()),
			zap.String("session", widget.SessionLabel()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal("bridge stopped with error", zap.Error(err))
	}
	logger.Info("Bridge stopped")
}

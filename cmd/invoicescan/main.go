package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"

	"github.com/vbonduro/invoicescan/internal/app"
	"github.com/vbonduro/invoicescan/internal/config"
	"github.com/vbonduro/invoicescan/internal/logging"
	"github.com/vbonduro/invoicescan/internal/web"
	"github.com/vbonduro/invoicescan/internal/web/templates"
)

func main() {
	// A missing .env is fine; the environment may be set some other way.
	_ = godotenv.Load()

	cfg, err := config.Load("invoicescan", os.Args[1:])
	if err != nil {
		var uerr *config.UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(os.Stderr, "%s\n", uerr.Usage)
			if errors.Is(err, ff.ErrHelp) {
				os.Exit(0)
			}
		}
		log.Fatalf("invalid configuration: %v", err)
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		return
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("failed to close resources", "error", err)
		}
	}()

	server := web.NewServer(a.Service, templates.FS, logger)
	if err := server.ListenAndServe(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
	}
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/vbonduro/invoicescan/internal/config"
	"github.com/vbonduro/invoicescan/internal/db"
	"github.com/vbonduro/invoicescan/internal/extract"
	"github.com/vbonduro/invoicescan/internal/imagestore"
	"github.com/vbonduro/invoicescan/internal/imagestore/bolt"
	"github.com/vbonduro/invoicescan/internal/imagestore/gcs"
	"github.com/vbonduro/invoicescan/internal/imagestore/local"
	"github.com/vbonduro/invoicescan/internal/service"
	"github.com/vbonduro/invoicescan/internal/store"
	"github.com/vbonduro/invoicescan/internal/vision"
	claudevision "github.com/vbonduro/invoicescan/internal/vision/claude"
	geminivision "github.com/vbonduro/invoicescan/internal/vision/gemini"
	ollamavision "github.com/vbonduro/invoicescan/internal/vision/ollama"
)

// App wires the pipeline from configuration. Both binaries share it.
type App struct {
	Service *service.InvoiceService

	database *sql.DB
	closers  []io.Closer
	logger   *slog.Logger
}

func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	a := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			if err := a.Close(); err != nil {
				logger.Warn("failed to release partially built app", "error", err)
			}
		}
	}()

	var err error
	a.database, err = db.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	images, err := a.newImageStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize image store: %w", err)
	}

	analyzer, err := a.newAnalyzer(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize vision backend: %w", err)
	}

	a.Service = service.NewInvoiceService(
		store.NewInvoiceStore(a.database),
		extract.NewClient(images, analyzer, logger),
		images,
		logger,
	)
	ok = true
	return a, nil
}

func (a *App) newImageStore(ctx context.Context, cfg *config.Config) (imagestore.ImageStore, error) {
	switch cfg.ImageBackend {
	case "bolt":
		a.logger.Info("using bolt image store", "path", cfg.BoltPath)
		s, err := bolt.NewBoltImageStore(cfg.BoltPath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	case "gcs":
		a.logger.Info("using gcs image store", "bucket", cfg.GCSBucket, "prefix", cfg.GCSPrefix)
		s, err := gcs.NewGCSImageStore(ctx, cfg.GCSBucket, cfg.GCSPrefix)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s)
		return s, nil
	default:
		a.logger.Info("using local image store", "path", cfg.ImagePath)
		return local.NewLocalImageStore(cfg.ImagePath)
	}
}

func (a *App) newAnalyzer(ctx context.Context, cfg *config.Config) (vision.Analyzer, error) {
	switch cfg.VisionBackend {
	case "claude":
		a.logger.Info("using Claude vision backend", "model", cfg.ClaudeModel)
		return claudevision.NewClaudeAnalyzer(cfg.ClaudeAPIKey, cfg.ClaudeModel), nil
	case "ollama":
		a.logger.Info("using Ollama vision backend", "host", cfg.OllamaHost, "model", cfg.OllamaModel)
		return ollamavision.NewOllamaAnalyzer(cfg.OllamaHost, cfg.OllamaModel), nil
	default:
		a.logger.Info("using Gemini vision backend", "model", cfg.GeminiModel)
		g, err := geminivision.NewGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, g)
		return g, nil
	}
}

// Close releases backend clients and the database. It is safe on a partially
// built App.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	if a.database != nil {
		errs = append(errs, a.database.Close())
	}
	return errors.Join(errs...)
}

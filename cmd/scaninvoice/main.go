// Command scaninvoice runs the extraction pipeline once for the image files
// given as arguments (all pages of one invoice) and prints the saved invoice
// as JSON.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/gabriel-vasile/mimetype"
	"github.com/joho/godotenv"
	"github.com/peterbourgon/ff/v4"

	"github.com/vbonduro/invoicescan/internal/app"
	"github.com/vbonduro/invoicescan/internal/config"
	"github.com/vbonduro/invoicescan/internal/imagestore"
	"github.com/vbonduro/invoicescan/internal/logging"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("scaninvoice", os.Args[1:])
	if err != nil {
		var uerr *config.UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintf(os.Stderr, "usage: scaninvoice [flags] page1.jpg [page2.jpg ...]\n\n%s\n", uerr.Usage)
			if errors.Is(err, ff.ErrHelp) {
				os.Exit(0)
			}
		}
		log.Fatalf("invalid configuration: %v", err)
	}
	if len(cfg.Args) == 0 {
		log.Fatal("usage: scaninvoice [flags] page1.jpg [page2.jpg ...]")
	}

	logger, cleanup, err := logging.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, os.Stdout); err != nil {
		logger.Error("scan failed", "error", err)
		cleanup()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger, out io.Writer) error {
	uploads, err := readUploads(cfg.Args)
	if err != nil {
		return err
	}

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	inv, err := a.Service.ProcessInvoice(ctx, uploads)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(inv)
}

func readUploads(paths []string) ([]imagestore.Upload, error) {
	uploads := make([]imagestore.Upload, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", p, err)
		}
		uploads = append(uploads, imagestore.Upload{
			Name:     filepath.Base(p),
			MimeType: mimetype.Detect(data).String(),
			Data:     data,
		})
	}
	return uploads, nil
}

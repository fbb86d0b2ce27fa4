package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vbonduro/invoicescan/internal/domain"
	"github.com/vbonduro/invoicescan/internal/imagestore"
	"github.com/vbonduro/invoicescan/internal/vision"
)

// Client turns stored invoice images into the model's raw text reply.
type Client struct {
	store    imagestore.ImageStore
	analyzer vision.Analyzer
	logger   *slog.Logger
}

func NewClient(store imagestore.ImageStore, analyzer vision.Analyzer, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{store: store, analyzer: analyzer, logger: logger}
}

// Extract loads every locator, sends all images in a single model request and
// returns the reply text unmodified. Images are loaded completely before the
// request is made, so a bad image never costs a model call.
func (c *Client) Extract(ctx context.Context, locators []string) (string, error) {
	if len(locators) == 0 {
		return "", domain.NewErrorf(domain.ErrImageLoadFailed, "extract", nil, "no images")
	}

	images := make([]vision.Image, 0, len(locators))
	for i, loc := range locators {
		img, err := c.load(ctx, loc)
		if err != nil {
			return "", domain.NewErrorf(domain.ErrImageLoadFailed, "extract", err, "image %d %q", i+1, loc)
		}
		images = append(images, img)
	}

	start := time.Now()
	c.logger.Info("model call started", "images", len(images))
	text, err := c.analyzer.Analyze(ctx, images)
	if err != nil {
		c.logger.Error("model call failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
		return "", domain.NewError(domain.ErrRemoteCallFailed, "extract", err)
	}
	c.logger.Info("model call complete", "duration_ms", time.Since(start).Milliseconds(), "response_len", len(text))

	return text, nil
}

func (c *Client) load(ctx context.Context, locator string) (vision.Image, error) {
	rc, _, err := c.store.Get(ctx, locator)
	if err != nil {
		return vision.Image{}, fmt.Errorf("failed to open image: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return vision.Image{}, fmt.Errorf("failed to read image: %w", err)
	}

	return PrepareImage(data)
}

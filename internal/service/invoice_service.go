package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/vbonduro/invoicescan/internal/domain"
	"github.com/vbonduro/invoicescan/internal/imagestore"
	"github.com/vbonduro/invoicescan/internal/normalize"
)

// invoiceRepository is the subset of store.InvoiceStore that InvoiceService requires.
type invoiceRepository interface {
	CreateInvoice(ctx context.Context, data *domain.ExtractedInvoice, imagePaths []string) (int64, error)
	ListInvoices(ctx context.Context) ([]*domain.Invoice, error)
	GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error)
}

// extractor is the subset of extract.Client that InvoiceService requires.
type extractor interface {
	Extract(ctx context.Context, locators []string) (string, error)
}

type InvoiceService struct {
	invoices  invoiceRepository
	extractor extractor
	images    imagestore.ImageStore
	logger    *slog.Logger
}

func NewInvoiceService(
	invoices invoiceRepository,
	extractor extractor,
	images imagestore.ImageStore,
	logger *slog.Logger,
) *InvoiceService {
	return &InvoiceService{
		invoices:  invoices,
		extractor: extractor,
		images:    images,
		logger:    logger,
	}
}

// ProcessInvoice stores the uploaded pages, extracts and normalizes the
// invoice, persists it and returns the saved record with its line items.
// The first failing stage aborts the run and its typed error is returned
// unchanged. Images stored by a run that later fails are removed.
func (s *InvoiceService) ProcessInvoice(ctx context.Context, uploads []imagestore.Upload) (*domain.Invoice, error) {
	start := time.Now()
	s.logger.Info("process invoice started", "images", len(uploads))

	if len(uploads) == 0 {
		return nil, domain.NewErrorf(domain.ErrStorageFailed, "process invoice", nil, "no images provided")
	}

	locators, err := imagestore.SaveAll(ctx, s.images, uploads)
	if err != nil {
		s.logger.Error("image intake failed", "error", err)
		return nil, err
	}
	s.logger.Info("image intake complete", "locators", locators)

	id, err := s.extractAndSave(ctx, locators)
	if err != nil {
		imagestore.DeleteAll(ctx, s.images, locators)
		return nil, err
	}

	inv, err := s.invoices.GetInvoice(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to reload invoice %d: %w", id, err)
	}

	s.logger.Info("process invoice complete",
		"invoice_id", id,
		"line_items", len(inv.LineItems),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return inv, nil
}

func (s *InvoiceService) extractAndSave(ctx context.Context, locators []string) (int64, error) {
	raw, err := s.extractor.Extract(ctx, locators)
	if err != nil {
		s.logger.Error("extraction failed", "error", err)
		return 0, err
	}

	data, err := normalize.Normalize(raw)
	if err != nil {
		s.logger.Error("normalization failed", "error", err)
		return 0, err
	}
	s.logger.Info("normalization complete", "line_items", len(data.LineItems))

	for _, finding := range normalize.CheckTotals(data) {
		s.logger.Warn("invoice totals inconsistent", "finding", finding)
	}

	id, err := s.invoices.CreateInvoice(ctx, data, locators)
	if err != nil {
		s.logger.Error("invoice write failed", "error", err)
		return 0, err
	}
	s.logger.Info("invoice saved", "invoice_id", id)
	return id, nil
}

func (s *InvoiceService) ListInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	return s.invoices.ListInvoices(ctx)
}

func (s *InvoiceService) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	return s.invoices.GetInvoice(ctx, id)
}

// ListInvoicesWithItems returns every invoice, newest first, with line items loaded.
func (s *InvoiceService) ListInvoicesWithItems(ctx context.Context) ([]*domain.Invoice, error) {
	headers, err := s.invoices.ListInvoices(ctx)
	if err != nil {
		return nil, err
	}
	full := make([]*domain.Invoice, 0, len(headers))
	for _, h := range headers {
		inv, err := s.invoices.GetInvoice(ctx, h.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load invoice %d: %w", h.ID, err)
		}
		full = append(full, inv)
	}
	return full, nil
}

// OpenImage returns page index (0-based) of an invoice. The caller closes the reader.
func (s *InvoiceService) OpenImage(ctx context.Context, invoiceID int64, index int) (io.ReadCloser, string, error) {
	inv, err := s.invoices.GetInvoice(ctx, invoiceID)
	if err != nil {
		return nil, "", err
	}
	if index < 0 || index >= len(inv.ImagePaths) {
		return nil, "", domain.NewErrorf(domain.ErrNotFound, "open image", nil, "invoice %d has no image %d", invoiceID, index)
	}

	rc, mimeType, err := s.images.Get(ctx, inv.ImagePaths[index])
	if err != nil {
		return nil, "", fmt.Errorf("failed to open image %q: %w", inv.ImagePaths[index], err)
	}
	return rc, mimeType, nil
}

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vbonduro/invoicescan/internal/domain"
)

// createdAtLayout is fixed-width so that text ordering of created_at matches
// time ordering.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z07:00"

type InvoiceStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewInvoiceStore(db *sql.DB) *InvoiceStore {
	return &InvoiceStore{db: db, now: time.Now}
}

// CreateInvoice inserts the header and all of its line items in one
// transaction and returns the new header id. On any failure nothing is
// persisted and a WriteFailed error is returned.
func (s *InvoiceStore) CreateInvoice(ctx context.Context, data *domain.ExtractedInvoice, imagePaths []string) (id int64, err error) {
	const op = "create invoice"

	for _, p := range imagePaths {
		if strings.Contains(p, domain.ImagePathSeparator) {
			return 0, domain.NewErrorf(domain.ErrWriteFailed, op, nil, "image locator %q contains %q", p, domain.ImagePathSeparator)
		}
	}
	if data == nil {
		data = &domain.ExtractedInvoice{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, domain.NewError(domain.ErrWriteFailed, op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() {
		if err == nil {
			return
		}
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			slog.Error("failed to roll back invoice transaction", "error", rerr)
		}
	}()

	createdAt := s.now().UTC().Format(createdAtLayout)
	result, err := tx.ExecContext(ctx, `
		INSERT INTO invoice_header (supplier, invoice_date, total_amount, tax, image_paths, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, data.Supplier, data.InvoiceDate, data.TotalAmount, data.Tax, strings.Join(imagePaths, domain.ImagePathSeparator), createdAt)
	if err != nil {
		return 0, domain.NewError(domain.ErrWriteFailed, op, fmt.Errorf("failed to insert header: %w", err))
	}

	id, err = result.LastInsertId()
	if err != nil {
		return 0, domain.NewError(domain.ErrWriteFailed, op, fmt.Errorf("failed to get last insert id: %w", err))
	}

	if err = insertLineItems(ctx, tx, id, data.LineItems); err != nil {
		return 0, domain.NewError(domain.ErrWriteFailed, op, err)
	}

	if err = tx.Commit(); err != nil {
		return 0, domain.NewError(domain.ErrWriteFailed, op, fmt.Errorf("failed to commit: %w", err))
	}

	return id, nil
}

// ListInvoices returns every header, most recently created first. Line items
// are not loaded.
func (s *InvoiceStore) ListInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, supplier, invoice_date, total_amount, tax, image_paths, created_at
		FROM invoice_header ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list invoices: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	invoices := make([]*domain.Invoice, 0)
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating invoices: %w", err)
	}

	return invoices, nil
}

// GetInvoice returns the header with its line items, or a NotFound error.
func (s *InvoiceStore) GetInvoice(ctx context.Context, id int64) (*domain.Invoice, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, supplier, invoice_date, total_amount, tax, image_paths, created_at
		FROM invoice_header WHERE id = ?
	`, id)

	inv, err := scanInvoice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewErrorf(domain.ErrNotFound, "get invoice", nil, "invoice %d", id)
	}
	if err != nil {
		return nil, err
	}

	items, err := listLineItems(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	inv.LineItems = items

	return inv, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row scanner) (*domain.Invoice, error) {
	inv := &domain.Invoice{}
	var imagePaths, createdAt string
	err := row.Scan(&inv.ID, &inv.Supplier, &inv.InvoiceDate, &inv.TotalAmount, &inv.Tax, &imagePaths, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	inv.ImagePaths = splitImagePaths(imagePaths)
	inv.CreatedAt, err = time.Parse(createdAtLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at %q: %w", createdAt, err)
	}

	return inv, nil
}

func splitImagePaths(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, domain.ImagePathSeparator)
}

package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/vbonduro/invoicescan/internal/domain"
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func insertLineItems(ctx context.Context, q querier, headerID int64, items []domain.ExtractedLineItem) error {
	for i, item := range items {
		_, err := q.ExecContext(ctx, `
			INSERT INTO invoice_line_items (header_id, description, quantity, unit_price, amount)
			VALUES (?, ?, ?, ?, ?)
		`, headerID, item.Description, item.Quantity, item.UnitPrice, item.Amount)
		if err != nil {
			return fmt.Errorf("failed to insert line item %d: %w", i, err)
		}
	}
	return nil
}

func listLineItems(ctx context.Context, q querier, headerID int64) ([]*domain.LineItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, header_id, description, quantity, unit_price, amount
		FROM invoice_line_items WHERE header_id = ? ORDER BY id ASC
	`, headerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list line items: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			slog.Error("failed to close rows", "error", err)
		}
	}()

	items := make([]*domain.LineItem, 0)
	for rows.Next() {
		item := &domain.LineItem{}
		if err := rows.Scan(&item.ID, &item.HeaderID, &item.Description, &item.Quantity, &item.UnitPrice, &item.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan line item: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating line items: %w", err)
	}

	return items, nil
}

package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/invoicescan/internal/db"
	"github.com/vbonduro/invoicescan/internal/domain"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	d, err := db.OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func ptr[T any](v T) *T { return &v }

func countRows(t *testing.T, d *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, d.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func acmeInvoice() *domain.ExtractedInvoice {
	return &domain.ExtractedInvoice{
		Supplier:    ptr("Acme"),
		InvoiceDate: ptr("2024-01-05"),
		TotalAmount: ptr(120.5),
		LineItems: []domain.ExtractedLineItem{
			{Description: ptr("Widget"), Quantity: ptr(2.0), UnitPrice: ptr(60.25), Amount: ptr(120.5)},
		},
	}
}

func TestInvoiceStoreCreateAndGet(t *testing.T) {
	d := openTestDB(t)
	store := NewInvoiceStore(d)
	ctx := context.Background()

	id, err := store.CreateInvoice(ctx, acmeInvoice(), []string{"a.jpg", "b.jpg"})
	require.NoError(t, err)
	assert.NotZero(t, id)

	inv, err := store.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, inv.ID)
	assert.Equal(t, "Acme", *inv.Supplier)
	assert.Equal(t, "2024-01-05", *inv.InvoiceDate)
	assert.Equal(t, 120.5, *inv.TotalAmount)
	assert.Nil(t, inv.Tax)
	assert.Equal(t, []string{"a.jpg", "b.jpg"}, inv.ImagePaths)
	assert.False(t, inv.CreatedAt.IsZero())

	require.Len(t, inv.LineItems, 1)
	item := inv.LineItems[0]
	assert.Equal(t, id, item.HeaderID)
	assert.Equal(t, "Widget", *item.Description)
	assert.Equal(t, 2.0, *item.Quantity)
	assert.Equal(t, 60.25, *item.UnitPrice)
	assert.Equal(t, 120.5, *item.Amount)

	assert.Equal(t, 1, countRows(t, d, "invoice_header"))
	assert.Equal(t, 1, countRows(t, d, "invoice_line_items"))
}

func TestInvoiceStoreCreateAllFieldsNull(t *testing.T) {
	d := openTestDB(t)
	store := NewInvoiceStore(d)
	ctx := context.Background()

	id, err := store.CreateInvoice(ctx, &domain.ExtractedInvoice{
		LineItems: []domain.ExtractedLineItem{{}},
	}, nil)
	require.NoError(t, err)

	inv, err := store.GetInvoice(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, inv.Supplier)
	assert.Nil(t, inv.InvoiceDate)
	assert.Nil(t, inv.TotalAmount)
	assert.Empty(t, inv.ImagePaths)
	require.Len(t, inv.LineItems, 1)
	assert.Nil(t, inv.LineItems[0].Description)
	assert.Nil(t, inv.LineItems[0].Amount)
}

func TestInvoiceStoreCreateRollsBackOnLineItemFailure(t *testing.T) {
	d := openTestDB(t)
	store := NewInvoiceStore(d)

	// Fails every line-item insert, i.e. after the header row was written.
	_, err := d.Exec(`
		CREATE TRIGGER fail_line_items BEFORE INSERT ON invoice_line_items
		BEGIN SELECT RAISE(ABORT, 'injected failure'); END;
	`)
	require.NoError(t, err)

	id, err := store.CreateInvoice(context.Background(), acmeInvoice(), []string{"a.jpg"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrWriteFailed)
	assert.Contains(t, err.Error(), "injected failure")
	assert.Zero(t, id)

	assert.Equal(t, 0, countRows(t, d, "invoice_header"))
	assert.Equal(t, 0, countRows(t, d, "invoice_line_items"))
}

func TestInvoiceStoreCreateRejectsDelimiterInLocator(t *testing.T) {
	d := openTestDB(t)
	store := NewInvoiceStore(d)

	_, err := store.CreateInvoice(context.Background(), acmeInvoice(), []string{"a,b.jpg"})
	assert.ErrorIs(t, err, domain.ErrWriteFailed)
	assert.Equal(t, 0, countRows(t, d, "invoice_header"))
}

func TestInvoiceStoreListNewestFirst(t *testing.T) {
	d := openTestDB(t)
	store := NewInvoiceStore(d)
	ctx := context.Background()

	base := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	times := []time.Time{
		base,
		base.Add(500 * time.Millisecond),
		base.Add(time.Second + time.Microsecond),
	}

	var ids []int64
	for i, ts := range times {
		store.now = func() time.Time { return ts }
		id, err := store.CreateInvoice(ctx, &domain.ExtractedInvoice{Supplier: ptr([]string{"one", "two", "three"}[i])}, nil)
		require.NoError(t, err)
		ids = append(ids, id)
	}

	invoices, err := store.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{invoices[0].ID, invoices[1].ID, invoices[2].ID})
	assert.True(t, invoices[0].CreatedAt.Equal(times[2]))
	assert.Nil(t, invoices[0].LineItems)
}

func TestInvoiceStoreListTiesBrokenByInsertionOrder(t *testing.T) {
	d := openTestDB(t)
	store := NewInvoiceStore(d)
	ctx := context.Background()

	fixed := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	first, err := store.CreateInvoice(ctx, &domain.ExtractedInvoice{}, nil)
	require.NoError(t, err)
	second, err := store.CreateInvoice(ctx, &domain.ExtractedInvoice{}, nil)
	require.NoError(t, err)

	invoices, err := store.ListInvoices(ctx)
	require.NoError(t, err)
	require.Len(t, invoices, 2)
	assert.Equal(t, second, invoices[0].ID)
	assert.Equal(t, first, invoices[1].ID)
}

func TestInvoiceStoreListEmpty(t *testing.T) {
	store := NewInvoiceStore(openTestDB(t))

	invoices, err := store.ListInvoices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestInvoiceStoreGetNotFound(t *testing.T) {
	store := NewInvoiceStore(openTestDB(t))

	inv, err := store.GetInvoice(context.Background(), 42)
	assert.Nil(t, inv)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

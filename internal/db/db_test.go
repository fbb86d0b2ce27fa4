package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "invoices.db")

	d, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, d.Close())

	// Reopening must not re-apply migrations.
	d, err = Open(path)
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}

func TestMigrationsApply(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { assert.NoError(t, d.Close()) })

	var tableName string

	err = d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='invoice_header'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "invoice_header", tableName)

	err = d.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='invoice_line_items'").Scan(&tableName)
	assert.NoError(t, err)
	assert.Equal(t, "invoice_line_items", tableName)
}

func TestOpenForTestingIsolated(t *testing.T) {
	a, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	b, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Close() })

	_, err = a.Exec(`INSERT INTO invoice_header (created_at) VALUES ('2024-01-01T00:00:00.000000000Z')`)
	require.NoError(t, err)

	var n int
	require.NoError(t, b.QueryRow(`SELECT COUNT(*) FROM invoice_header`).Scan(&n))
	assert.Zero(t, n)
}

func TestLineItemsCascadeWithHeader(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	res, err := d.Exec(`INSERT INTO invoice_header (created_at) VALUES ('2024-01-01T00:00:00.000000000Z')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)

	_, err = d.Exec(`INSERT INTO invoice_line_items (header_id, description) VALUES (?, 'Widget')`, id)
	require.NoError(t, err)

	_, err = d.Exec(`DELETE FROM invoice_header WHERE id = ?`, id)
	require.NoError(t, err)

	var n int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM invoice_line_items`).Scan(&n))
	assert.Zero(t, n)
}

func TestLineItemRequiresHeader(t *testing.T) {
	d, err := OpenForTesting()
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(`INSERT INTO invoice_line_items (header_id, description) VALUES (999, 'orphan')`)
	assert.Error(t, err)
}

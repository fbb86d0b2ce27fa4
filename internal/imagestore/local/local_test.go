package local

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vbonduro/invoicescan/internal/domain"
)

func TestLocalImageStoreSaveAndGet(t *testing.T) {
	tmpdir := t.TempDir()
	store, err := NewLocalImageStore(tmpdir)
	require.NoError(t, err)

	ctx := context.Background()
	imageData := []byte("fake png data")

	key, err := store.Save(ctx, "invoice page 1.png", "image/png", bytes.NewReader(imageData))
	require.NoError(t, err)
	assert.NotEmpty(t, key)
	assert.Contains(t, key, "invoice_page_1.png")

	reader, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	defer reader.Close()

	assert.Equal(t, "image/png", mimeType)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, imageData, data)
}

func TestLocalImageStoreCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploaded_images", "nested")

	_, err := NewLocalImageStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestLocalImageStoreSameNameDoesNotOverwrite(t *testing.T) {
	store, err := NewLocalImageStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	first, err := store.Save(ctx, "invoice.jpg", "image/jpeg", bytes.NewReader([]byte("first")))
	require.NoError(t, err)
	second, err := store.Save(ctx, "invoice.jpg", "image/jpeg", bytes.NewReader([]byte("second")))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	r, _, err := store.Get(ctx, first)
	require.NoError(t, err)
	defer r.Close()
	data, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "first", string(data))
}

func TestLocalImageStoreDelete(t *testing.T) {
	store, err := NewLocalImageStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()

	key, err := store.Save(ctx, "a.jpg", "image/jpeg", bytes.NewReader([]byte("test data")))
	require.NoError(t, err)

	err = store.Delete(ctx, key)
	require.NoError(t, err)

	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalImageStoreNotFound(t *testing.T) {
	store, err := NewLocalImageStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "nonexistent.jpg")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLocalImageStorePathTraversal(t *testing.T) {
	store, err := NewLocalImageStore(t.TempDir())
	require.NoError(t, err)

	_, _, err = store.Get(context.Background(), "../../etc/passwd")
	assert.Error(t, err)
}

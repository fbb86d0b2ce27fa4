package imagestore

import (
	"bytes"
	"context"
	"log/slog"

	"github.com/vbonduro/invoicescan/internal/domain"
)

// Upload is one raw image handed over by the presentation layer.
type Upload struct {
	Name     string
	MimeType string
	Data     []byte
}

// SaveAll writes every upload as its own blob and returns one storage key per
// upload, in input order. The first failure aborts the intake: blobs already
// written by this call are removed and the error names the failing image.
func SaveAll(ctx context.Context, store ImageStore, uploads []Upload) ([]string, error) {
	keys := make([]string, 0, len(uploads))
	for i, u := range uploads {
		key, err := store.Save(ctx, u.Name, u.MimeType, bytes.NewReader(u.Data))
		if err != nil {
			DeleteAll(ctx, store, keys)
			return nil, domain.NewErrorf(domain.ErrStorageFailed, "store images", err, "image %d %q", i+1, u.Name)
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// DeleteAll removes keys best-effort, logging failures. It runs even when ctx
// is already cancelled.
func DeleteAll(ctx context.Context, store ImageStore, keys []string) {
	for _, key := range keys {
		if err := store.Delete(context.WithoutCancel(ctx), key); err != nil {
			slog.Error("failed to remove image", "storage_key", key, "error", err)
		}
	}
}

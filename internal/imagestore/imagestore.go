package imagestore

import (
	"context"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ImageStore persists uploaded invoice images as immutable blobs addressed by
// an opaque storage key (the locator).
type ImageStore interface {
	Save(ctx context.Context, name, mimeType string, r io.Reader) (storageKey string, err error)
	Get(ctx context.Context, storageKey string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, storageKey string) error
}

const maxNameLen = 100

// UniqueName returns a storage name for an upload called name. The result is
// unique per call, keeps a readable form of the original name and contains
// only [A-Za-z0-9._-], so it never contains path separators or the image path
// delimiter.
func UniqueName(name, mimeType string) string {
	return uuid.NewString() + "_" + sanitizeName(name, mimeType)
}

func sanitizeName(name, mimeType string) string {
	base := filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	if base == "." || base == "/" {
		base = ""
	}

	var b strings.Builder
	for _, r := range base {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	clean := strings.Trim(b.String(), ".")
	if clean == "" {
		clean = "image" + MimeTypeToExt(mimeType)
	}
	if len(clean) > maxNameLen {
		clean = clean[len(clean)-maxNameLen:]
	}
	return clean
}

func MimeTypeToExt(mimeType string) string {
	switch mimeType {
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	case "image/heic", "image/heif":
		return ".heic"
	case "image/bmp":
		return ".bmp"
	case "image/tiff":
		return ".tiff"
	default:
		return ".jpg"
	}
}

func ExtToMimeType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	case ".heic", ".heif":
		return "image/heic"
	case ".bmp":
		return "image/bmp"
	case ".tif", ".tiff":
		return "image/tiff"
	default:
		return "image/jpeg"
	}
}

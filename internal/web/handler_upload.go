package web

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"

	"github.com/vbonduro/invoicescan/internal/imagestore"
)

const (
	maxUploadSize = 50 * 1024 * 1024 // 50 MB across all pages
	maxMemory     = 32 * 1024 * 1024
	uploadField   = "images"
)

// allowedImageTypes is the set of MIME types accepted for invoice pages.
// Types are sniffed from content; the client-supplied header is ignored.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
	"image/webp": true,
	"image/heic": true,
	"image/heif": true,
	"image/bmp":  true,
	"image/tiff": true,
}

// allowedImageMIME returns the detected MIME type and true if the data is an
// accepted image format, or ("", false) otherwise.
func allowedImageMIME(data []byte) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	mime := mimetype.Detect(data).String()
	if allowedImageTypes[mime] {
		return mime, true
	}
	return "", false
}

var errNoImages = errors.New("at least one image is required")

// readUploads reads every file posted under the images field.
func readUploads(r *http.Request) ([]imagestore.Upload, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, fmt.Errorf("failed to parse form: %w", err)
	}
	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		return nil, errNoImages
	}

	uploads := make([]imagestore.Upload, 0, len(files))
	for i, fh := range files {
		data, err := readFile(fh)
		if err != nil {
			return nil, fmt.Errorf("image %d %q: %w", i+1, fh.Filename, err)
		}
		mimeType, ok := allowedImageMIME(data)
		if !ok {
			return nil, fmt.Errorf("image %d %q: unsupported image format", i+1, fh.Filename)
		}
		uploads = append(uploads, imagestore.Upload{Name: fh.Filename, MimeType: mimeType, Data: data})
	}
	return uploads, nil
}

func readFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer closeWithLog(f, "upload file", slog.Default())

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	if err := s.renderPage(w,
		map[string]any{"ActiveNav": "upload"},
		"base.html", "pages/upload.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleProcessInvoice(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	uploads, err := readUploads(r)
	if err != nil {
		s.logger.Warn("rejected upload", "error", err)
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		s.renderError(w, status, err)
		return
	}

	inv, err := s.service.ProcessInvoice(r.Context(), uploads)
	if err != nil {
		s.logger.Error("process invoice failed", "images", len(uploads), "error", err)
		s.renderError(w, statusFor(err), err)
		return
	}

	http.Redirect(w, r, fmt.Sprintf("/invoices/%d", inv.ID), http.StatusSeeOther)
}

// closeWithLog closes c and logs any error, using label to identify the resource.
func closeWithLog(c io.Closer, label string, logger *slog.Logger) {
	if err := c.Close(); err != nil {
		logger.Error("failed to close resource", "label", label, "error", err)
	}
}

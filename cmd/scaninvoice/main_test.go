package main

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/invoicescan/internal/config"
	"github.com/vbonduro/invoicescan/internal/domain"
	"github.com/vbonduro/invoicescan/internal/logging"
)

const acmeReply = `{"supplier": "Acme", "invoice_date": "2024-01-05", "total_amount": 120.5, "tax": null,
"line_items": [{"description": "Widget", "quantity": 2, "unit_price": 60.25, "amount": 120.5}]}`

func writeJPEG(t *testing.T, path string) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, img, imaging.JPEG))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
}

func TestRunPrintsInvoiceAndLogsToGivenLogger(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"response": acmeReply, "done": true})
	}))
	t.Cleanup(ollama.Close)

	dir := t.TempDir()
	page := filepath.Join(dir, "page1.jpg")
	writeJPEG(t, page)

	cfg := &config.Config{
		DBPath:        filepath.Join(dir, "invoices.db"),
		ImageBackend:  "local",
		ImagePath:     filepath.Join(dir, "uploads"),
		VisionBackend: "ollama",
		OllamaHost:    ollama.URL,
		OllamaModel:   "llava",
		Args:          []string{page},
	}

	var logs, out bytes.Buffer
	require.NoError(t, run(context.Background(), cfg, logging.NewWithWriter(&logs, "info"), &out))

	var inv domain.Invoice
	require.NoError(t, json.Unmarshal(out.Bytes(), &inv))
	assert.Equal(t, "Acme", *inv.Supplier)
	require.Len(t, inv.LineItems, 1)
	assert.Equal(t, 120.5, *inv.LineItems[0].Amount)

	assert.Contains(t, logs.String(), "model call started")
	assert.Contains(t, logs.String(), "invoice saved")
}

func TestReadUploadsSniffsType(t *testing.T) {
	dir := t.TempDir()
	page := filepath.Join(dir, "scan")
	writeJPEG(t, page)

	uploads, err := readUploads([]string{page})
	require.NoError(t, err)
	require.Len(t, uploads, 1)
	assert.Equal(t, "scan", uploads[0].Name)
	assert.Equal(t, "image/jpeg", uploads[0].MimeType)

	_, err = readUploads([]string{filepath.Join(dir, "missing.jpg")})
	assert.ErrorIs(t, err, os.ErrNotExist)
}

package web

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/vbonduro/invoicescan/internal/domain"
	"github.com/vbonduro/invoicescan/internal/export"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *Server) handleListInvoices(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.ListInvoices(r.Context())
	if err != nil {
		s.logger.Error("list invoices failed", "error", err)
		s.renderError(w, statusFor(err), err)
		return
	}

	if err := s.renderPage(w,
		map[string]any{"Invoices": invoices, "ActiveNav": "invoices"},
		"base.html", "pages/invoices.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleInvoiceDetail(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}

	inv, err := s.service.GetInvoice(r.Context(), id)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.Error("get invoice failed", "invoice_id", id, "error", err)
		}
		s.renderError(w, statusFor(err), err)
		return
	}

	if err := s.renderPage(w,
		map[string]any{"Invoice": inv, "ActiveNav": "invoices"},
		"base.html", "pages/invoice_detail.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) handleInvoiceImage(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, "invalid invoice id", http.StatusBadRequest)
		return
	}
	n, err := strconv.Atoi(r.PathValue("n"))
	if err != nil {
		http.Error(w, "invalid image index", http.StatusBadRequest)
		return
	}

	reader, mimeType, err := s.service.OpenImage(r.Context(), id, n)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("open image failed", "invoice_id", id, "index", n, "error", err)
		http.Error(w, "failed to open image", http.StatusInternalServerError)
		return
	}
	defer closeWithLog(reader, "image reader", s.logger)

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Cache-Control", "private, max-age=86400, immutable")
	if _, err := io.Copy(w, reader); err != nil {
		s.logger.Error("write image failed", "invoice_id", id, "index", n, "error", err)
	}
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	invoices, err := s.service.ListInvoicesWithItems(r.Context())
	if err != nil {
		s.logger.Error("load invoices for export failed", "error", err)
		http.Error(w, "failed to load invoices", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteXLSX(&buf, invoices); err != nil {
		s.logger.Error("export failed", "error", err)
		http.Error(w, "failed to build export", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="invoices.xlsx"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Error("write export failed", "error", err)
	}
	s.logger.Info("export complete", "invoices", len(invoices), "bytes", buf.Len())
}

// parseID extracts the {id} path variable and returns it as int64.
func parseID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

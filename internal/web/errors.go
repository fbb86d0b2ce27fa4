package web

import (
	"errors"
	"net/http"

	"github.com/vbonduro/invoicescan/internal/domain"
)

// statusFor maps a pipeline error kind to the HTTP status shown to the operator.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrImageLoadFailed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRemoteCallFailed):
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrInvalidJSON):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// renderError shows err's message verbatim. Messages are credential-free by
// the time they reach this layer.
func (s *Server) renderError(w http.ResponseWriter, status int, err error) {
	data := map[string]any{
		"Status":    status,
		"Title":     http.StatusText(status),
		"Message":   err.Error(),
		"ActiveNav": "",
	}
	if rerr := s.renderPageStatus(w, status, data, "base.html", "pages/error.html"); rerr != nil {
		s.logger.Error("render error page failed", "error", rerr)
	}
}

package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/aretw0/atsim/pkg/domain"
	"github.com/aretw0/atsim/pkg/stream"
	"github.com/go-chi/render"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("Request failed", "path", r.URL.Path, "err", err)
	}
	render.Status(r, status)
	render.JSON(w, r, &ErrorResponse{Error: err.Error()})
}

// paramError reports parameters the generated wrappers could not bind.
func (s *Server) paramError(w http.ResponseWriter, r *http.Request, err error) {
	s.renderError(w, r, fmt.Errorf("%w: %v", domain.ErrInvalidArgument, err))
}

// closeReason maps a subscription failure to the reason sent to the peer.
func closeReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidToken):
		return reasonInvalidAuth
	case errors.Is(err, domain.ErrNotFound):
		return reasonNotFound
	case errors.Is(err, domain.ErrForbidden):
		return reasonForbidden
	case errors.Is(err, stream.ErrClosed):
		return reasonShutdown
	default:
		return reasonInternal
	}
}

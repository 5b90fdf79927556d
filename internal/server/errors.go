package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/hyperjump/kotae/internal/models"
)

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrLoader):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrSourceUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, models.ErrModelUnavailable), errors.Is(err, models.ErrRetrievalUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrInvalidConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

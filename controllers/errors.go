package controllers

import (
	"errors"
	"net/http"

	"github.com/ucfc/fulfillment-app/services"
)

// statusForError maps pipeline errors to HTTP status codes. Everything in
// the taxonomy surfaces as a user-visible rejection; only unknown errors
// become 500s.
func statusForError(err error) int {
	switch {
	case errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAlreadyPickedUp):
		return http.StatusConflict
	case errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrOrderClosed),
		errors.Is(err, services.ErrTamperedCredential),
		errors.Is(err, services.ErrExpiredCredential):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

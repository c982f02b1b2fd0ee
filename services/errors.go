package services

import (
	"errors"
)

// Pipeline error taxonomy. State-machine and credential errors are returned
// to the caller and surfaced as rejection messages; delivery errors stay
// local to the workers until the retry budget is spent.
var (
	ErrInvalidTransition  = errors.New("status transition not allowed")
	ErrOrderClosed        = errors.New("order is in a terminal state")
	ErrTamperedCredential = errors.New("pickup credential failed verification")
	ErrExpiredCredential  = errors.New("pickup credential expired")
	ErrAlreadyPickedUp    = errors.New("order already picked up")
	ErrChannelUnavailable = errors.New("notification channel not configured")
	ErrDeliveryFailed     = errors.New("notification delivery failed")
	ErrOrderNotFound      = errors.New("order not found")
)

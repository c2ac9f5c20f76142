package domain

import "errors"

// Error taxonomy surfaced to callers. Repositories and services return
// these sentinels (optionally wrapped with detail); the HTTP layer maps
// them to status codes. None of them is retried automatically.
var (
	ErrValidation        = errors.New("validation failed")
	ErrSlotFull          = errors.New("slot is fully booked")
	ErrSlotNotFound      = errors.New("slot not found or unavailable")
	ErrInsufficientFunds = errors.New("insufficient wallet balance")
	ErrUnauthorized      = errors.New("not allowed to act on this booking")
	ErrInvalidTransition = errors.New("invalid state transition")
	ErrNotFound          = errors.New("not found")
)

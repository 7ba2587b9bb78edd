package service

import "errors"

// Domain errors returned by the inventory and reservation services.
// Handlers map them to HTTP statuses with errors.Is.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrInvalidPhone = fmtInvalid("invalid phone number format")
	ErrInvalidDate  = fmtInvalid("invalid date format")
	ErrInvalidRange = fmtInvalid("invalid hour range")

	ErrNotFound          = errors.New("not found")
	ErrForbidden         = errors.New("forbidden")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrSlotUnavailable   = errors.New("this time slot is not available")
	ErrSlotConflict      = errors.New("this time slot has just been booked, please choose another")
	ErrSlotOccupied      = errors.New("slot has an active booking")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// invalidError is an input error with its own message that still matches
// ErrInvalidInput.
type invalidError struct{ msg string }

func fmtInvalid(msg string) error { return &invalidError{msg: msg} }

func (e *invalidError) Error() string { return e.msg }
func (e *invalidError) Unwrap() error { return ErrInvalidInput }

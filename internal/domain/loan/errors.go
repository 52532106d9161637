package loan

import "errors"

var (
	ErrNotFound = errors.New("loan not found")
	// ErrInvalidTransition signals an operation against a loan in the wrong
	// state. It is a programming or race bug, not a user error.
	ErrInvalidTransition = errors.New("invalid loan state transition")
	ErrValidation        = errors.New("invalid loan input")
	ErrActiveLoanExists  = errors.New("borrower already has an active loan")
)

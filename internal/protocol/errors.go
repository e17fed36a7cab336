package protocol

import "errors"

// Failure taxonomy of the contract module. Every entry point aborts with one
// of these, leaving state untouched
var (
	ErrInvalidParameters  = errors.New("invalid parameters")
	ErrInvalidState       = errors.New("invalid state")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrUnauthorizedOracle = errors.New("unauthorized oracle")
	ErrAlreadySettled     = errors.New("already settled")

	ErrProjectNotFound    = errors.New("project not found")
	ErrSubmissionNotFound = errors.New("proof submission not found")
	ErrDonationNotFound   = errors.New("donation not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
)

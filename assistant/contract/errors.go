package contract

import "errors"

var (
	ErrValidation = errors.New("validation failed")

	ErrNotFound           = errors.New("tenant not found")
	ErrGatewayUnavailable = errors.New("tenant data gateway unavailable")

	ErrCompletionTimeout     = errors.New("completion timed out")
	ErrCompletionRejected    = errors.New("completion rejected by provider")
	ErrCompletionUnavailable = errors.New("completion provider unavailable")

	ErrPersistenceFailure = errors.New("transcript persistence failed")
)

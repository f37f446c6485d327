package treasury

import "errors"

var (
	ErrUnauthorized        = errors.New("treasury: unauthorized")
	ErrInsufficientReserve = errors.New("treasury: credit exceeds reward reserve")
	ErrInvalidAmount       = errors.New("treasury: amount must be positive")
	ErrInvalidParams       = errors.New("treasury: invalid parameters")
	ErrTransferFailed      = errors.New("treasury: reward transfer failed")
)

var (
	errNilState  = errors.New("treasury: state not configured")
	errNilLedger = errors.New("treasury: asset ledger not configured")
)

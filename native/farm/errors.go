package farm

import "errors"

var (
	ErrInvalidCategory     = errors.New("farm: invalid category")
	ErrInvalidPool         = errors.New("farm: invalid pool")
	ErrDuplicateAsset      = errors.New("farm: asset already bound to a pool")
	ErrParameterOutOfRange = errors.New("farm: parameter out of range")
	ErrPoolDisabled        = errors.New("farm: pool disabled")
	ErrInsufficientStake   = errors.New("farm: insufficient stake")
	ErrUnauthorized        = errors.New("farm: unauthorized")
	ErrInvalidAmount       = errors.New("farm: amount must be positive")
	ErrTransferFailed      = errors.New("farm: asset transfer failed")
)

var (
	errNilState    = errors.New("farm: state not configured")
	errNilLedger   = errors.New("farm: asset ledger not configured")
	errNilSink     = errors.New("farm: reward sink not configured")
	errNilEmission = errors.New("farm: emission schedule not configured")
)

package ledger

import "errors"

var (
	// ErrInsufficientBalance indicates the sender holds less than the amount.
	ErrInsufficientBalance = errors.New("ledger: insufficient balance")

	// ErrTransferRejected indicates the receiving address refuses native value.
	ErrTransferRejected = errors.New("ledger: transfer rejected by receiver")

	// ErrUnknownToken indicates the token has not been registered.
	ErrUnknownToken = errors.New("ledger: unknown token")

	// ErrTokenPaused indicates the token currently refuses transfers.
	ErrTokenPaused = errors.New("ledger: token transfers paused")

	// ErrBalanceOverflow indicates a credit would exceed 2^256-1.
	ErrBalanceOverflow = errors.New("ledger: balance overflow")

	// ErrNilAmount indicates a nil amount was passed.
	ErrNilAmount = errors.New("ledger: amount is nil")
)

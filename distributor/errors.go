package distributor

import (
	"errors"

	"github.com/bitfsorg/librevsplit-go/revshare"
)

var (
	// ErrUnauthorized is wrapped by every role check failure.
	ErrUnauthorized = errors.New("distributor: unauthorized")

	// ErrNotOwner indicates the caller is not the instance owner.
	ErrNotOwner = newRoleError(ErrUnauthorized, "caller is not the owner")

	// ErrNotController indicates the caller is not the controller.
	ErrNotController = newRoleError(ErrUnauthorized, "caller is not the controller")

	// ErrNotDistributor indicates the caller does not hold the distributor role.
	ErrNotDistributor = newRoleError(ErrUnauthorized, "caller is not a distributor")

	// ErrAlreadyInitialized indicates the one-shot initializer already ran
	// or is disabled.
	ErrAlreadyInitialized = errors.New("distributor: already initialized")

	// ErrNotInitialized indicates an operation on an instance that was never initialized.
	ErrNotInitialized = errors.New("distributor: not initialized")

	// ErrZeroOwner indicates an attempt to set the null address as owner.
	ErrZeroOwner = errors.New("distributor: owner is the zero address")

	// ErrImmutableRecipients indicates recipient tables are frozen.
	ErrImmutableRecipients = errors.New("distributor: recipients are immutable")

	// ErrAlreadyImmutable indicates the instance was already frozen.
	ErrAlreadyImmutable = errors.New("distributor: recipients already immutable")

	// ErrRenounceDisabled indicates ownership renunciation was attempted.
	ErrRenounceDisabled = errors.New("distributor: renouncing ownership is disabled")

	// ErrInsufficientBalance indicates the requested amount exceeds the instance balance.
	ErrInsufficientBalance = errors.New("distributor: insufficient balance")

	// ErrBalanceTooLow indicates the amount or balance is under the dust floor.
	ErrBalanceTooLow = errors.New("distributor: balance too low")

	// ErrTransferFailed indicates a downstream value or token transfer failed.
	ErrTransferFailed = errors.New("distributor: transfer failed")

	// ErrInvalidPayload indicates a malformed deposit payload.
	ErrInvalidPayload = errors.New("distributor: invalid payload")
)

// Structural errors come from recipient-table validation.
var (
	ErrLengthMismatch    = revshare.ErrLengthMismatch
	ErrNullRecipient     = revshare.ErrNullRecipient
	ErrInvalidPercentage = revshare.ErrInvalidPercentage
	ErrInvalidFee        = revshare.ErrInvalidFee
)

// roleError keeps a distinct identity while unwrapping to ErrUnauthorized.
type roleError struct {
	parent error
	msg    string
}

func (e *roleError) Error() string { return e.parent.Error() + ": " + e.msg }
func (e *roleError) Unwrap() error { return e.parent }

func newRoleError(parent error, msg string) error {
	return &roleError{parent: parent, msg: msg}
}

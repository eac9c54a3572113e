package factory

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is wrapped by every role check failure.
	ErrUnauthorized = errors.New("factory: unauthorized")

	// ErrNotOwner indicates the caller is not the factory owner.
	ErrNotOwner = fmt.Errorf("%w: caller is not the owner", ErrUnauthorized)

	// ErrInvalidFeePercentage indicates a fee rate above 10,000,000 (100%).
	ErrInvalidFeePercentage = errors.New("factory: invalid fee percentage")

	// ErrCloneCollision indicates an instance already occupies the computed address.
	ErrCloneCollision = errors.New("factory: clone address already in use")

	// ErrInstanceNotFound indicates no instance is registered at the address.
	ErrInstanceNotFound = errors.New("factory: instance not found")

	// ErrZeroAddress indicates a required address is the null address.
	ErrZeroAddress = errors.New("factory: zero address")
)

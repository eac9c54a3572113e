package storage

import "errors"

var (
	// ErrNotFound indicates nothing has been saved under the requested key.
	ErrNotFound = errors.New("storage: not found")

	// ErrNilParam indicates a nil state or snapshot was passed.
	ErrNilParam = errors.New("storage: nil parameter")

	// ErrCorruptLog indicates the event log hash chain does not verify.
	ErrCorruptLog = errors.New("storage: event log hash chain broken")

	// ErrIOFailure indicates the backing database failed.
	ErrIOFailure = errors.New("storage: I/O failure")
)

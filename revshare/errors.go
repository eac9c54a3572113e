package revshare

import "errors"

var (
	// ErrInvalidTableData indicates the serialized recipient table is malformed.
	ErrInvalidTableData = errors.New("revshare: invalid table data")

	// ErrTooManyEntries indicates a table has more rows than the encoding allows.
	ErrTooManyEntries = errors.New("revshare: too many table entries")

	// ErrLengthMismatch indicates the recipient and percentage lists differ in length.
	ErrLengthMismatch = errors.New("revshare: recipients and percentages length mismatch")

	// ErrNullRecipient indicates a recipient is the zero address.
	ErrNullRecipient = errors.New("revshare: null recipient address")

	// ErrInvalidPercentage indicates the percentages do not sum to 100%.
	ErrInvalidPercentage = errors.New("revshare: percentages must sum to 10000000")

	// ErrInvalidFee indicates a fee rate above 100%.
	ErrInvalidFee = errors.New("revshare: fee rate exceeds 10000000")

	// ErrConservationViolation indicates a plan pays out more than it takes in.
	ErrConservationViolation = errors.New("revshare: distribution conservation violated")
)

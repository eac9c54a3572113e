package revshare

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// BuildTable validates a recipient list and returns it as a table for index.
// Checks run in a fixed order: length, null address, then the percentage
// total, which must be exactly PercentageScale. An address may appear more
// than once; each row is paid separately.
func BuildTable(index uint64, addrs []common.Address, percentages []uint64) (*Table, error) {
	if len(addrs) != len(percentages) {
		return nil, fmt.Errorf("%w: %d recipients, %d percentages", ErrLengthMismatch, len(addrs), len(percentages))
	}

	for i, addr := range addrs {
		if addr == (common.Address{}) {
			return nil, fmt.Errorf("%w: position %d", ErrNullRecipient, i)
		}
	}

	var total uint64
	for _, p := range percentages {
		// total never exceeds PercentageScale here, so the subtraction is safe.
		if p > PercentageScale-total {
			return nil, fmt.Errorf("%w: total exceeds %d", ErrInvalidPercentage, PercentageScale)
		}
		total += p
	}
	if total != PercentageScale {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidPercentage, total)
	}

	table := &Table{Index: index, Recipients: make([]Recipient, len(addrs))}
	for i := range addrs {
		table.Recipients[i] = Recipient{Address: addrs[i], Percentage: percentages[i]}
	}
	return table, nil
}

// ValidatePlan checks that a plan matches a fresh computation for the same
// inputs and that fee plus payouts never exceed the requested amount.
func ValidatePlan(plan *Plan, recipients []Recipient) error {
	if len(plan.Payouts) != len(recipients) {
		return fmt.Errorf("payout count %d != recipient count %d", len(plan.Payouts), len(recipients))
	}

	expected, err := PlanDistribution(plan.Amount, plan.FeeBps, recipients)
	if err != nil {
		return err
	}
	if !plan.Fee.Eq(expected.Fee) {
		return fmt.Errorf("fee %s != expected %s", plan.Fee.Dec(), expected.Fee.Dec())
	}
	for i := range plan.Payouts {
		if plan.Payouts[i].Address != expected.Payouts[i].Address {
			return fmt.Errorf("payout %d: address mismatch", i)
		}
		if !plan.Payouts[i].Amount.Eq(expected.Payouts[i].Amount) {
			return fmt.Errorf("payout %d: amount %s != expected %s", i,
				plan.Payouts[i].Amount.Dec(), expected.Payouts[i].Amount.Dec())
		}
	}

	out, overflow := new(uint256.Int).AddOverflow(plan.Fee, plan.Paid())
	if overflow || out.Gt(plan.Amount) {
		return fmt.Errorf("%w: out=%s amount=%s", ErrConservationViolation, out.Dec(), plan.Amount.Dec())
	}
	return nil
}

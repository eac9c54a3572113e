package revshare

import (
	"fmt"

	"github.com/holiman/uint256"
)

// ComputeFee returns floor(amount * feeBps / PercentageScale).
// The product is computed at 512 bits, so it never wraps.
func ComputeFee(amount *uint256.Int, feeBps uint64) *uint256.Int {
	fee, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(feeBps), scale)
	return fee
}

// Share returns floor(amount * percentage / PercentageScale).
func Share(amount *uint256.Int, percentage uint64) *uint256.Int {
	out, _ := new(uint256.Int).MulDivOverflow(amount, uint256.NewInt(percentage), scale)
	return out
}

// PlanDistribution computes the platform fee and per-recipient payouts for
// amount. Every split uses floor division; whatever rounding leaves behind is
// reported by Plan.Dust and is never assigned to a recipient.
func PlanDistribution(amount *uint256.Int, feeBps uint64, recipients []Recipient) (*Plan, error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	if feeBps > PercentageScale {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFee, feeBps)
	}

	fee := ComputeFee(amount, feeBps)
	remaining := new(uint256.Int).Sub(amount, fee)

	payouts := make([]Payout, len(recipients))
	for i, r := range recipients {
		payouts[i] = Payout{Address: r.Address, Amount: Share(remaining, r.Percentage)}
	}

	return &Plan{
		Amount:    amount.Clone(),
		FeeBps:    feeBps,
		Fee:       fee,
		Remaining: remaining,
		Payouts:   payouts,
	}, nil
}

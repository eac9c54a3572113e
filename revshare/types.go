package revshare

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

const (
	// PercentageScale is the fixed-point denominator for percentages and fee
	// rates: 10,000,000 parts equal 100%.
	PercentageScale uint64 = 10_000_000

	// DustFloor is the smallest post-fee amount a native distribution accepts.
	// It shares its value with PercentageScale; whether that is a deliberate
	// currency minimum or a reuse of the percentage scale is unresolved, so the
	// literal value is kept.
	DustFloor uint64 = 10_000_000
)

var (
	scale     = uint256.NewInt(PercentageScale)
	dustFloor = uint256.NewInt(DustFloor)
)

// Recipient is one row of a recipient table.
type Recipient struct {
	Address    common.Address // payout destination
	Percentage uint64         // parts-per-10,000,000
}

// Table is the ordered recipient configuration stored under one index.
type Table struct {
	Index      uint64
	Recipients []Recipient
}

// Len returns the number of recipients.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Recipients)
}

// FindRecipient returns the position and row of the first occurrence of addr,
// or -1 if not found.
func (t *Table) FindRecipient(addr common.Address) (int, *Recipient) {
	if t == nil {
		return -1, nil
	}
	for i := range t.Recipients {
		if t.Recipients[i].Address == addr {
			return i, &t.Recipients[i]
		}
	}
	return -1, nil
}

// Percentage returns the combined share of every row paying addr, or zero
// when addr is not a recipient.
func (t *Table) Percentage(addr common.Address) uint64 {
	if t == nil {
		return 0
	}
	var total uint64
	for _, r := range t.Recipients {
		if r.Address == addr {
			total += r.Percentage
		}
	}
	return total
}

// Addresses returns the recipient addresses in table order.
func (t *Table) Addresses() []common.Address {
	out := make([]common.Address, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[i] = t.Recipients[i].Address
	}
	return out
}

// Percentages returns the recipient percentages in table order.
func (t *Table) Percentages() []uint64 {
	out := make([]uint64, t.Len())
	for i := 0; i < t.Len(); i++ {
		out[i] = t.Recipients[i].Percentage
	}
	return out
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	cpy := &Table{Index: t.Index, Recipients: make([]Recipient, len(t.Recipients))}
	copy(cpy.Recipients, t.Recipients)
	return cpy
}

// Payout is a single transfer computed for a distribution.
type Payout struct {
	Address common.Address
	Amount  *uint256.Int
}

// Plan is the full breakdown of one distribution: the platform fee taken
// off the top and the per-recipient payouts of what remains.
type Plan struct {
	Amount    *uint256.Int // requested amount
	FeeBps    uint64       // fee rate used
	Fee       *uint256.Int // floor(Amount * FeeBps / PercentageScale)
	Remaining *uint256.Int // Amount - Fee
	Payouts   []Payout
}

// Paid returns the sum of all recipient payouts.
func (p *Plan) Paid() *uint256.Int {
	total := new(uint256.Int)
	for _, po := range p.Payouts {
		total.Add(total, po.Amount)
	}
	return total
}

// Dust returns the rounding remainder that stays with the instance.
func (p *Plan) Dust() *uint256.Int {
	return new(uint256.Int).Sub(p.Remaining, p.Paid())
}

// BelowDustFloor reports whether the post-fee amount is under DustFloor.
func (p *Plan) BelowDustFloor() bool {
	return p.Remaining.Lt(dustFloor)
}

package distributor

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/holiman/uint256"
)

// PayloadSize is the length of an ABI-encoded (uint256 index, uint256 amount) tuple.
const PayloadSize = 64

var payloadArgs abi.Arguments

func init() {
	u256, err := abi.NewType("uint256", "", nil)
	if err != nil {
		panic(err)
	}
	payloadArgs = abi.Arguments{
		{Name: "index", Type: u256},
		{Name: "amount", Type: u256},
	}
}

// EncodePayload ABI-encodes a deposit payload.
func EncodePayload(index uint64, amount *uint256.Int) ([]byte, error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	return payloadArgs.Pack(new(big.Int).SetUint64(index), amount.ToBig())
}

// DecodePayload parses a deposit payload. Trailing bytes past the tuple are
// ignored; an index that does not fit in 64 bits is rejected.
func DecodePayload(data []byte) (uint64, *uint256.Int, error) {
	if len(data) < PayloadSize {
		return 0, nil, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidPayload, len(data), PayloadSize)
	}
	values, err := payloadArgs.Unpack(data)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}
	index, ok := values[0].(*big.Int)
	if !ok || !index.IsUint64() {
		return 0, nil, fmt.Errorf("%w: index out of range", ErrInvalidPayload)
	}
	rawAmount, ok := values[1].(*big.Int)
	if !ok {
		return 0, nil, fmt.Errorf("%w: amount", ErrInvalidPayload)
	}
	amount, overflow := uint256.FromBig(rawAmount)
	if overflow {
		return 0, nil, fmt.Errorf("%w: amount out of range", ErrInvalidPayload)
	}
	return index.Uint64(), amount, nil
}

package factory

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// Minimal proxy (EIP-1167) init code around a 20-byte implementation address.
var (
	cloneCodePrefix = hexutil.MustDecode("0x3d602d80600a3d3981f3363d3d373d3d3d363d73")
	cloneCodeSuffix = hexutil.MustDecode("0x5af43d82803e903d91602b57fd5bf3")
)

var saltArgs abi.Arguments

func init() {
	mustType := func(name string) abi.Type {
		typ, err := abi.NewType(name, "", nil)
		if err != nil {
			panic(err)
		}
		return typ
	}
	addr, addrs := mustType("address"), mustType("address[]")
	boolean := mustType("bool")

	saltArgs = abi.Arguments{
		{Name: "controller", Type: addr},
		{Name: "distributors", Type: addrs},
		{Name: "isImmutableRecipients", Type: boolean},
		{Name: "isAutoNativeDistribution", Type: boolean},
		{Name: "minAutoDistributionAmount", Type: mustType("uint256")},
		{Name: "recipients", Type: addrs},
		{Name: "percentages", Type: mustType("uint256[]")},
		{Name: "creationId", Type: mustType("bytes32")},
		{Name: "deployer", Type: addr},
	}
}

// CloneInitCode returns the minimal proxy creation code delegating to template.
func CloneInitCode(template common.Address) []byte {
	code := make([]byte, 0, len(cloneCodePrefix)+common.AddressLength+len(cloneCodeSuffix))
	code = append(code, cloneCodePrefix...)
	code = append(code, template.Bytes()...)
	return append(code, cloneCodeSuffix...)
}

// Salt hashes the ABI encoding of every creation parameter together with
// the deployer.
func Salt(p CreationParams, deployer common.Address) ([32]byte, error) {
	minAuto := p.MinAutoDistributionAmount
	if minAuto == nil {
		minAuto = new(uint256.Int)
	}
	pcts := make([]*big.Int, len(p.Percentages))
	for i, pct := range p.Percentages {
		pcts[i] = new(big.Int).SetUint64(pct)
	}
	distributors := p.Distributors
	if distributors == nil {
		distributors = []common.Address{}
	}
	recipients := p.Recipients
	if recipients == nil {
		recipients = []common.Address{}
	}

	encoded, err := saltArgs.Pack(
		p.Controller,
		distributors,
		p.IsImmutableRecipients,
		p.IsAutoNativeDistribution,
		minAuto.ToBig(),
		recipients,
		pcts,
		p.CreationID,
		deployer,
	)
	if err != nil {
		return [32]byte{}, err
	}
	return crypto.Keccak256Hash(encoded), nil
}

// predictDeterministic returns the CREATE2 address of a clone of template
// deployed by factory with salt.
func predictDeterministic(factory, template common.Address, salt [32]byte) common.Address {
	return crypto.CreateAddress2(factory, salt, crypto.Keccak256(CloneInitCode(template)))
}

// predictSequential returns the CREATE address for the factory's nonce. The
// nonce counts every clone, deterministic ones included.
func predictSequential(factory common.Address, nonce uint64) common.Address {
	return crypto.CreateAddress(factory, nonce)
}

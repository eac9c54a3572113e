// Package distributor implements one revenue-sharing instance: its role
// sets, recipient tables and the fee-aware routines that split native value
// and token balances among recipients.
//
// Every balance-affecting operation runs inside ledger.Ledger.Atomic and
// either completes or leaves the ledger and the instance exactly as they
// were. Events are emitted only after a successful commit.
package distributor

import (
	"bytes"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/ledger"
	"github.com/bitfsorg/librevsplit-go/logger"
	"github.com/bitfsorg/librevsplit-go/revshare"
)

// FeeWalletProvider exposes the platform wallet that receives fees. It is
// read at the moment of every distribution.
type FeeWalletProvider interface {
	PlatformWallet() common.Address
}

// InitParams are the arguments of the one-shot initializer.
type InitParams struct {
	Owner                     common.Address
	Controller                common.Address
	Distributors              []common.Address
	IsImmutableRecipients     bool
	IsAutoNativeDistribution  bool
	MinAutoDistributionAmount *uint256.Int
	PlatformFeeBps            uint64
	Factory                   common.Address
	FeeWallet                 FeeWalletProvider
	Recipients                []common.Address
	Percentages               []uint64
}

// Instance is a single distributor clone.
type Instance struct {
	mu sync.Mutex

	address common.Address
	ledger  ledger.Ledger
	sink    event.Sink

	initialized bool
	disabled    bool // template: initializer permanently disabled

	owner        common.Address
	controller   common.Address
	distributors map[common.Address]bool
	immutable    bool
	auto         bool
	minAuto      *uint256.Int
	feeBps       uint64
	factory      common.Address
	feeWallet    FeeWalletProvider
	tables       map[uint64]*revshare.Table
}

// New creates an uninitialized instance at addr. A nil sink discards events.
func New(addr common.Address, l ledger.Ledger, sink event.Sink) *Instance {
	if sink == nil {
		sink = event.Discard
	}
	return &Instance{
		address:      addr,
		ledger:       l,
		sink:         sink,
		distributors: make(map[common.Address]bool),
		minAuto:      new(uint256.Int),
		tables:       make(map[uint64]*revshare.Table),
	}
}

// NewTemplate creates the canonical template instance. Its initializer is
// disabled, so it can only serve as a clone source.
func NewTemplate(addr common.Address, l ledger.Ledger) *Instance {
	inst := New(addr, l, nil)
	inst.disabled = true
	return inst
}

// Initialize runs the one-shot initializer. The initial recipients are
// installed at index 0 through the same validation as SetRecipients.
func (i *Instance) Initialize(p InitParams) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.initialized || i.disabled {
		return ErrAlreadyInitialized
	}
	if p.Owner == (common.Address{}) {
		return ErrZeroOwner
	}
	if p.PlatformFeeBps > revshare.PercentageScale {
		return fmt.Errorf("%w: %d", ErrInvalidFee, p.PlatformFeeBps)
	}
	table, err := revshare.BuildTable(0, p.Recipients, p.Percentages)
	if err != nil {
		return err
	}

	i.initialized = true
	i.owner = p.Owner
	i.controller = p.Controller
	for _, d := range p.Distributors {
		i.distributors[d] = true
	}
	i.auto = p.IsAutoNativeDistribution
	i.minAuto = new(uint256.Int)
	if p.MinAutoDistributionAmount != nil {
		i.minAuto.Set(p.MinAutoDistributionAmount)
	}
	i.feeBps = p.PlatformFeeBps
	i.factory = p.Factory
	i.feeWallet = p.FeeWallet
	i.tables[0] = table
	i.immutable = p.IsImmutableRecipients

	events := []event.Event{
		event.OwnershipTransferred{New: p.Owner},
		recipientsSet(table),
	}
	if i.immutable {
		events = append(events, event.ImmutableRecipientsSet{Immutable: true})
	}
	i.sink.Emit(i.address, events...)

	i.log().Info("instance initialized",
		zap.String("owner", p.Owner.Hex()),
		zap.String("controller", p.Controller.Hex()),
		zap.Int("recipients", table.Len()),
		zap.Uint64("fee_bps", p.PlatformFeeBps))
	return nil
}

// ---------------------------------------------------------------------------
// Accessors
// ---------------------------------------------------------------------------

func (i *Instance) Address() common.Address { return i.address }

func (i *Instance) Initialized() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.initialized
}

func (i *Instance) Owner() common.Address {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.owner
}

func (i *Instance) Controller() common.Address {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.controller
}

func (i *Instance) IsDistributor(addr common.Address) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.distributors[addr]
}

// Distributors returns the distributor set in address order.
func (i *Instance) Distributors() []common.Address {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.distributorList()
}

func (i *Instance) IsImmutableRecipients() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.immutable
}

func (i *Instance) IsAutoNativeDistribution() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.auto
}

func (i *Instance) MinAutoDistributionAmount() *uint256.Int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.minAuto.Clone()
}

// PlatformFee returns the fee rate snapshotted at initialization.
func (i *Instance) PlatformFee() uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.feeBps
}

// Factory returns the address of the factory that created the instance.
func (i *Instance) Factory() common.Address {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.factory
}

// Balance returns the instance's native balance.
func (i *Instance) Balance() *uint256.Int {
	return i.ledger.Balance(i.address)
}

// TokenBalance returns the instance's balance of token.
func (i *Instance) TokenBalance(token common.Address) (*uint256.Int, error) {
	return i.ledger.TokenBalance(token, i.address)
}

func (i *Instance) distributorList() []common.Address {
	out := make([]common.Address, 0, len(i.distributors))
	for d, ok := range i.distributors {
		if ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(a, b int) bool {
		return bytes.Compare(out[a][:], out[b][:]) < 0
	})
	return out
}

func (i *Instance) requireInitialized() error {
	if !i.initialized {
		return ErrNotInitialized
	}
	return nil
}

func (i *Instance) log() *zap.Logger {
	return logger.Named("distributor").With(zap.String("instance", i.address.Hex()))
}

func recipientsSet(t *revshare.Table) event.RecipientsSet {
	return event.RecipientsSet{
		Index:       t.Index,
		Recipients:  t.Addresses(),
		Percentages: t.Percentages(),
	}
}

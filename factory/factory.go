// Package factory deploys distributor instances as clones of a template and
// owns the platform fee configuration they consult.
//
// A zero creation id yields a sequential clone whose address depends on the
// factory nonce. Any other id yields a deterministic clone whose address is
// derived from the creation parameters and the caller, and which can be
// computed ahead of time with PredictAddress.
package factory

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/ledger"
	"github.com/bitfsorg/librevsplit-go/logger"
	"github.com/bitfsorg/librevsplit-go/metrics"
	"github.com/bitfsorg/librevsplit-go/revshare"
)

// Version tags every creation record with the template generation.
const Version uint64 = 1

// Config describes a factory deployment.
type Config struct {
	Address        common.Address
	Owner          common.Address
	Template       common.Address
	PlatformFeeBps uint64
	PlatformWallet common.Address
}

// CreationParams are the caller-supplied fields of a new instance.
type CreationParams struct {
	Controller                common.Address
	Distributors              []common.Address
	IsImmutableRecipients     bool
	IsAutoNativeDistribution  bool
	MinAutoDistributionAmount *uint256.Int
	Recipients                []common.Address
	Percentages               []uint64
	CreationID                [32]byte
}

// Deterministic reports whether the params request a content-addressed clone.
func (p CreationParams) Deterministic() bool {
	return p.CreationID != [32]byte{}
}

// Factory is a clone factory with its instance registry.
type Factory struct {
	mu sync.RWMutex

	address  common.Address
	owner    common.Address
	template *distributor.Instance
	feeBps   uint64
	wallet   common.Address
	nonce    uint64

	ledger    ledger.Ledger
	sink      event.Sink
	instances map[common.Address]*distributor.Instance
	order     []common.Address
}

// Compile-time interface check.
var _ distributor.FeeWalletProvider = (*Factory)(nil)

// New creates a factory. A nil sink discards events.
func New(cfg Config, l ledger.Ledger, sink event.Sink) (*Factory, error) {
	if cfg.PlatformFeeBps > revshare.PercentageScale {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFeePercentage, cfg.PlatformFeeBps)
	}
	switch {
	case cfg.Address == (common.Address{}):
		return nil, fmt.Errorf("%w: factory address", ErrZeroAddress)
	case cfg.Owner == (common.Address{}):
		return nil, fmt.Errorf("%w: owner", ErrZeroAddress)
	case cfg.Template == (common.Address{}):
		return nil, fmt.Errorf("%w: template", ErrZeroAddress)
	}
	if sink == nil {
		sink = event.Discard
	}
	return &Factory{
		address:   cfg.Address,
		owner:     cfg.Owner,
		template:  distributor.NewTemplate(cfg.Template, l),
		feeBps:    cfg.PlatformFeeBps,
		wallet:    cfg.PlatformWallet,
		nonce:     1,
		ledger:    l,
		sink:      sink,
		instances: make(map[common.Address]*distributor.Instance),
	}, nil
}

// PredictAddress returns the address a deterministic clone created by
// deployer with params would occupy. It does not touch factory state.
func (f *Factory) PredictAddress(params CreationParams, deployer common.Address) (common.Address, error) {
	salt, err := Salt(params, deployer)
	if err != nil {
		return common.Address{}, fmt.Errorf("factory: salt: %w", err)
	}
	return predictDeterministic(f.address, f.template.Address(), salt), nil
}

// CreateInstance deploys and initializes a new instance owned by caller.
// The instance snapshots the current platform fee and looks the platform
// wallet up from the factory on every distribution.
func (f *Factory) CreateInstance(caller common.Address, params CreationParams) (common.Address, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	mode := metrics.ModeSequential
	var addr common.Address
	if params.Deterministic() {
		mode = metrics.ModeDeterministic
		predicted, err := f.PredictAddress(params, caller)
		if err != nil {
			return common.Address{}, err
		}
		addr = predicted
	} else {
		addr = predictSequential(f.address, f.nonce)
	}

	if _, taken := f.instances[addr]; taken || addr == f.template.Address() {
		return common.Address{}, fmt.Errorf("%w: %s", ErrCloneCollision, addr.Hex())
	}

	inst := distributor.New(addr, f.ledger, f.sink)
	err := inst.Initialize(distributor.InitParams{
		Owner:                     caller,
		Controller:                params.Controller,
		Distributors:              params.Distributors,
		IsImmutableRecipients:     params.IsImmutableRecipients,
		IsAutoNativeDistribution:  params.IsAutoNativeDistribution,
		MinAutoDistributionAmount: params.MinAutoDistributionAmount,
		PlatformFeeBps:            f.feeBps,
		Factory:                   f.address,
		FeeWallet:                 f,
		Recipients:                params.Recipients,
		Percentages:               params.Percentages,
	})
	if err != nil {
		return common.Address{}, err
	}

	// CREATE and CREATE2 both consume a deployer nonce.
	f.nonce++
	f.instances[addr] = inst
	f.order = append(f.order, addr)

	minAuto := new(uint256.Int)
	if params.MinAutoDistributionAmount != nil {
		minAuto.Set(params.MinAutoDistributionAmount)
	}
	distributors := make([]common.Address, len(params.Distributors))
	copy(distributors, params.Distributors)
	f.sink.Emit(f.address, event.InstanceCreated{
		Instance:                  addr,
		Controller:                params.Controller,
		Distributors:              distributors,
		Version:                   Version,
		IsImmutableRecipients:     params.IsImmutableRecipients,
		IsAutoNativeDistribution:  params.IsAutoNativeDistribution,
		MinAutoDistributionAmount: minAuto,
		CreationID:                params.CreationID,
	})
	metrics.InstancesCreated.WithLabelValues(mode).Inc()
	f.log().Info("instance created",
		zap.String("instance", addr.Hex()),
		zap.String("owner", caller.Hex()),
		zap.String("mode", mode),
		zap.Uint64("fee_bps", f.feeBps))
	return addr, nil
}

// SetPlatformFee changes the fee rate applied to instances created from now on.
func (f *Factory) SetPlatformFee(caller common.Address, feeBps uint64) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if feeBps > revshare.PercentageScale {
		return fmt.Errorf("%w: %d", ErrInvalidFeePercentage, feeBps)
	}
	old := f.feeBps
	f.feeBps = feeBps
	f.sink.Emit(f.address, event.PlatformFeeChanged{Old: old, New: feeBps})
	metrics.PlatformFeeChanges.Inc()
	f.log().Info("platform fee changed", zap.Uint64("old", old), zap.Uint64("new", feeBps))
	return nil
}

// SetPlatformWallet changes the address receiving fees. Setting the null
// address makes instances keep their fees.
func (f *Factory) SetPlatformWallet(caller, wallet common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireOwner(caller); err != nil {
		return err
	}
	old := f.wallet
	f.wallet = wallet
	f.sink.Emit(f.address, event.PlatformWalletChanged{Old: old, New: wallet})
	metrics.PlatformFeeChanges.Inc()
	f.log().Info("platform wallet changed", zap.String("old", old.Hex()), zap.String("new", wallet.Hex()))
	return nil
}

// TransferOwnership hands the factory owner role to newOwner.
func (f *Factory) TransferOwnership(caller, newOwner common.Address) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return fmt.Errorf("%w: owner", ErrZeroAddress)
	}
	old := f.owner
	f.owner = newOwner
	f.sink.Emit(f.address, event.OwnershipTransferred{Old: old, New: newOwner})
	return nil
}

// PlatformWallet returns the current fee wallet.
func (f *Factory) PlatformWallet() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.wallet
}

// PlatformFee returns the fee rate new instances will snapshot.
func (f *Factory) PlatformFee() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.feeBps
}

func (f *Factory) Owner() common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.owner
}

// Nonce returns the nonce the next sequential clone will use.
func (f *Factory) Nonce() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.nonce
}

func (f *Factory) Address() common.Address { return f.address }

func (f *Factory) TemplateAddress() common.Address { return f.template.Address() }

// Template returns the canonical template instance. Its initializer is disabled.
func (f *Factory) Template() *distributor.Instance { return f.template }

// Instance returns the instance registered at addr.
func (f *Factory) Instance(addr common.Address) (*distributor.Instance, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	inst, ok := f.instances[addr]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInstanceNotFound, addr.Hex())
	}
	return inst, nil
}

// Instances returns every instance address in creation order.
func (f *Factory) Instances() []common.Address {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]common.Address, len(f.order))
	copy(out, f.order)
	return out
}

func (f *Factory) requireOwner(caller common.Address) error {
	if caller != f.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

func (f *Factory) log() *zap.Logger {
	return logger.Named("factory").With(zap.String("factory", f.address.Hex()))
}

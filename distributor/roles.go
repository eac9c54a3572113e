package distributor

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/event"
)

func (i *Instance) requireOwner(caller common.Address) error {
	if err := i.requireInitialized(); err != nil {
		return err
	}
	if caller != i.owner {
		return fmt.Errorf("%w: %s", ErrNotOwner, caller.Hex())
	}
	return nil
}

// SetDistributor grants or revokes the distributor role.
func (i *Instance) SetDistributor(caller, distributor common.Address, isDistributor bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireOwner(caller); err != nil {
		return err
	}
	if isDistributor {
		i.distributors[distributor] = true
	} else {
		delete(i.distributors, distributor)
	}
	i.sink.Emit(i.address, event.DistributorChanged{Distributor: distributor, IsDistributor: isDistributor})
	i.log().Info("distributor changed", zap.String("distributor", distributor.Hex()), zap.Bool("enabled", isDistributor))
	return nil
}

// SetController replaces the controller.
func (i *Instance) SetController(caller, controller common.Address) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireOwner(caller); err != nil {
		return err
	}
	old := i.controller
	i.controller = controller
	i.sink.Emit(i.address, event.ControllerChanged{Old: old, New: controller})
	i.log().Info("controller changed", zap.String("old", old.Hex()), zap.String("new", controller.Hex()))
	return nil
}

// SetImmutableRecipients freezes every recipient table.
func (i *Instance) SetImmutableRecipients(caller common.Address) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireOwner(caller); err != nil {
		return err
	}
	if i.immutable {
		return ErrAlreadyImmutable
	}
	i.immutable = true
	i.sink.Emit(i.address, event.ImmutableRecipientsSet{Immutable: true})
	i.log().Info("recipients frozen")
	return nil
}

// SetAutoNativeCurrencyDistribution toggles distribution on deposit.
func (i *Instance) SetAutoNativeCurrencyDistribution(caller common.Address, enabled bool) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireOwner(caller); err != nil {
		return err
	}
	old := i.auto
	i.auto = enabled
	i.sink.Emit(i.address, event.AutoNativeDistributionChanged{Old: old, New: enabled})
	i.log().Info("auto distribution changed", zap.Bool("old", old), zap.Bool("new", enabled))
	return nil
}

// SetMinAutoDistributionAmount sets the post-deposit balance that triggers
// automatic distribution.
func (i *Instance) SetMinAutoDistributionAmount(caller common.Address, amount *uint256.Int) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireOwner(caller); err != nil {
		return err
	}
	next := new(uint256.Int)
	if amount != nil {
		next.Set(amount)
	}
	old := i.minAuto
	i.minAuto = next
	i.sink.Emit(i.address, event.MinAutoDistributionAmountChanged{Old: old.Clone(), New: next.Clone()})
	i.log().Info("min auto distribution amount changed", zap.String("old", old.Dec()), zap.String("new", next.Dec()))
	return nil
}

// TransferOwnership hands the owner role to newOwner, which must not be null.
func (i *Instance) TransferOwnership(caller, newOwner common.Address) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireOwner(caller); err != nil {
		return err
	}
	if newOwner == (common.Address{}) {
		return ErrZeroOwner
	}
	old := i.owner
	i.owner = newOwner
	i.sink.Emit(i.address, event.OwnershipTransferred{Old: old, New: newOwner})
	i.log().Info("ownership transferred", zap.String("old", old.Hex()), zap.String("new", newOwner.Hex()))
	return nil
}

// RenounceOwnership always fails: an instance must keep an owner.
func (i *Instance) RenounceOwnership(common.Address) error {
	return ErrRenounceDisabled
}

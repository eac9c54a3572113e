package distributor

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/ledger"
	"github.com/bitfsorg/librevsplit-go/metrics"
	"github.com/bitfsorg/librevsplit-go/revshare"
)

var dustFloor = uint256.NewInt(revshare.DustFloor)

// RedistributeNativeCurrency splits amount of the instance's native balance
// among the recipients at index after taking the platform fee.
func (i *Instance) RedistributeNativeCurrency(caller common.Address, amount *uint256.Int, index uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireDistributor(caller); err != nil {
		i.recordFailure(metrics.AssetNative, err)
		return err
	}

	var plan *revshare.Plan
	err := i.ledger.Atomic(func(st ledger.State) error {
		var err error
		plan, err = i.distributeNative(st, amount, index)
		return err
	})
	if err != nil {
		i.recordFailure(metrics.AssetNative, err)
		return err
	}

	i.sink.Emit(i.address, event.NativeDistributed{Amount: plan.Amount.Clone(), Index: index})
	i.recordSuccess(metrics.AssetNative, metrics.TriggerManual, plan, index)
	return nil
}

// RedistributeToken splits amount of the instance's token balance among the
// recipients at index after taking the platform fee.
func (i *Instance) RedistributeToken(caller, token common.Address, amount *uint256.Int, index uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if err := i.requireDistributor(caller); err != nil {
		i.recordFailure(metrics.AssetToken, err)
		return err
	}

	var plan *revshare.Plan
	err := i.ledger.Atomic(func(st ledger.State) error {
		var err error
		plan, err = i.distributeToken(st, token, amount, index)
		return err
	})
	if err != nil {
		i.recordFailure(metrics.AssetToken, err)
		return err
	}

	i.sink.Emit(i.address, event.TokenDistributed{Token: token, Amount: plan.Amount.Clone(), Index: index})
	i.recordSuccess(metrics.AssetToken, metrics.TriggerManual, plan, index, zap.String("token", token.Hex()))
	return nil
}

// Receive credits a plain value transfer. It never distributes.
func (i *Instance) Receive(from common.Address, value *uint256.Int) error {
	if value == nil {
		value = new(uint256.Int)
	}
	if err := i.ledger.Transfer(from, i.address, value); err != nil {
		return fmt.Errorf("%w: deposit from %s: %w", ErrTransferFailed, from.Hex(), err)
	}
	return nil
}

// DepositWithMetadata credits value and, when automatic distribution is on
// and the balance after receipt reaches the threshold, distributes amount
// from the table at index in the same atomic unit. A failing distribution
// reverts the deposit too.
func (i *Instance) DepositWithMetadata(from common.Address, value *uint256.Int, index uint64, amount *uint256.Int) error {
	if value == nil {
		value = new(uint256.Int)
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	var (
		plan      *revshare.Plan
		triggered bool
	)
	err := i.ledger.Atomic(func(st ledger.State) error {
		if err := st.Transfer(from, i.address, value); err != nil {
			return fmt.Errorf("%w: deposit from %s: %w", ErrTransferFailed, from.Hex(), err)
		}
		if !i.auto || st.Balance(i.address).Lt(i.minAuto) {
			return nil
		}
		triggered = true
		var err error
		plan, err = i.distributeNative(st, amount, index)
		return err
	})
	if err != nil {
		if triggered {
			i.recordFailure(metrics.AssetNative, err)
		}
		return err
	}

	if plan != nil {
		i.sink.Emit(i.address, event.NativeDistributed{Amount: plan.Amount.Clone(), Index: index})
		i.recordSuccess(metrics.AssetNative, metrics.TriggerAuto, plan, index)
	}
	return nil
}

// Fallback handles a value transfer carrying raw call data. Empty data is a
// plain Receive; otherwise the data must decode as an (index, amount) payload.
func (i *Instance) Fallback(from common.Address, value *uint256.Int, data []byte) error {
	if len(data) == 0 {
		return i.Receive(from, value)
	}
	index, amount, err := DecodePayload(data)
	if err != nil {
		return err
	}
	return i.DepositWithMetadata(from, value, index, amount)
}

func (i *Instance) distributeNative(st ledger.State, amount *uint256.Int, index uint64) (*revshare.Plan, error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	balance := st.Balance(i.address)
	if amount.Gt(balance) {
		return nil, fmt.Errorf("%w: requested %s, have %s", ErrInsufficientBalance, amount.Dec(), balance.Dec())
	}

	recipients := i.recipientsAt(index)
	plan, err := revshare.PlanDistribution(amount, i.feeBps, recipients)
	if err != nil {
		return nil, err
	}
	if plan.BelowDustFloor() {
		return nil, fmt.Errorf("%w: %s after fee", ErrBalanceTooLow, plan.Remaining.Dec())
	}
	if err := revshare.ValidatePlan(plan, recipients); err != nil {
		return nil, fmt.Errorf("distributor: native plan: %w", err)
	}

	transfer := func(to common.Address, v *uint256.Int) error {
		return st.Transfer(i.address, to, v)
	}
	if err := i.payout(plan, transfer); err != nil {
		return nil, err
	}
	return plan, nil
}

func (i *Instance) distributeToken(st ledger.State, token common.Address, amount *uint256.Int, index uint64) (*revshare.Plan, error) {
	if amount == nil {
		amount = new(uint256.Int)
	}
	balance, err := st.TokenBalance(token, i.address)
	if err != nil {
		return nil, fmt.Errorf("%w: balance of %s: %w", ErrTransferFailed, token.Hex(), err)
	}
	if balance.Lt(dustFloor) {
		return nil, fmt.Errorf("%w: token balance %s", ErrBalanceTooLow, balance.Dec())
	}

	recipients := i.recipientsAt(index)
	plan, err := revshare.PlanDistribution(amount, i.feeBps, recipients)
	if err != nil {
		return nil, err
	}
	if err := revshare.ValidatePlan(plan, recipients); err != nil {
		return nil, fmt.Errorf("distributor: token plan: %w", err)
	}

	transfer := func(to common.Address, v *uint256.Int) error {
		return st.TransferToken(token, i.address, to, v)
	}
	if err := i.payout(plan, transfer); err != nil {
		return nil, err
	}
	return plan, nil
}

// payout sends the fee to the live platform wallet, then every recipient
// share. Any failed transfer aborts the whole plan.
func (i *Instance) payout(plan *revshare.Plan, transfer func(common.Address, *uint256.Int) error) error {
	if !plan.Fee.IsZero() {
		if wallet := i.platformWallet(); wallet != (common.Address{}) {
			if err := transfer(wallet, plan.Fee); err != nil {
				return fmt.Errorf("%w: fee to %s: %w", ErrTransferFailed, wallet.Hex(), err)
			}
		}
	}
	for _, po := range plan.Payouts {
		if err := transfer(po.Address, po.Amount); err != nil {
			return fmt.Errorf("%w: payout to %s: %w", ErrTransferFailed, po.Address.Hex(), err)
		}
	}
	return nil
}

func (i *Instance) platformWallet() common.Address {
	if i.feeWallet == nil {
		return common.Address{}
	}
	return i.feeWallet.PlatformWallet()
}

func (i *Instance) requireDistributor(caller common.Address) error {
	if err := i.requireInitialized(); err != nil {
		return err
	}
	if !i.distributors[caller] {
		return fmt.Errorf("%w: %s", ErrNotDistributor, caller.Hex())
	}
	return nil
}

func (i *Instance) recordSuccess(asset, trigger string, plan *revshare.Plan, index uint64, fields ...zap.Field) {
	metrics.Distributions.WithLabelValues(asset, trigger).Inc()
	i.log().Info("distributed",
		append([]zap.Field{
			zap.String("asset", asset),
			zap.String("trigger", trigger),
			zap.Uint64("index", index),
			zap.String("amount", plan.Amount.Dec()),
			zap.String("fee", plan.Fee.Dec()),
			zap.String("dust", plan.Dust().Dec()),
		}, fields...)...)
}

func (i *Instance) recordFailure(asset string, err error) {
	reason := failureReason(err)
	metrics.DistributionFailures.WithLabelValues(asset, reason).Inc()
	i.log().Warn("distribution reverted", zap.String("asset", asset), zap.String("reason", reason), zap.Error(err))
}

func failureReason(err error) string {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, ErrNotInitialized):
		return "not_initialized"
	case errors.Is(err, ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, ErrBalanceTooLow):
		return "balance_too_low"
	case errors.Is(err, ErrTransferFailed):
		return "transfer_failed"
	case errors.Is(err, revshare.ErrConservationViolation):
		return "conservation"
	default:
		return "other"
	}
}

package distributor

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/metrics"
	"github.com/bitfsorg/librevsplit-go/revshare"
)

// SetRecipients replaces the recipient table at index. The new table is
// fully validated before the old one is dropped, so a failure leaves the
// previous table in place.
func (i *Instance) SetRecipients(caller common.Address, recipients []common.Address, percentages []uint64, index uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	table, err := i.setRecipients(caller, recipients, percentages, index)
	if err != nil {
		return err
	}
	i.sink.Emit(i.address, recipientsSet(table))
	return nil
}

// SetRecipientsAndFreeze replaces the table at index and then freezes every
// table of the instance.
func (i *Instance) SetRecipientsAndFreeze(caller common.Address, recipients []common.Address, percentages []uint64, index uint64) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	table, err := i.setRecipients(caller, recipients, percentages, index)
	if err != nil {
		return err
	}
	i.immutable = true
	i.sink.Emit(i.address, recipientsSet(table), event.ImmutableRecipientsSet{Immutable: true})
	i.log().Info("recipients frozen", zap.Uint64("index", index))
	return nil
}

func (i *Instance) setRecipients(caller common.Address, recipients []common.Address, percentages []uint64, index uint64) (*revshare.Table, error) {
	if err := i.requireInitialized(); err != nil {
		return nil, err
	}
	if caller != i.controller {
		return nil, fmt.Errorf("%w: %s", ErrNotController, caller.Hex())
	}
	if i.immutable {
		return nil, ErrImmutableRecipients
	}
	table, err := revshare.BuildTable(index, recipients, percentages)
	if err != nil {
		return nil, err
	}
	i.tables[index] = table
	metrics.RecipientTableUpdates.Inc()
	i.log().Debug("recipients set", zap.Uint64("index", index), zap.Int("recipients", table.Len()))
	return table, nil
}

// NumberOfRecipients returns the size of the table at index.
func (i *Instance) NumberOfRecipients(index uint64) int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tables[index].Len()
}

// Recipients returns a copy of the table at index, in table order.
func (i *Instance) Recipients(index uint64) []revshare.Recipient {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.recipientsAt(index)
}

// RecipientPercentage returns addr's share in the table at index, or zero.
func (i *Instance) RecipientPercentage(index uint64, addr common.Address) uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.tables[index].Percentage(addr)
}

// Indexes returns every index that holds a table, ascending.
func (i *Instance) Indexes() []uint64 {
	i.mu.Lock()
	defer i.mu.Unlock()
	return sortedIndexes(i.tables)
}

func (i *Instance) recipientsAt(index uint64) []revshare.Recipient {
	t := i.tables[index]
	if t == nil {
		return nil
	}
	return t.Clone().Recipients
}

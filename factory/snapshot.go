package factory

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/ledger"
)

// State is a persistable copy of a factory and every instance it created,
// in creation order.
type State struct {
	Address        common.Address
	Owner          common.Address
	Template       common.Address
	PlatformFeeBps uint64
	PlatformWallet common.Address
	Nonce          uint64
	Instances      []*distributor.State
}

// Export snapshots the factory and its instances.
func (f *Factory) Export() (*State, error) {
	f.mu.RLock()
	st := &State{
		Address:        f.address,
		Owner:          f.owner,
		Template:       f.template.Address(),
		PlatformFeeBps: f.feeBps,
		PlatformWallet: f.wallet,
		Nonce:          f.nonce,
	}
	insts := make([]*distributor.Instance, len(f.order))
	for i, addr := range f.order {
		insts[i] = f.instances[addr]
	}
	f.mu.RUnlock()

	// Instances are snapshotted outside the factory lock: a distribution
	// holds its instance lock while reading the platform wallet.
	for _, inst := range insts {
		is, err := inst.Snapshot()
		if err != nil {
			return nil, fmt.Errorf("factory: export: %w", err)
		}
		st.Instances = append(st.Instances, is)
	}
	return st, nil
}

// Restore rebuilds a factory from a snapshot, binding every instance to l,
// sink and the restored factory as fee-wallet provider.
func Restore(st *State, l ledger.Ledger, sink event.Sink) (*Factory, error) {
	if st == nil {
		return nil, fmt.Errorf("factory: nil state")
	}
	f, err := New(Config{
		Address:        st.Address,
		Owner:          st.Owner,
		Template:       st.Template,
		PlatformFeeBps: st.PlatformFeeBps,
		PlatformWallet: st.PlatformWallet,
	}, l, sink)
	if err != nil {
		return nil, err
	}
	if st.Nonce > 0 {
		f.nonce = st.Nonce
	}
	for _, is := range st.Instances {
		inst, err := distributor.Restore(is, l, f.sink, f)
		if err != nil {
			return nil, fmt.Errorf("factory: restore: %w", err)
		}
		if _, dup := f.instances[inst.Address()]; dup {
			return nil, fmt.Errorf("%w: %s", ErrCloneCollision, inst.Address().Hex())
		}
		f.instances[inst.Address()] = inst
		f.order = append(f.order, inst.Address())
	}
	return f, nil
}

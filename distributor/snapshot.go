package distributor

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/ledger"
	"github.com/bitfsorg/librevsplit-go/revshare"
)

// State is a persistable copy of an instance. Recipient tables are kept in
// their binary encoding.
type State struct {
	Address                   common.Address
	Initialized               bool
	Template                  bool
	Owner                     common.Address
	Controller                common.Address
	Distributors              []common.Address
	IsImmutableRecipients     bool
	IsAutoNativeDistribution  bool
	MinAutoDistributionAmount [32]byte
	PlatformFeeBps            uint64
	Factory                   common.Address
	Tables                    [][]byte
}

// Snapshot returns the instance state.
func (i *Instance) Snapshot() (*State, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	st := &State{
		Address:                   i.address,
		Initialized:               i.initialized,
		Template:                  i.disabled,
		Owner:                     i.owner,
		Controller:                i.controller,
		Distributors:              i.distributorList(),
		IsImmutableRecipients:     i.immutable,
		IsAutoNativeDistribution:  i.auto,
		MinAutoDistributionAmount: i.minAuto.Bytes32(),
		PlatformFeeBps:            i.feeBps,
		Factory:                   i.factory,
	}
	for _, idx := range sortedIndexes(i.tables) {
		data, err := revshare.SerializeTable(i.tables[idx])
		if err != nil {
			return nil, fmt.Errorf("distributor: snapshot table %d: %w", idx, err)
		}
		st.Tables = append(st.Tables, data)
	}
	return st, nil
}

// Restore rebuilds an instance from a snapshot. Tables are re-validated.
func Restore(st *State, l ledger.Ledger, sink event.Sink, fw FeeWalletProvider) (*Instance, error) {
	if st == nil {
		return nil, fmt.Errorf("distributor: nil state")
	}
	inst := New(st.Address, l, sink)
	inst.initialized = st.Initialized
	inst.disabled = st.Template
	inst.owner = st.Owner
	inst.controller = st.Controller
	for _, d := range st.Distributors {
		inst.distributors[d] = true
	}
	inst.immutable = st.IsImmutableRecipients
	inst.auto = st.IsAutoNativeDistribution
	word := st.MinAutoDistributionAmount
	inst.minAuto = new(uint256.Int).SetBytes32(word[:])
	inst.feeBps = st.PlatformFeeBps
	inst.factory = st.Factory
	inst.feeWallet = fw

	for _, data := range st.Tables {
		t, err := revshare.DeserializeTable(data)
		if err != nil {
			return nil, fmt.Errorf("distributor: restore %s: %w", st.Address.Hex(), err)
		}
		if t.Len() > 0 {
			if _, err := revshare.BuildTable(t.Index, t.Addresses(), t.Percentages()); err != nil {
				return nil, fmt.Errorf("distributor: restore %s table %d: %w", st.Address.Hex(), t.Index, err)
			}
		}
		inst.tables[t.Index] = t
	}
	return inst, nil
}

func sortedIndexes(tables map[uint64]*revshare.Table) []uint64 {
	out := make([]uint64, 0, len(tables))
	for idx := range tables {
		out = append(out, idx)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Package event defines the creation and change records emitted by the
// factory and by distributor instances, and the Sink they are emitted to.
//
// Records are emitted only after the operation that produced them has
// committed; a failed operation emits nothing.
package event

import (
	"encoding/gob"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Event is a single emitted record.
type Event interface {
	// Name returns the record's stable name.
	Name() string
}

// Record pairs an event with the address that emitted it.
type Record struct {
	Source common.Address
	Event  Event
}

// Sink receives committed events.
type Sink interface {
	Emit(source common.Address, events ...Event)
}

// Discard is a Sink that drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Emit(common.Address, ...Event) {}

// Recorder is an in-memory Sink that keeps every record in emission order.
type Recorder struct {
	mu      sync.Mutex
	records []Record
}

// Compile-time interface check.
var _ Sink = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Emit appends events from source.
func (r *Recorder) Emit(source common.Address, events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ev := range events {
		r.records = append(r.records, Record{Source: source, Event: ev})
	}
}

// Records returns a copy of everything recorded so far.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Drain returns everything recorded so far and clears the recorder.
func (r *Recorder) Drain() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.records
	r.records = nil
	return out
}

// Names returns the names of all recorded events, in order.
func (r *Recorder) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.records))
	for i, rec := range r.records {
		names[i] = rec.Event.Name()
	}
	return names
}

// ---------------------------------------------------------------------------
// Factory records.
// ---------------------------------------------------------------------------

// InstanceCreated is emitted when the factory deploys a new instance.
type InstanceCreated struct {
	Instance                  common.Address
	Controller                common.Address
	Distributors              []common.Address
	Version                   uint64
	IsImmutableRecipients     bool
	IsAutoNativeDistribution  bool
	MinAutoDistributionAmount *uint256.Int
	CreationID                [32]byte
}

func (InstanceCreated) Name() string { return "InstanceCreated" }

// PlatformFeeChanged is emitted when the factory fee rate changes.
type PlatformFeeChanged struct {
	Old uint64
	New uint64
}

func (PlatformFeeChanged) Name() string { return "PlatformFeeChanged" }

// PlatformWalletChanged is emitted when the fee wallet changes.
type PlatformWalletChanged struct {
	Old common.Address
	New common.Address
}

func (PlatformWalletChanged) Name() string { return "PlatformWalletChanged" }

// OwnershipTransferred is emitted when a factory or instance changes owner.
type OwnershipTransferred struct {
	Old common.Address
	New common.Address
}

func (OwnershipTransferred) Name() string { return "OwnershipTransferred" }

// ---------------------------------------------------------------------------
// Instance records.
// ---------------------------------------------------------------------------

// RecipientsSet is emitted when a recipient table is replaced.
type RecipientsSet struct {
	Index       uint64
	Recipients  []common.Address
	Percentages []uint64
}

func (RecipientsSet) Name() string { return "RecipientsSet" }

// DistributorChanged is emitted when an address gains or loses the distributor role.
type DistributorChanged struct {
	Distributor   common.Address
	IsDistributor bool
}

func (DistributorChanged) Name() string { return "DistributorChanged" }

// ControllerChanged is emitted when the controller changes.
type ControllerChanged struct {
	Old common.Address
	New common.Address
}

func (ControllerChanged) Name() string { return "ControllerChanged" }

// MinAutoDistributionAmountChanged is emitted when the auto threshold changes.
type MinAutoDistributionAmountChanged struct {
	Old *uint256.Int
	New *uint256.Int
}

func (MinAutoDistributionAmountChanged) Name() string { return "MinAutoDistributionAmountChanged" }

// AutoNativeDistributionChanged is emitted when auto distribution is toggled.
type AutoNativeDistributionChanged struct {
	Old bool
	New bool
}

func (AutoNativeDistributionChanged) Name() string { return "AutoNativeDistributionChanged" }

// ImmutableRecipientsSet is emitted when recipient tables are frozen.
type ImmutableRecipientsSet struct {
	Immutable bool
}

func (ImmutableRecipientsSet) Name() string { return "ImmutableRecipientsSet" }

// NativeDistributed is emitted after a native-currency distribution.
type NativeDistributed struct {
	Amount *uint256.Int
	Index  uint64
}

func (NativeDistributed) Name() string { return "NativeDistributed" }

// TokenDistributed is emitted after a token distribution.
type TokenDistributed struct {
	Token  common.Address
	Amount *uint256.Int
	Index  uint64
}

func (TokenDistributed) Name() string { return "TokenDistributed" }

func init() {
	// Records travel through gob inside interface values when persisted.
	for _, ev := range []Event{
		InstanceCreated{}, PlatformFeeChanged{}, PlatformWalletChanged{}, OwnershipTransferred{},
		RecipientsSet{}, DistributorChanged{}, ControllerChanged{},
		MinAutoDistributionAmountChanged{}, AutoNativeDistributionChanged{},
		ImmutableRecipientsSet{}, NativeDistributed{}, TokenDistributed{},
	} {
		gob.Register(ev)
	}
}

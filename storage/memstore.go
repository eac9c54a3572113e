package storage

import (
	"fmt"
	"sync"

	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/factory"
	"github.com/bitfsorg/librevsplit-go/ledger"
)

// MemStore is an in-memory Store. Saved values are gob-encoded copies, so
// later mutation of the caller's state does not leak into the store.
type MemStore struct {
	mu      sync.RWMutex
	factory []byte
	ledger  []byte
	events  []*LogEntry
}

// Compile-time interface check.
var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) SaveFactory(st *factory.State) error {
	if st == nil {
		return fmt.Errorf("%w: factory state", ErrNilParam)
	}
	data, err := encodeGob(st)
	if err != nil {
		return fmt.Errorf("storage: encode factory: %w", err)
	}
	s.mu.Lock()
	s.factory = data
	s.mu.Unlock()
	return nil
}

func (s *MemStore) LoadFactory() (*factory.State, error) {
	s.mu.RLock()
	data := s.factory
	s.mu.RUnlock()
	if data == nil {
		return nil, fmt.Errorf("%w: factory", ErrNotFound)
	}
	var st factory.State
	if err := decodeGob(data, &st); err != nil {
		return nil, fmt.Errorf("storage: decode factory: %w", err)
	}
	return &st, nil
}

func (s *MemStore) SaveLedger(snap *ledger.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: ledger snapshot", ErrNilParam)
	}
	data, err := encodeGob(snap)
	if err != nil {
		return fmt.Errorf("storage: encode ledger: %w", err)
	}
	s.mu.Lock()
	s.ledger = data
	s.mu.Unlock()
	return nil
}

func (s *MemStore) LoadLedger() (*ledger.Snapshot, error) {
	s.mu.RLock()
	data := s.ledger
	s.mu.RUnlock()
	if data == nil {
		return nil, fmt.Errorf("%w: ledger", ErrNotFound)
	}
	var snap ledger.Snapshot
	if err := decodeGob(data, &snap); err != nil {
		return nil, fmt.Errorf("storage: decode ledger: %w", err)
	}
	return &snap, nil
}

func (s *MemStore) AppendEvents(records ...event.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		lastSeq  uint64
		lastHash [32]byte
	)
	if n := len(s.events); n > 0 {
		lastSeq, lastHash = s.events[n-1].Seq, s.events[n-1].Hash
	}
	entries, err := chainEntries(lastSeq, lastHash, records)
	if err != nil {
		return err
	}
	s.events = append(s.events, entries...)
	return nil
}

// Commit encodes everything before taking the lock, so a failure leaves
// the store untouched.
func (s *MemStore) Commit(snap *ledger.Snapshot, st *factory.State, records ...event.Record) error {
	if snap == nil {
		return fmt.Errorf("%w: ledger snapshot", ErrNilParam)
	}
	ledgerData, err := encodeGob(snap)
	if err != nil {
		return fmt.Errorf("storage: encode ledger: %w", err)
	}
	var factoryData []byte
	if st != nil {
		if factoryData, err = encodeGob(st); err != nil {
			return fmt.Errorf("storage: encode factory: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var (
		lastSeq  uint64
		lastHash [32]byte
	)
	if n := len(s.events); n > 0 {
		lastSeq, lastHash = s.events[n-1].Seq, s.events[n-1].Hash
	}
	entries, err := chainEntries(lastSeq, lastHash, records)
	if err != nil {
		return err
	}
	s.ledger = ledgerData
	if factoryData != nil {
		s.factory = factoryData
	}
	s.events = append(s.events, entries...)
	return nil
}

func (s *MemStore) Events() ([]*LogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*LogEntry, len(s.events))
	for i, e := range s.events {
		cpy := *e
		cpy.Payload = append([]byte(nil), e.Payload...)
		out[i] = &cpy
	}
	return out, nil
}

func (s *MemStore) VerifyEvents() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return verifyChain(s.events)
}

func (s *MemStore) Close() error { return nil }

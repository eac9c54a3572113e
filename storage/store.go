// Package storage persists factory, instance and ledger snapshots together
// with an append-only, hash-chained log of emitted events.
package storage

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/factory"
	"github.com/bitfsorg/librevsplit-go/ledger"
)

// Store persists revsplit state.
type Store interface {
	// SaveFactory replaces the stored factory and all of its instances.
	SaveFactory(st *factory.State) error

	// LoadFactory returns the stored factory, or ErrNotFound.
	LoadFactory() (*factory.State, error)

	// SaveLedger replaces the stored ledger snapshot.
	SaveLedger(snap *ledger.Snapshot) error

	// LoadLedger returns the stored ledger snapshot, or ErrNotFound.
	LoadLedger() (*ledger.Snapshot, error)

	// AppendEvents appends records to the event log in order.
	AppendEvents(records ...event.Record) error

	// Events returns every log entry in append order.
	Events() ([]*LogEntry, error)

	// Commit saves snap, st (skipped when nil) and appends records as one
	// unit. On error none of them is stored.
	Commit(snap *ledger.Snapshot, st *factory.State, records ...event.Record) error

	// VerifyEvents recomputes the hash chain and returns ErrCorruptLog on mismatch.
	VerifyEvents() error

	Close() error
}

// seqKey encodes a sequence number as an 8-byte big-endian key for sorted storage.
func seqKey(n uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, n)
	return k
}

// encodeGob serializes a value using gob encoding.
func encodeGob(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// decodeGob deserializes gob-encoded data into a value.
func decodeGob(data []byte, v interface{}) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(v)
}

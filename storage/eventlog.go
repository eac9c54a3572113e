package storage

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/bitfsorg/librevsplit-go/event"
)

// LogEntry is one persisted event. Hash commits to the previous entry's
// hash, the sequence number and the encoded record.
type LogEntry struct {
	Seq      uint64
	PrevHash [32]byte
	Hash     [32]byte
	Payload  []byte // gob-encoded event.Record
}

// Record decodes the entry payload.
func (e *LogEntry) Record() (event.Record, error) {
	var rec event.Record
	if err := decodeGob(e.Payload, &rec); err != nil {
		return event.Record{}, fmt.Errorf("storage: decode event %d: %w", e.Seq, err)
	}
	return rec, nil
}

// entryHash returns keccak256(prev || seq || payload).
func entryHash(prev [32]byte, seq uint64, payload []byte) [32]byte {
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)

	h := sha3.NewLegacyKeccak256()
	h.Write(prev[:])
	h.Write(seqBuf[:])
	h.Write(payload)

	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// chainEntries builds log entries for records following the entry with
// sequence number lastSeq and hash lastHash.
func chainEntries(lastSeq uint64, lastHash [32]byte, records []event.Record) ([]*LogEntry, error) {
	entries := make([]*LogEntry, 0, len(records))
	prev, seq := lastHash, lastSeq
	for _, rec := range records {
		payload, err := encodeGob(&rec)
		if err != nil {
			return nil, fmt.Errorf("storage: encode %s event: %w", rec.Event.Name(), err)
		}
		seq++
		e := &LogEntry{Seq: seq, PrevHash: prev, Payload: payload}
		e.Hash = entryHash(prev, seq, payload)
		entries = append(entries, e)
		prev = e.Hash
	}
	return entries, nil
}

// verifyChain checks that entries are numbered from 1 and correctly linked.
func verifyChain(entries []*LogEntry) error {
	var prev [32]byte
	for i, e := range entries {
		want := uint64(i + 1)
		if e.Seq != want {
			return fmt.Errorf("%w: entry %d has sequence %d", ErrCorruptLog, want, e.Seq)
		}
		if e.PrevHash != prev {
			return fmt.Errorf("%w: entry %d does not link to its predecessor", ErrCorruptLog, e.Seq)
		}
		if entryHash(prev, e.Seq, e.Payload) != e.Hash {
			return fmt.Errorf("%w: entry %d hash mismatch", ErrCorruptLog, e.Seq)
		}
		prev = e.Hash
	}
	return nil
}

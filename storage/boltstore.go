package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/factory"
	"github.com/bitfsorg/librevsplit-go/ledger"
)

var (
	bucketMeta      = []byte("meta")
	bucketInstances = []byte("instances")
	bucketEvents    = []byte("events")

	keyFactory = []byte("factory")
	keyLedger  = []byte("ledger")
)

// BoltStore persists revsplit state in a bbolt database.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the bbolt database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("storage: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: open bolt db: %w", ErrIOFailure, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketInstances, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create buckets: %w", ErrIOFailure, err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

// SaveFactory stores the factory record in the meta bucket and each
// instance under its creation position in the instances bucket.
func (s *BoltStore) SaveFactory(st *factory.State) error {
	if st == nil {
		return fmt.Errorf("%w: factory state", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putFactory(tx, st)
	})
}

func (s *BoltStore) LoadFactory() (*factory.State, error) {
	var st factory.State
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyFactory)
		if data == nil {
			return fmt.Errorf("%w: factory", ErrNotFound)
		}
		if err := decodeGob(data, &st); err != nil {
			return fmt.Errorf("boltstore: decode factory: %w", err)
		}
		// Keys are big-endian positions, so ForEach yields creation order.
		return tx.Bucket(bucketInstances).ForEach(func(_, v []byte) error {
			var inst distributor.State
			if err := decodeGob(v, &inst); err != nil {
				return fmt.Errorf("boltstore: decode instance: %w", err)
			}
			st.Instances = append(st.Instances, &inst)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

func (s *BoltStore) SaveLedger(snap *ledger.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: ledger snapshot", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return putLedger(tx, snap)
	})
}

func (s *BoltStore) LoadLedger() (*ledger.Snapshot, error) {
	var snap ledger.Snapshot
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketMeta).Get(keyLedger)
		if data == nil {
			return fmt.Errorf("%w: ledger", ErrNotFound)
		}
		return decodeGob(data, &snap)
	})
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// AppendEvents links records after the current log tail in one transaction.
func (s *BoltStore) AppendEvents(records ...event.Record) error {
	if len(records) == 0 {
		return nil
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return appendEvents(tx, records)
	})
}

// Commit writes the ledger, the factory (when st is non-nil) and the event
// records in a single bbolt transaction.
func (s *BoltStore) Commit(snap *ledger.Snapshot, st *factory.State, records ...event.Record) error {
	if snap == nil {
		return fmt.Errorf("%w: ledger snapshot", ErrNilParam)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := putLedger(tx, snap); err != nil {
			return err
		}
		if st != nil {
			if err := putFactory(tx, st); err != nil {
				return err
			}
		}
		return appendEvents(tx, records)
	})
}

func (s *BoltStore) Events() ([]*LogEntry, error) {
	var entries []*LogEntry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketEvents).ForEach(func(_, v []byte) error {
			var e LogEntry
			if err := decodeGob(v, &e); err != nil {
				return fmt.Errorf("boltstore: decode event: %w", err)
			}
			entries = append(entries, &e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *BoltStore) VerifyEvents() error {
	entries, err := s.Events()
	if err != nil {
		return err
	}
	return verifyChain(entries)
}

func putFactory(tx *bbolt.Tx, st *factory.State) error {
	head := *st
	head.Instances = nil
	headData, err := encodeGob(&head)
	if err != nil {
		return fmt.Errorf("storage: encode factory: %w", err)
	}
	if err := tx.Bucket(bucketMeta).Put(keyFactory, headData); err != nil {
		return fmt.Errorf("boltstore: put factory: %w", err)
	}
	if err := tx.DeleteBucket(bucketInstances); err != nil {
		return fmt.Errorf("boltstore: reset instances: %w", err)
	}
	ib, err := tx.CreateBucket(bucketInstances)
	if err != nil {
		return fmt.Errorf("boltstore: create instances: %w", err)
	}
	for i, inst := range st.Instances {
		data, err := encodeGob(inst)
		if err != nil {
			return fmt.Errorf("storage: encode instance %s: %w", inst.Address.Hex(), err)
		}
		if err := ib.Put(seqKey(uint64(i)), data); err != nil {
			return fmt.Errorf("boltstore: put instance: %w", err)
		}
	}
	return nil
}

func putLedger(tx *bbolt.Tx, snap *ledger.Snapshot) error {
	data, err := encodeGob(snap)
	if err != nil {
		return fmt.Errorf("storage: encode ledger: %w", err)
	}
	if err := tx.Bucket(bucketMeta).Put(keyLedger, data); err != nil {
		return fmt.Errorf("boltstore: put ledger: %w", err)
	}
	return nil
}

// appendEvents chains records after the tail of the events bucket.
func appendEvents(tx *bbolt.Tx, records []event.Record) error {
	if len(records) == 0 {
		return nil
	}
	eb := tx.Bucket(bucketEvents)

	var (
		lastSeq  uint64
		lastHash [32]byte
	)
	if _, v := eb.Cursor().Last(); v != nil {
		var tail LogEntry
		if err := decodeGob(v, &tail); err != nil {
			return fmt.Errorf("boltstore: decode log tail: %w", err)
		}
		lastSeq, lastHash = tail.Seq, tail.Hash
	}

	entries, err := chainEntries(lastSeq, lastHash, records)
	if err != nil {
		return err
	}
	for _, e := range entries {
		data, err := encodeGob(e)
		if err != nil {
			return fmt.Errorf("storage: encode log entry: %w", err)
		}
		if err := eb.Put(seqKey(e.Seq), data); err != nil {
			return fmt.Errorf("boltstore: put event: %w", err)
		}
	}
	return nil
}

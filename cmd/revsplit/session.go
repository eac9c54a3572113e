package main

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/bitfsorg/librevsplit-go/config"
	"github.com/bitfsorg/librevsplit-go/distributor"
	"github.com/bitfsorg/librevsplit-go/event"
	"github.com/bitfsorg/librevsplit-go/factory"
	"github.com/bitfsorg/librevsplit-go/ledger"
	"github.com/bitfsorg/librevsplit-go/logger"
	"github.com/bitfsorg/librevsplit-go/storage"
)

var (
	errNoFactory       = errors.New("no factory deployed; run \"revsplit init\" first")
	errFactoryDeployed = errors.New("factory already deployed")
)

// session is the state of one command invocation: the ledger and factory
// loaded from the store, and the events emitted while the command runs.
type session struct {
	store   *storage.BoltStore
	ledger  *ledger.MemLedger
	events  *event.Recorder
	factory *factory.Factory
}

func openSession(cfg config.Config) (*session, error) {
	store, err := storage.OpenBoltStore(config.DBPath(cfg.DataDir))
	if err != nil {
		return nil, err
	}
	s := &session{store: store, events: event.NewRecorder()}

	snap, err := store.LoadLedger()
	switch {
	case errors.Is(err, storage.ErrNotFound):
		s.ledger = ledger.NewMemLedger()
	case err != nil:
		_ = store.Close()
		return nil, fmt.Errorf("load ledger: %w", err)
	default:
		s.ledger = ledger.FromSnapshot(snap)
	}

	st, err := store.LoadFactory()
	switch {
	case errors.Is(err, storage.ErrNotFound):
	case err != nil:
		_ = store.Close()
		return nil, fmt.Errorf("load factory: %w", err)
	default:
		f, err := factory.Restore(st, s.ledger, s.events)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("restore factory: %w", err)
		}
		s.factory = f
	}
	return s, nil
}

// withSession runs fn against freshly loaded state and persists the result
// only when fn succeeds.
func (rf *rootFlags) withSession(fn func(*session) error) error {
	s, err := openSession(rf.cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.store.Close(); err != nil {
			logger.Error(err, zap.String("op", "close store"))
		}
	}()

	if err := fn(s); err != nil {
		return err
	}
	return s.commit()
}

// commit persists the ledger, the factory and the drained events in one
// store transaction.
func (s *session) commit() error {
	var st *factory.State
	if s.factory != nil {
		var err error
		if st, err = s.factory.Export(); err != nil {
			return fmt.Errorf("export factory: %w", err)
		}
	}
	records := s.events.Drain()
	if err := s.store.Commit(s.ledger.Export(), st, records...); err != nil {
		return fmt.Errorf("commit state: %w", err)
	}
	logger.Debug("state committed", zap.Int("events", len(records)))
	return nil
}

func (s *session) requireFactory() (*factory.Factory, error) {
	if s.factory == nil {
		return nil, errNoFactory
	}
	return s.factory, nil
}

func (s *session) instance(addr common.Address) (*distributor.Instance, error) {
	f, err := s.requireFactory()
	if err != nil {
		return nil, err
	}
	return f.Instance(addr)
}

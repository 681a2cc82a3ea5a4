package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"mediarelay/internal/domain"
)

// stateKey is the only key the relay writes.
var stateKey = []byte("state")

// BadgerCursorStore implements CursorStore using BadgerDB.
type BadgerCursorStore struct {
	db  *badger.DB
	log logrus.FieldLogger
}

// NewBadgerCursorStore opens (or creates) the database at dbPath.
func NewBadgerCursorStore(dbPath string, logger logrus.FieldLogger) (*BadgerCursorStore, error) {
	opts := badger.DefaultOptions(dbPath)
	opts.Logger = &badgerLogger{logger.WithField("component", "badgerdb")}

	db, err := badger.Open(opts)
	if err != nil {
		logger.WithError(err).Error("Failed to open BadgerDB")
		return nil, fmt.Errorf("failed to open badger db at %s: %w", dbPath, err)
	}
	logger.WithField("path", dbPath).Info("BadgerDB opened")

	return &BadgerCursorStore{
		db:  db,
		log: logger.WithField("component", "cursor_store"),
	}, nil
}

// Close closes the BadgerDB database connection.
func (s *BadgerCursorStore) Close() error {
	s.log.Info("Closing BadgerDB...")
	if err := s.db.Close(); err != nil {
		s.log.WithError(err).Error("Error closing BadgerDB")
		return err
	}
	s.log.Info("BadgerDB closed.")
	return nil
}

// Load reads the state record. A missing key or an undecodable value yields empty state.
func (s *BadgerCursorStore) Load(ctx context.Context) (domain.State, error) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(stateKey)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		s.log.Debug("No stored state, starting from an empty cursor")
		return domain.State{}, nil
	}
	if err != nil {
		s.log.WithError(err).Error("Failed to read state from BadgerDB")
		return domain.State{}, fmt.Errorf("failed to read state: %w", err)
	}

	return decodeState(raw, s.log), nil
}

// Save writes the state record, overwriting any previous value.
func (s *BadgerCursorStore) Save(ctx context.Context, state domain.State) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(stateKey, raw))
	})
	if err != nil {
		s.log.WithError(err).Error("Failed to save state to BadgerDB")
		return fmt.Errorf("failed to save state: %w", err)
	}

	s.log.WithField("cursor", state.Cursor()).Debug("State saved")
	return nil
}

// RunGC reclaims value log space until ctx is cancelled.
func (s *BadgerCursorStore) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			err := s.db.RunValueLogGC(0.7)
			switch {
			case err == nil:
				s.log.Debug("BadgerDB GC completed")
			case errors.Is(err, badger.ErrNoRewrite):
				s.log.Debug("BadgerDB GC: no rewrite needed")
			default:
				s.log.WithError(err).Warn("BadgerDB GC failed")
			}
		case <-ctx.Done():
			return
		}
	}
}

// decodeState parses a stored record. Corrupt data is logged and treated as empty.
func decodeState(raw []byte, log logrus.FieldLogger) domain.State {
	var state domain.State
	if err := json.Unmarshal(raw, &state); err != nil {
		log.WithError(err).Warn("Stored state is corrupt, treating it as empty")
		return domain.State{}
	}
	return state
}

// badgerLogger adapts logrus.FieldLogger to Badger's logger interface.
type badgerLogger struct {
	logger logrus.FieldLogger
}

func (l *badgerLogger) Errorf(f string, v ...interface{}) {
	l.logger.Errorf(f, v...)
}
func (l *badgerLogger) Warningf(f string, v ...interface{}) {
	l.logger.Warningf(f, v...)
}
func (l *badgerLogger) Infof(f string, v ...interface{}) {
	l.logger.Infof(f, v...)
}
func (l *badgerLogger) Debugf(f string, v ...interface{}) {
	l.logger.Debugf(f, v...)
}

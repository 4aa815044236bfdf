// Package badgerstore implements the repository interfaces on BadgerDB.
//
// The layout follows the persisted contract directly: one JSON-encoded list
// of records per (kind, ownerID) key, plus one global list of identities.
// Badger transactions give the atomic per-key rewrite each mutation needs.
package badgerstore

import (
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Config holds configuration for the embedded database.
type Config struct {
	// Path is the directory for database files. Ignored when InMemory is set.
	Path string
	// InMemory disables disk persistence; used by tests.
	InMemory bool
	// SyncWrites forces fsync on every commit.
	SyncWrites bool
	// Logger receives badger's internal messages; nil silences them.
	Logger *zap.Logger
}

// Store wraps one opened database shared by the typed repositories.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) the database.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1)
	if cfg.Logger != nil {
		opts = opts.WithLogger(&zapBadgerLogger{log: cfg.Logger.Sugar()})
	} else {
		opts = opts.WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	return &Store{db: db}, nil
}

// Close flushes and closes the database.
func (s *Store) Close() error { return s.db.Close() }

// zapBadgerLogger adapts zap to badger's Logger interface.
type zapBadgerLogger struct {
	log *zap.SugaredLogger
}

func (l *zapBadgerLogger) Errorf(f string, args ...any)   { l.log.Errorf(f, args...) }
func (l *zapBadgerLogger) Warningf(f string, args ...any) { l.log.Warnf(f, args...) }
func (l *zapBadgerLogger) Infof(f string, args ...any)    { l.log.Debugf(f, args...) }
func (l *zapBadgerLogger) Debugf(f string, args ...any)   { l.log.Debugf(f, args...) }

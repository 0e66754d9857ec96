package cachestore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/dgraph-io/badger/v4"
)

// Config holds configuration for a cache store instance.
type Config struct {
	// Path is the directory for the underlying database files. Required
	// unless InMemory is set.
	Path string
	// InMemory keeps the store in RAM only. Useful for tests.
	InMemory bool
	// Namespace tags every entry with an environment namespace, so caches
	// produced under different execution environments never collide.
	Namespace string
	// Logger receives database-internal log lines. Nil disables them.
	Logger *slog.Logger
}

// Store is a grow-only key/value cache backed by BadgerDB. Safe for
// concurrent use.
type Store struct {
	db        *badger.DB
	namespace string
}

// Open creates or opens a cache store with the given configuration.
func Open(cfg Config) (*Store, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("cachestore: path is required for a persistent store")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("cachestore: create directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}

	if cfg.Logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: cfg.Logger})
	} else {
		opts = opts.WithLogger(nil)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("cachestore: open database: %w", err)
	}
	return &Store{db: db, namespace: cfg.Namespace}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Restore looks up the blob saved under key. The second return value is
// false on a miss.
func (s *Store) Restore(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	var blob []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(s.storageKey(key))
		if err != nil {
			return err
		}
		blob, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cachestore: restore %q: %w", key, err)
	}
	return blob, true, nil
}

// Save writes blob under key. Entries are immutable: saving an existing key
// is a no-op, never an overwrite.
func (s *Store) Save(ctx context.Context, key string, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(s.storageKey(key)); err == nil {
			return nil // already present, keep the existing entry
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set(s.storageKey(key), blob)
	})
	if err != nil {
		return fmt.Errorf("cachestore: save %q: %w", key, err)
	}
	return nil
}

func (s *Store) storageKey(key string) []byte {
	if s.namespace == "" {
		return []byte(key)
	}
	return []byte(s.namespace + "/" + key)
}

// badgerLogger adapts slog.Logger to BadgerDB's Logger interface.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

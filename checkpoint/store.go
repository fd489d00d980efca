// SPDX-License-Identifier: MIT

package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/katalvlaran/irtcalc/irt"
	"go.uber.org/zap"
)

// Learning snapshots live under keyPrefix, post-processed results under
// finalPrefix, so resuming never starts from a pruned or standardized model.
const (
	keyPrefix   = "irt/"
	finalPrefix = "final/"
)

// Config configures Open.
type Config struct {
	// Path is the database directory; ignored when InMemory is set.
	Path string
	// InMemory keeps everything in memory, for tests.
	InMemory bool
	// SyncWrites flushes every save to disk.
	SyncWrites bool
	// Logger receives Badger's own log lines; nil silences them.
	Logger *zap.Logger
}

// DefaultConfig returns a durable configuration for path.
func DefaultConfig(path string) Config {
	return Config{Path: path, SyncWrites: true}
}

// InMemoryConfig returns a configuration without disk persistence.
func InMemoryConfig() Config {
	return Config{InMemory: true}
}

// badgerLogger routes Badger's logger to zap.
type badgerLogger struct {
	log *zap.SugaredLogger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.log.Errorf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.log.Warnf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.log.Infof(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.log.Debugf(strings.TrimSpace(format), args...)
}

// Store saves and loads model snapshots.
type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens or creates a store.
func Open(cfg Config) (*Store, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Path == "" {
			return nil, ErrNoPath
		}
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("checkpoint: create %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
		opts = opts.WithLogger(nil)
	} else {
		opts = opts.WithLogger(badgerLogger{log: log.Named("badger").Sugar()})
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("checkpoint: open: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// NewRunID returns a fresh random run id.
func NewRunID() string { return uuid.NewString() }

func runPrefix(run string) []byte { return []byte(keyPrefix + run + "/") }

func key(run string, iter int) []byte {
	return []byte(fmt.Sprintf("%s%s/%08d", keyPrefix, run, iter))
}

func checkRun(run string) error {
	if run == "" || strings.Contains(run, "/") {
		return fmt.Errorf("%q: %w", run, ErrBadRunID)
	}
	return nil
}

func finalKey(run string) []byte { return []byte(finalPrefix + run + "/") }

// Save stores snap as iteration iter of run, replacing any previous value.
func (s *Store) Save(ctx context.Context, run string, iter int, snap *irt.Snapshot) error {
	if err := checkRun(run); err != nil {
		return err
	}
	if err := s.put(ctx, key(run, iter), snap); err != nil {
		return fmt.Errorf("checkpoint: save %s/%d: %w", run, iter, err)
	}
	s.log.Debug("checkpoint saved", zap.String("run", run), zap.Int("iteration", iter))
	return nil
}

// SaveFinal stores the post-processed result of run. It is kept apart
// from the learning snapshots and is not visible to List or Latest.
func (s *Store) SaveFinal(ctx context.Context, run string, snap *irt.Snapshot) error {
	if err := checkRun(run); err != nil {
		return err
	}
	if err := s.put(ctx, finalKey(run), snap); err != nil {
		return fmt.Errorf("checkpoint: save final %s: %w", run, err)
	}
	s.log.Debug("final result saved", zap.String("run", run))
	return nil
}

func (s *Store) put(ctx context.Context, k []byte, snap *irt.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	val, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(k, val)
	})
}

// Load returns iteration iter of run.
func (s *Store) Load(run string, iter int) (*irt.Snapshot, error) {
	if err := checkRun(run); err != nil {
		return nil, err
	}
	return s.get(key(run, iter), fmt.Sprintf("%s/%d", run, iter))
}

// LoadFinal returns the post-processed result of run.
func (s *Store) LoadFinal(run string) (*irt.Snapshot, error) {
	if err := checkRun(run); err != nil {
		return nil, err
	}
	return s.get(finalKey(run), run+" final")
}

func (s *Store) get(k []byte, name string) (*irt.Snapshot, error) {
	var snap irt.Snapshot
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(k)
		if err != nil {
			return err
		}
		return item.Value(func(v []byte) error { return json.Unmarshal(v, &snap) })
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("checkpoint: load %s: %w", name, err)
	}
	return &snap, nil
}

// Latest returns the snapshot of run with the highest iteration.
func (s *Store) Latest(run string) (*irt.Snapshot, int, error) {
	iters, err := s.List(run)
	if err != nil {
		return nil, 0, err
	}
	if len(iters) == 0 {
		return nil, 0, fmt.Errorf("%s: %w", run, ErrNotFound)
	}
	last := iters[len(iters)-1]
	snap, err := s.Load(run, last)
	return snap, last, err
}

// List returns the stored iterations of run in increasing order.
func (s *Store) List(run string) ([]int, error) {
	if err := checkRun(run); err != nil {
		return nil, err
	}
	prefix := runPrefix(run)
	var out []int
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			k := string(it.Item().Key()[len(prefix):])
			n, err := strconv.Atoi(k)
			if err != nil {
				return fmt.Errorf("checkpoint: malformed key %q: %w", it.Item().Key(), err)
			}
			out = append(out, n)
		}
		return nil
	})
	return out, err
}

// Runs returns every run id with at least one snapshot, sorted.
func (s *Store) Runs() ([]string, error) {
	var out []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			rest := string(it.Item().Key()[len(keyPrefix):])
			run, _, _ := strings.Cut(rest, "/")
			if len(out) == 0 || out[len(out)-1] != run {
				out = append(out, run)
			}
		}
		return nil
	})
	return out, err
}

// Delete removes every snapshot of run, including its final result.
func (s *Store) Delete(run string) error {
	if err := checkRun(run); err != nil {
		return err
	}
	return s.db.DropPrefix(runPrefix(run), finalKey(run))
}

// Callback returns an irt.Callback that saves a snapshot of the model
// every `every` iterations, numbering iterations from the model history.
// Save failures are logged and do not stop learning.
func (s *Store) Callback(ctx context.Context, run string, every int) irt.Callback {
	if every < 1 {
		every = 1
	}
	return func(m *irt.Model, _ float64) {
		n := len(m.LogProbHistory())
		if n%every != 0 {
			return
		}
		if err := s.Save(ctx, run, n, m.Snapshot()); err != nil {
			s.log.Warn("checkpoint save failed", zap.String("run", run), zap.Int("iteration", n), zap.Error(err))
		}
	}
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dex_watch/internal/kvstore"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/options"
	"github.com/timshannon/badgerhold/v4"
)

const valueLogGCInterval = 30 * time.Minute

type localEntry struct {
	Key   string
	Value []byte
}

// LocalStore is the badger-backed local namespace. With an empty directory it
// runs fully in memory, which is what the volatile quote cache wants.
type LocalStore struct {
	store *badgerhold.Store

	stop chan struct{}
	once sync.Once
}

// NewLocalStore opens a badgerhold store in dir, or in memory when dir is empty.
func NewLocalStore(dir string) (*LocalStore, error) {
	isInMemory := len(dir) <= 0

	opts := badger.DefaultOptions(dir)
	opts.Logger = badgerLogger{}

	if isInMemory {
		opts.InMemory = true
	} else {
		opts.Compression = options.ZSTD
	}

	db, err := badgerhold.Open(badgerhold.Options{
		Encoder:          badgerhold.DefaultEncode,
		Decoder:          badgerhold.DefaultDecode,
		SequenceBandwith: 100,
		Options:          opts,
	})
	if err != nil {
		return nil, fmt.Errorf("opening local store: %w", err)
	}

	l := &LocalStore{store: db, stop: make(chan struct{})}
	if !isInMemory {
		go l.runValueLogGC()
	}
	return l, nil
}

func (l *LocalStore) runValueLogGC() {
	ticker := time.NewTicker(valueLogGCInterval)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.store.Badger().RunValueLogGC(0.5); err != nil &&
				!errors.Is(err, badger.ErrNoRewrite) {
				slog.Error("Local store value log GC failed", slog.Any("error", err))
			}
		}
	}
}

// Close stops background GC and closes the database.
func (l *LocalStore) Close() error {
	l.once.Do(func() { close(l.stop) })
	return l.store.Close()
}

// Backend returns the kvstore.Backend view of the store.
func (l *LocalStore) Backend() kvstore.Backend {
	return l
}

func (l *LocalStore) Load(_ context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		var e localEntry
		if err := l.store.Get(k, &e); err != nil {
			if errors.Is(err, badgerhold.ErrNotFound) {
				continue
			}
			return nil, err
		}
		out[k] = e.Value
	}
	return out, nil
}

// Save writes all values in one badger transaction.
func (l *LocalStore) Save(_ context.Context, values map[string][]byte) error {
	return l.store.Badger().Update(func(tx *badger.Txn) error {
		for k, v := range values {
			if err := l.store.TxUpsert(tx, k, &localEntry{Key: k, Value: v}); err != nil {
				return err
			}
		}
		return nil
	})
}

// badgerLogger routes badger's internal logging to slog.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...interface{}) {
	slog.Error(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (badgerLogger) Warningf(format string, args ...interface{}) {
	slog.Warn(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (badgerLogger) Infof(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

func (badgerLogger) Debugf(format string, args ...interface{}) {
	slog.Debug(fmt.Sprintf(format, args...), slog.String("component", "badger"))
}

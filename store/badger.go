package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Key prefixes.
const (
	prefixSession = "s:" // session payload
)

// Badger is a BadgerDB-backed SessionStore. Entries carry a native TTL so
// expired sessions disappear even if no sweep runs; Sweep still removes
// them eagerly by creation time.
type Badger struct {
	db  *badger.DB
	ttl time.Duration
	mu  sync.RWMutex
}

var _ SessionStore = (*Badger)(nil)

// NewBadger opens or creates a Badger database in dir. An empty dir opens
// an in-memory database. ttl <= 0 disables native expiry.
func NewBadger(dir string, ttl time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(dir).
		WithNumCompactors(2).
		WithLoggingLevel(badger.ERROR) // Suppress INFO/WARNING logs
	if dir == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger DB: %w", err)
	}
	return &Badger{db: db, ttl: ttl}, nil
}

func (b *Badger) sessionKey(id string) []byte {
	return []byte(prefixSession + id)
}

// Put stores a session, replacing any previous value.
func (b *Badger) Put(ctx context.Context, s *Session) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}

	data, err := json.Marshal(badgerRecord{Session: s, CSV: s.CSV})
	if err != nil {
		return fmt.Errorf("marshaling session: %w", err)
	}

	return b.db.Update(func(txn *badger.Txn) error {
		e := badger.NewEntry(b.sessionKey(s.ID), data)
		if b.ttl > 0 {
			e = e.WithTTL(b.ttl)
		}
		return txn.SetEntry(e)
	})
}

// badgerRecord adds the CSV text, which Session omits from its JSON form.
type badgerRecord struct {
	*Session
	CSV string `json:"csv"`
}

// Get loads a session.
func (b *Badger) Get(ctx context.Context, id string) (*Session, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, ErrClosed
	}

	rec := badgerRecord{Session: &Session{}}
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading session: %w", err)
	}
	rec.Session.CSV = rec.CSV
	return rec.Session, nil
}

// Delete removes a session.
func (b *Badger) Delete(ctx context.Context, id string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return ErrClosed
	}

	return b.db.Update(func(txn *badger.Txn) error {
		key := b.sessionKey(id)
		if _, err := txn.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return ErrNotFound
			}
			return err
		}
		return txn.Delete(key)
	})
}

// Sweep deletes sessions created before the cutoff.
func (b *Badger) Sweep(ctx context.Context, before time.Time) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return 0, ErrClosed
	}

	var expired [][]byte
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixSession)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			var meta struct {
				CreatedAt time.Time `json:"created_at"`
			}
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			}); err != nil {
				continue
			}
			if meta.CreatedAt.Before(before) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning sessions: %w", err)
	}
	if len(expired) == 0 {
		return 0, nil
	}

	wb := b.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			return 0, fmt.Errorf("deleting session: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flushing deletes: %w", err)
	}
	return len(expired), nil
}

// Count returns the number of live sessions.
func (b *Badger) Count(ctx context.Context) (int, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return 0, ErrClosed
	}

	n := 0
	err := b.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixSession)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close releases all resources held by the backend.
func (b *Badger) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

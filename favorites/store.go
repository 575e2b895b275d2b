package favorites

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store persists one list per session. Update performs an atomic
// read-modify-write so concurrent interactions of the same session do not
// lose updates. A session that was never written reads as a nil List; once
// written it reads as non-nil, even when empty.
type Store interface {
	Load(ctx context.Context, session string) (List, error)
	Update(ctx context.Context, session string, fn func(List) List) (List, error)
	Close() error
}

// MemoryStore keeps lists in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	lists map[string]List
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{lists: make(map[string]List)}
}

func (m *MemoryStore) Load(_ context.Context, session string) (List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clone(m.lists[session]), nil
}

func (m *MemoryStore) Update(_ context.Context, session string, fn func(List) List) (List, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := known(clone(fn(clone(m.lists[session]))))
	m.lists[session] = next
	return clone(next), nil
}

func (m *MemoryStore) Close() error { return nil }

var bucketName = []byte("favorites")

// BoltStore keeps lists in a bbolt file, one JSON encoded list per session key.
type BoltStore struct {
	db *bolt.DB
}

// OpenBoltStore opens (creating if needed) the database at path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating favorites bucket: %w", err)
	}
	return &BoltStore{db: db}, nil
}

func (b *BoltStore) Load(_ context.Context, session string) (List, error) {
	var l List
	err := b.db.View(func(tx *bolt.Tx) error {
		var err error
		l, err = decode(tx.Bucket(bucketName).Get([]byte(session)))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("loading favorites for %s: %w", session, err)
	}
	return l, nil
}

func (b *BoltStore) Update(_ context.Context, session string, fn func(List) List) (List, error) {
	var next List
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(bucketName)
		current, err := decode(bucket.Get([]byte(session)))
		if err != nil {
			return err
		}
		next = known(fn(current))
		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("encoding favorites: %w", err)
		}
		return bucket.Put([]byte(session), data)
	})
	if err != nil {
		return nil, fmt.Errorf("updating favorites for %s: %w", session, err)
	}
	return next, nil
}

func (b *BoltStore) Close() error {
	return b.db.Close()
}

func decode(data []byte) (List, error) {
	if data == nil {
		return nil, nil
	}
	var l List
	if err := json.Unmarshal(data, &l); err != nil {
		return nil, fmt.Errorf("decoding favorites: %w", err)
	}
	if l == nil {
		l = List{}
	}
	return l, nil
}

func clone(l List) List {
	if l == nil {
		return nil
	}
	out := make(List, len(l))
	copy(out, l)
	return out
}

func known(l List) List {
	if l == nil {
		return List{}
	}
	return l
}

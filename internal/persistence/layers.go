package persistence

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v3"
	_ "github.com/mattn/go-sqlite3"
)

// Layer is one tier of the layered persistence fan-out.
type Layer interface {
	Write(data []byte, at time.Time) error
	Read() (data []byte, at time.Time, ok bool, err error)
	Close() error
}

// ---------------------------------------------------------------------
// Primary: badger, grounded on navindex-colly/storage/badger's connect/
// stgBase shape (single-key blob store instead of its per-record prefix
// scheme, since the snapshot is one opaque blob rather than many rows).

const primaryBlobKey = "snapshot"

// BadgerLayer is the primary persistence layer: a transactional,
// large-quota key-value store holding the full snapshot blob.
type BadgerLayer struct {
	db *badger.DB
}

// OpenBadgerLayer opens (or creates) a badger database at path.
func OpenBadgerLayer(path string) (*BadgerLayer, error) {
	opts := badger.DefaultOptions(path)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerLayer{db: db}, nil
}

func (b *BadgerLayer) Write(data []byte, at time.Time) error {
	enc, err := gobEncode(stampedBlob{Data: data, At: at})
	if err != nil {
		return err
	}
	return b.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(primaryBlobKey), enc)
	})
}

func (b *BadgerLayer) Read() ([]byte, time.Time, bool, error) {
	var raw []byte
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(primaryBlobKey))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	sb, err := decodeStamped(raw)
	if err != nil {
		return nil, time.Time{}, false, err
	}
	return sb.Data, sb.At, true, nil
}

func (b *BadgerLayer) Close() error { return b.db.Close() }

// ---------------------------------------------------------------------
// Secondary: sqlite3, grounded on navindex-colly/storage/sqlite3's
// single-table prepared-statement shape, collapsed to one row since the
// snapshot is a single blob rather than a per-URL table.

// SQLiteLayer is the secondary persistence layer: a fast flat store used
// as the quick-path cache/read-path.
type SQLiteLayer struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLiteLayer opens (or creates) a sqlite3 database at path with the
// single-row snapshot table.
func OpenSQLiteLayer(path string) (*SQLiteLayer, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	const create = `CREATE TABLE IF NOT EXISTS snapshot (
		id INTEGER PRIMARY KEY CHECK (id = 0),
		data BLOB NOT NULL,
		saved_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(create); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteLayer{db: db}, nil
}

func (s *SQLiteLayer) Write(data []byte, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	const upsert = `INSERT INTO snapshot (id, data, saved_at) VALUES (0, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, saved_at = excluded.saved_at`
	_, err := s.db.Exec(upsert, data, at.UnixNano())
	return err
}

func (s *SQLiteLayer) Read() ([]byte, time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var data []byte
	var savedAtNano int64
	err := s.db.QueryRow(`SELECT data, saved_at FROM snapshot WHERE id = 0`).Scan(&data, &savedAtNano)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, false, nil
	}
	if err != nil {
		return nil, time.Time{}, false, err
	}
	return data, time.Unix(0, savedAtNano), true, nil
}

func (s *SQLiteLayer) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------
// Tertiary: in-memory, grounded on navindex-colly/storage/mem's
// map-backed cache shape. Stands in for a cross-device sync cache;
// entries above maxTertiaryBlobSize are skipped per spec.md §4.10.

const maxTertiaryBlobSize = 100 * 1024 // ~100KB per entry

// ErrBlobTooLarge is returned by MemoryLayer.Write when data exceeds the
// tertiary layer's per-entry size limit.
var ErrBlobTooLarge = errors.New("persistence: blob exceeds tertiary layer size limit")

// MemoryLayer is the tertiary persistence layer: a size-gated in-memory
// stand-in for a cross-device sync cache.
type MemoryLayer struct {
	mu   sync.Mutex
	blob []byte
	at   time.Time
	set  bool
}

// NewMemoryLayer returns an empty MemoryLayer.
func NewMemoryLayer() *MemoryLayer { return &MemoryLayer{} }

func (m *MemoryLayer) Write(data []byte, at time.Time) error {
	if len(data) > maxTertiaryBlobSize {
		return ErrBlobTooLarge
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.blob = append([]byte(nil), data...)
	m.at = at
	m.set = true
	return nil
}

func (m *MemoryLayer) Read() ([]byte, time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set {
		return nil, time.Time{}, false, nil
	}
	return append([]byte(nil), m.blob...), m.at, true, nil
}

func (m *MemoryLayer) Close() error { return nil }

// ---------------------------------------------------------------------
// stamped-blob gob envelope shared by the durable layers.

type stampedBlob struct {
	Data []byte
	At   time.Time
}

func decodeStamped(raw []byte) (stampedBlob, error) {
	var sb stampedBlob
	if len(raw) == 0 {
		return sb, ErrEmptySnapshot
	}
	err := gobDecode(raw, &sb)
	return sb, err
}

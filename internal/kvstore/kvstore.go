// Package kvstore implements the Key/Value Storage Namespacer (component
// C9): a prefix-based view over a per-origin ambient key/value store so
// that each identity only ever sees its own keys.
//
// Grounded on ble-cookiejar's storage.go (a single Backend interface
// wrapping an underlying store), generalized from "one process-wide
// backend" to "one namespaced view per identity per origin", the same
// wrapping shape navindex-colly/storage uses to present badger/sqlite3/
// mem behind one Store interface.
package kvstore

import (
	"errors"
	"strings"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
)

// ErrIdentityUnavailable is returned by every operation when the
// identity id for the calling origin/frame has not yet been resolved,
// per spec.md §4.9 ("raise an error rather than falling through").
var ErrIdentityUnavailable = errors.New("kvstore: identity id unavailable")

// keyPrefix builds the physical key prefix for id, per spec.md §4.9.
func keyPrefix(id identity.ID) string {
	return "__SID_" + string(id) + "__"
}

// Backend is the ambient, origin-scoped key/value store the host
// exposes (e.g. a DOM Storage object). It is unaware of identities.
type Backend interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Delete(key string)
	Keys() []string
}

// Namespacer is a per-origin view restricted to one identity's
// prefixed keyspace.
type Namespacer struct {
	backend Backend
}

// New returns a Namespacer over backend. A nil identity id on any call
// yields ErrIdentityUnavailable rather than operating unscoped.
func New(backend Backend) *Namespacer {
	return &Namespacer{backend: backend}
}

func (n *Namespacer) physicalKey(id identity.ID, key string) (string, error) {
	if id == "" {
		return "", ErrIdentityUnavailable
	}
	return keyPrefix(id) + key, nil
}

// Get reads the logical key K for id.
func (n *Namespacer) Get(id identity.ID, key string) (string, bool, error) {
	phys, err := n.physicalKey(id, key)
	if err != nil {
		return "", false, err
	}
	v, ok := n.backend.Get(phys)
	return v, ok, nil
}

// Set writes the logical key K for id.
func (n *Namespacer) Set(id identity.ID, key, value string) error {
	phys, err := n.physicalKey(id, key)
	if err != nil {
		return err
	}
	n.backend.Set(phys, value)
	return nil
}

// Delete removes the logical key K for id.
func (n *Namespacer) Delete(id identity.ID, key string) error {
	phys, err := n.physicalKey(id, key)
	if err != nil {
		return err
	}
	n.backend.Delete(phys)
	return nil
}

// Length reports the number of keys belonging to id.
func (n *Namespacer) Length(id identity.ID) (int, error) {
	if id == "" {
		return 0, ErrIdentityUnavailable
	}
	prefix := keyPrefix(id)
	count := 0
	for _, k := range n.backend.Keys() {
		if strings.HasPrefix(k, prefix) {
			count++
		}
	}
	return count, nil
}

// KeyAt returns the index-th logical key belonging to id (unspecified
// but stable ordering within a single Keys() snapshot), with the
// physical prefix stripped, mirroring a DOM Storage "key(i)" call.
func (n *Namespacer) KeyAt(id identity.ID, index int) (string, bool, error) {
	if id == "" {
		return "", false, ErrIdentityUnavailable
	}
	prefix := keyPrefix(id)
	i := 0
	for _, k := range n.backend.Keys() {
		if !strings.HasPrefix(k, prefix) {
			continue
		}
		if i == index {
			return strings.TrimPrefix(k, prefix), true, nil
		}
		i++
	}
	return "", false, nil
}

// Enumerate returns every logical key belonging to id, prefix stripped.
func (n *Namespacer) Enumerate(id identity.ID) ([]string, error) {
	if id == "" {
		return nil, ErrIdentityUnavailable
	}
	prefix := keyPrefix(id)
	var out []string
	for _, k := range n.backend.Keys() {
		if strings.HasPrefix(k, prefix) {
			out = append(out, strings.TrimPrefix(k, prefix))
		}
	}
	return out, nil
}

// Clear removes every key belonging to id, leaving every other
// identity's (and the origin's unscoped) keys untouched.
func (n *Namespacer) Clear(id identity.ID) error {
	if id == "" {
		return ErrIdentityUnavailable
	}
	prefix := keyPrefix(id)
	for _, k := range n.backend.Keys() {
		if strings.HasPrefix(k, prefix) {
			n.backend.Delete(k)
		}
	}
	return nil
}

// MapBackend is a minimal in-memory Backend, used by the host-side demo
// harness and by tests.
type MapBackend struct {
	data map[string]string
}

// NewMapBackend returns an empty MapBackend.
func NewMapBackend() *MapBackend {
	return &MapBackend{data: make(map[string]string)}
}

func (b *MapBackend) Get(key string) (string, bool) { v, ok := b.data[key]; return v, ok }
func (b *MapBackend) Set(key, value string)         { b.data[key] = value }
func (b *MapBackend) Delete(key string)             { delete(b.data, key) }
func (b *MapBackend) Keys() []string {
	keys := make([]string, 0, len(b.data))
	for k := range b.data {
		keys = append(keys, k)
	}
	return keys
}

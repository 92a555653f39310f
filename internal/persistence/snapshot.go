// Package persistence implements the Persistence Layer (component C10):
// a layered primary/secondary/tertiary write fan-out, debounced or
// immediate per spec.md §4.10, snapshot encoding, and the startup
// newest-wins read policy.
//
// Grounded on ble-cookiejar's storage.go/jar.go gob encoding contract
// (gob.GobEncoder/GobDecoder on the whole jar) for the snapshot wire
// format, and on navindex-colly/storage's sentinel-error + CookiesToBytes
// gob-blob convention for the byte-level encode/decode helpers.
package persistence

import (
	"bytes"
	"encoding/gob"
	"errors"
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/cookie"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
)

// ErrEmptySnapshot mirrors navindex-colly/storage's ErrStorageEmpty for
// the "no layer holds a snapshot yet" boot condition.
var ErrEmptySnapshot = errors.New("persistence: no snapshot available")

// gobCookie is the wire shape of one stored cookie; Sent separately from
// internal/cookie.Cookie to keep gob's exported-field requirement from
// leaking into the domain type's otherwise-private layout.
type gobCookie struct {
	Name, Value  string
	Domain, Path string
	Secure       bool
	HttpOnly     bool
	SameSite     cookie.SameSite
	Expires      time.Time
	Created      time.Time
	LastAccess   time.Time
}

func toGobCookie(c *cookie.Cookie) gobCookie {
	return gobCookie{
		Name: c.Name, Value: c.Value, Domain: c.Domain, Path: c.Path,
		Secure: c.Secure, HttpOnly: c.HttpOnly, SameSite: c.SameSite,
		Expires: c.Expires, Created: c.Created, LastAccess: c.LastAccess,
	}
}

func (g gobCookie) toCookie() *cookie.Cookie {
	return &cookie.Cookie{
		Name: g.Name, Value: g.Value, Domain: g.Domain, Path: g.Path,
		Secure: g.Secure, HttpOnly: g.HttpOnly, SameSite: g.SameSite,
		Expires: g.Expires, Created: g.Created, LastAccess: g.LastAccess,
	}
}

// IdentitySnapshot is one identity's persisted state, spec.md §6
// "Persisted state layout".
type IdentitySnapshot struct {
	ID             identity.ID
	Name           string
	Color          identity.Color
	Tier           policy.Tier
	CreatedAt      time.Time
	LastAccessedAt time.Time
	PersistedTabs  []identity.PersistedTab
	Cookies        []gobCookie
}

// TabMetadata records the last known (url, identity, title) for a tab
// handle, spec.md §6 "tab_metadata".
type TabMetadata struct {
	URL      string
	Identity identity.ID
	Title    string
}

// Snapshot is the full logical persisted blob, spec.md §6.
type Snapshot struct {
	Identities  []IdentitySnapshot
	TabMetadata map[identity.TabHandle]TabMetadata
	SavedAt     time.Time
}

// Encode serializes s with gob, the same wire mechanism ble-cookiejar
// uses for its own Jar.GobEncode.
func Encode(s Snapshot) ([]byte, error) {
	return gobEncode(s)
}

// Decode parses a snapshot previously produced by Encode.
func Decode(data []byte) (Snapshot, error) {
	var s Snapshot
	if len(data) == 0 {
		return s, ErrEmptySnapshot
	}
	err := gobDecode(data, &s)
	return s, err
}

// gobEncode/gobDecode are small generic wrappers shared by Snapshot and
// the layers' internal stamped-blob envelope.
func gobEncode[T any](v T) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := gob.NewEncoder(buf).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func gobDecode[T any](data []byte, out *T) error {
	return gob.NewDecoder(bytes.NewReader(data)).Decode(out)
}

// RestoreIdentity adopts one IdentitySnapshot into reg, re-hydrating its
// jar, for use by both startup restore and import_snapshot.
func RestoreIdentity(reg *identity.Registry, snap IdentitySnapshot, now time.Time) *identity.Identity {
	ident := reg.Adopt(snap.ID, snap.Name, snap.Color, snap.Tier, snap.CreatedAt, snap.LastAccessedAt, snap.PersistedTabs)
	cookies := make([]*cookie.Cookie, len(snap.Cookies))
	for i, g := range snap.Cookies {
		cookies[i] = g.toCookie()
	}
	ident.Jar.Restore(cookies, now)
	return ident
}

// BuildSnapshot captures the registry's current state into a Snapshot.
func BuildSnapshot(reg *identity.Registry, tabMeta map[identity.TabHandle]TabMetadata, now time.Time) Snapshot {
	e := reg.Enumerate()
	all := append(append([]*identity.Identity{}, e.Active...), e.Dormant...)

	snap := Snapshot{TabMetadata: tabMeta, SavedAt: now}
	for _, ident := range all {
		cookies := ident.Jar.All(now)
		gobCookies := make([]gobCookie, len(cookies))
		for i, c := range cookies {
			gobCookies[i] = toGobCookie(c)
		}
		snap.Identities = append(snap.Identities, IdentitySnapshot{
			ID:             ident.ID,
			Name:           ident.Name,
			Color:          ident.Color,
			Tier:           ident.Tier,
			CreatedAt:      ident.CreatedAt,
			LastAccessedAt: ident.LastAccessedAt,
			PersistedTabs:  ident.PersistedTabs(),
			Cookies:        gobCookies,
		})
	}
	return snap
}

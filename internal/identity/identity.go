// Package identity implements the Identity data model and the Identity
// Registry (component C4): create/rename/recolor/bind/enumerate/delete,
// gated by internal/policy, each identity owning one internal/jar.Jar.
//
// Grounded on the repository-over-model shape of
// juliankoehn-goplugins/core/account (models.User + store.userStore):
// a plain struct for the entity, a Store-shaped registry guarding it
// behind a mutex, uuid-derived identifiers. ble-cookiejar contributes
// nothing here — it has no concept of multiple named owners of a jar —
// so the Identity/Registry split is original-to-this-package structure,
// in the small-struct-explicit-CRUD idiom the rest of this module uses
// (no reflection-based ORM).
package identity

import (
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/jar"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
)

// TabHandle is whatever opaque handle the host uses to identify a
// browsing surface (spec.md §3 "Tab Binding Map").
type TabHandle string

// PersistedTab is a captured (url, domain, path, title, saved_at) record
// used for restart reattachment (spec.md §3 "Persisted-tab entry").
type PersistedTab struct {
	URL     string
	Domain  string
	Path    string
	Title   string
	SavedAt time.Time
}

// maxPersistedTabs caps persisted_tabs per identity per spec.md §3's
// entity lifecycle table ("list capped at 50 per identity").
const maxPersistedTabs = 50

// Identity is a persistent, named collection of per-origin HTTP state.
type Identity struct {
	ID             ID
	Name           string
	Color          Color
	Tier           policy.Tier
	CreatedAt      time.Time
	LastAccessedAt time.Time

	Jar *jar.Jar

	tabs          map[TabHandle]struct{}
	persistedTabs []PersistedTab
}

func newIdentity(id ID, tier policy.Tier, color Color, now time.Time) *Identity {
	return &Identity{
		ID:             id,
		Tier:           tier,
		Color:          color,
		CreatedAt:      now,
		LastAccessedAt: now,
		Jar:            jar.New(),
		tabs:           make(map[TabHandle]struct{}),
	}
}

// Active reports whether the identity has at least one bound tab.
func (i *Identity) Active() bool { return len(i.tabs) > 0 }

// Dormant reports whether the identity has zero bound tabs.
func (i *Identity) Dormant() bool { return !i.Active() }

// Tabs returns the currently bound tab handles.
func (i *Identity) Tabs() []TabHandle {
	tabs := make([]TabHandle, 0, len(i.tabs))
	for t := range i.tabs {
		tabs = append(tabs, t)
	}
	return tabs
}

// PersistedTabs returns the persisted-tab entries in first-insertion
// order; an update to an existing (domain, path) entry keeps its place.
func (i *Identity) PersistedTabs() []PersistedTab {
	out := make([]PersistedTab, len(i.persistedTabs))
	copy(out, i.persistedTabs)
	return out
}

// recordPersistedTab updates or appends the (domain, path) entry for a
// navigation event, capping the list at maxPersistedTabs by evicting the
// earliest-inserted entry.
func (i *Identity) recordPersistedTab(pt PersistedTab) {
	for idx := range i.persistedTabs {
		if i.persistedTabs[idx].Domain == pt.Domain && i.persistedTabs[idx].Path == pt.Path {
			i.persistedTabs[idx] = pt
			return
		}
	}
	i.persistedTabs = append(i.persistedTabs, pt)
	if len(i.persistedTabs) > maxPersistedTabs {
		i.persistedTabs = i.persistedTabs[len(i.persistedTabs)-maxPersistedTabs:]
	}
}

// removePersistedTabsFor drops persisted-tab entries matching (domain,
// path) exactly. Nothing in this module calls it: closing a tab
// (tabbind.Map.Close) leaves the identity's persisted_tabs unchanged.
func (i *Identity) removePersistedTabsFor(domain, path string) {
	out := i.persistedTabs[:0]
	for _, pt := range i.persistedTabs {
		if pt.Domain == domain && pt.Path == path {
			continue
		}
		out = append(out, pt)
	}
	i.persistedTabs = out
}

// Package tabbind implements the Tab Binding Map (component C5): the
// authoritative tab -> identity mapping, the opener/recent-domain
// inheritance rule, and the Domain Activity Trail those rules consult.
//
// No teacher precedent exists in ble-cookiejar (a single-owner library
// has no notion of multiple concurrent browsing surfaces); the shape —
// a small mutex-guarded map plus an ordered decision function — follows
// the corpus's general single-owner-state convention (spec.md §5,
// mirrored by ccdavis-gobus's middleware.go request-scoped state and
// davseby-sessionup's manager.go session-to-user map).
package tabbind

import (
	"strings"
	"sync"
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
)

// domainActivityTTL is the window after which a Domain Activity Trail
// entry is ignored by the inheritance rule and may be pruned (spec.md §3).
const domainActivityTTL = 30 * time.Second

type activityEntry struct {
	id       identity.ID
	lastSeen time.Time
}

// Map is the tab -> identity binding map plus the domain activity trail.
// It never mutates the Registry's own per-identity tab sets except
// through the Registry's own Bind/UnbindTab methods — Map is the single
// place that may call them, so the "never re-mapped while tab exists"
// invariant (spec.md §4.5) can be enforced in one spot.
type Map struct {
	mu       sync.Mutex
	bindings map[identity.TabHandle]identity.ID
	trail    map[string]activityEntry
	registry *identity.Registry
	nowFunc  func() time.Time
}

// New returns an empty Map backed by registry.
func New(registry *identity.Registry, nowFunc func() time.Time) *Map {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Map{
		bindings: make(map[identity.TabHandle]identity.ID),
		trail:    make(map[string]activityEntry),
		registry: registry,
		nowFunc:  nowFunc,
	}
}

// Lookup returns the identity bound to tab, if any.
func (m *Map) Lookup(tab identity.TabHandle) (identity.ID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bindings[tab]
	return id, ok
}

// Bind explicitly binds tab to id. Used for user-directed assignment and
// by Inherit. A tab that is already bound cannot be rebound (spec.md
// §4.5 "reassign is forbidden").
func (m *Map) Bind(tab identity.TabHandle, id identity.ID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, already := m.bindings[tab]; already {
		return false
	}
	if !m.registry.BindTab(id, tab) {
		return false
	}
	m.bindings[tab] = id
	return true
}

// Close detaches tab on tab close, per spec.md §4.5. Returns whether the
// identity became dormant as a result (its last tab).
func (m *Map) Close(tab identity.TabHandle) (id identity.ID, becameDormant bool, wasBound bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.bindings[tab]
	if !ok {
		return "", false, false
	}
	delete(m.bindings, tab)
	becameDormant = m.registry.UnbindTab(id, tab)
	return id, becameDormant, true
}

// isBlankNewTab reports URLs that must never trigger inheritance even if
// the recent-domain rule would otherwise match, per spec.md §4.5 rule 3.
func isBlankNewTab(url string) bool {
	if url == "" || url == "about:blank" {
		return true
	}
	return strings.HasSuffix(url, "://newtab") || strings.Contains(url, "://newtab/")
}

// Inherit applies the ordered inheritance rules of spec.md §4.5 and, if a
// decision is reached, binds newTab to the resulting identity.
//
//  1. If openerTab is bound, inherit its identity.
//  2. Else if navigatedURL's host has a Domain Activity Trail entry newer
//     than 30s, inherit that identity — unless navigatedURL is a blank new
//     tab, which never inherits.
//  3. Else no inheritance.
func (m *Map) Inherit(newTab identity.TabHandle, openerTab *identity.TabHandle, navigatedURL, navigatedHost string) (identity.ID, bool) {
	m.mu.Lock()
	var decided identity.ID
	var ok bool

	if openerTab != nil {
		if id, bound := m.bindings[*openerTab]; bound {
			decided, ok = id, true
		}
	}

	if !ok && !isBlankNewTab(navigatedURL) && navigatedHost != "" {
		now := m.nowFunc()
		if entry, found := m.trail[navigatedHost]; found && now.Sub(entry.lastSeen) < domainActivityTTL {
			decided, ok = entry.id, true
		}
	}
	m.mu.Unlock()

	if !ok {
		return "", false
	}
	if !m.Bind(newTab, decided) {
		return "", false
	}
	return decided, true
}

// RecordActivity touches the Domain Activity Trail for host on every
// intercepted outgoing request from a bound tab (spec.md §3).
func (m *Map) RecordActivity(host string, id identity.ID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trail[host] = activityEntry{id: id, lastSeen: m.nowFunc()}
}

// PruneActivity removes Domain Activity Trail entries older than the
// inheritance window; entries are also transparently ignored by Inherit
// once stale, so pruning is a housekeeping convenience, not a
// correctness requirement.
func (m *Map) PruneActivity() (removed int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.nowFunc()
	for host, entry := range m.trail {
		if now.Sub(entry.lastSeen) >= domainActivityTTL {
			delete(m.trail, host)
			removed++
		}
	}
	return removed
}

// BoundTabs returns every tab handle currently bound, for the scrubber.
func (m *Map) BoundTabs() []identity.TabHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	tabs := make([]identity.TabHandle, 0, len(m.bindings))
	for t := range m.bindings {
		tabs = append(tabs, t)
	}
	return tabs
}

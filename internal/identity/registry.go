package identity

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
)

// Reason is a structured refusal code surfaced to Registry callers,
// spec.md §7 "Refused-by-policy".
type Reason = policy.RefusalReason

// Result is the outcome of an operation that can be refused by policy
// without mutating any state.
type Result struct {
	Identity *Identity
	Refused  bool
	Reason   Reason
}

// Registry is the in-memory owner of every Identity. All mutation is
// serialized behind a single mutex (spec.md §5 "single logical owner of
// mutable state per process"); the Tab Binding Map lives inside each
// Identity and is mutated only through Registry methods, per spec.md §4.5
// ("reassign is forbidden").
type Registry struct {
	mu          sync.Mutex
	byID        map[ID]*Identity
	namesFolded map[string]ID // casefolded name -> id, for uniqueness
	createSeq   int
	nowFunc     func() time.Time
}

// NewRegistry returns an empty Registry. nowFunc defaults to time.Now and
// exists so tests can control the clock.
func NewRegistry(nowFunc func() time.Time) *Registry {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Registry{
		byID:        make(map[ID]*Identity),
		namesFolded: make(map[string]ID),
		nowFunc:     nowFunc,
	}
}

// Create admits a new identity for tier, consulting the Policy Gate for
// the concurrent-identity cap. If desiredColor is non-nil it must either
// be a palette entry for tier, or tier must permit custom colors.
func (r *Registry) Create(tier policy.Tier, desiredColor *Color) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	if ok, reason := policy.MayCreateIdentity(tier, len(r.byID)); !ok {
		return Result{Refused: true, Reason: reason}
	}

	var color Color
	if desiredColor != nil {
		if !policy.MayUseCustomColor(tier) && !InPalette(tier, *desiredColor) {
			return Result{Refused: true, Reason: policy.ReasonPaletteColor}
		}
		color = *desiredColor
	} else {
		color = DefaultColor(tier, r.createSeq)
	}

	now := r.nowFunc()
	id := newID(now.UnixMilli())
	ident := newIdentity(id, tier, color, now)
	r.byID[id] = ident
	r.createSeq++
	return Result{Identity: ident}
}

// Adopt inserts an identity reconstructed from persisted state (startup
// restore, or import_snapshot) bypassing the creation policy gate —
// admission was already decided when the identity was first created, and
// a restore must not re-refuse it for exceeding a cap that may since have
// tightened. The caller populates the returned Identity's Jar separately
// (the Persistence Layer's snapshot format keeps cookies encoded apart
// from identity metadata, spec.md §6).
func (r *Registry) Adopt(id ID, name string, color Color, tier policy.Tier, createdAt, lastAccessedAt time.Time, persistedTabs []PersistedTab) *Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident := newIdentity(id, tier, color, createdAt)
	ident.LastAccessedAt = lastAccessedAt
	ident.persistedTabs = persistedTabs
	if name != "" {
		ident.Name = name
		r.namesFolded[strings.ToLower(name)] = id
	}
	r.byID[id] = ident
	r.createSeq++
	return ident
}

// Rename changes an identity's name. An empty name (after trim) clears
// the name (spec.md §4.4 invariant). A non-empty name must be <= 50
// runes and unique case-insensitively across all identities.
func (r *Registry) Rename(id ID, name string) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byID[id]
	if !ok {
		return Result{Refused: true, Reason: policy.ReasonNameEmpty}
	}

	clean := sanitizeName(name)
	if clean == "" {
		r.clearFoldedName(ident)
		ident.Name = ""
		return Result{Identity: ident}
	}

	if nameRuneCount(clean) > maxNameRunes {
		return Result{Refused: true, Reason: policy.ReasonNameTooLong}
	}

	folded := strings.ToLower(clean)
	if owner, exists := r.namesFolded[folded]; exists && owner != id {
		return Result{Refused: true, Reason: policy.ReasonNameDuplicate}
	}

	r.clearFoldedName(ident)
	ident.Name = clean
	r.namesFolded[folded] = id
	return Result{Identity: ident}
}

func (r *Registry) clearFoldedName(ident *Identity) {
	if ident.Name == "" {
		return
	}
	delete(r.namesFolded, strings.ToLower(ident.Name))
}

// Recolor changes an identity's color, subject to tier gating.
func (r *Registry) Recolor(id ID, color Color) Result {
	r.mu.Lock()
	defer r.mu.Unlock()

	ident, ok := r.byID[id]
	if !ok {
		return Result{Refused: true, Reason: policy.ReasonPaletteColor}
	}
	if !policy.MayUseCustomColor(ident.Tier) && !InPalette(ident.Tier, color) {
		return Result{Refused: true, Reason: policy.ReasonPaletteColor}
	}
	ident.Color = color
	return Result{Identity: ident}
}

// BindTab binds tab to identity id, failing only when id does not exist.
// Per spec.md §4.5, a bound tab keeps its identity until closed; BindTab
// does not check whether tab is already bound to a different identity —
// the caller (Tab Binding Map / inheritance logic) enforces that
// invariant.
func (r *Registry) BindTab(id ID, tab TabHandle) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return false
	}
	ident.tabs[tab] = struct{}{}
	ident.LastAccessedAt = r.nowFunc()
	return true
}

// UnbindTab detaches tab from identity id. If this was the identity's
// last tab, the identity becomes dormant (an empty tabs set) but is not
// deleted — deletion is a separate, explicit operation or a TTL sweep.
func (r *Registry) UnbindTab(id ID, tab TabHandle) (becameDormant bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return false
	}
	delete(ident.tabs, tab)
	ident.LastAccessedAt = r.nowFunc()
	return ident.Dormant()
}

// RecordNavigation updates an identity's persisted_tabs on a non-internal
// navigation, for restart reattachment.
func (r *Registry) RecordNavigation(id ID, url, domain, path, title string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	if !ok {
		return
	}
	ident.recordPersistedTab(PersistedTab{URL: url, Domain: domain, Path: path, Title: title, SavedAt: r.nowFunc()})
}

// Touch updates LastAccessedAt for id, e.g. on an intercepted request.
func (r *Registry) Touch(id ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ident, ok := r.byID[id]; ok {
		ident.LastAccessedAt = r.nowFunc()
	}
}

// Get returns the identity for id, if it exists.
func (r *Registry) Get(id ID) (*Identity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ident, ok := r.byID[id]
	return ident, ok
}

// Enumeration groups identities by lifecycle state, each sorted by
// CreatedAt ascending, with equal CreatedAt values ordered by ID (whose
// lexical order is creation order; SPEC_FULL.md "Identity enumeration
// ordering").
type Enumeration struct {
	Active  []*Identity
	Dormant []*Identity
}

// Enumerate lists every identity split into active/dormant groups.
func (r *Registry) Enumerate() Enumeration {
	r.mu.Lock()
	defer r.mu.Unlock()

	var e Enumeration
	for _, ident := range r.byID {
		if ident.Active() {
			e.Active = append(e.Active, ident)
		} else {
			e.Dormant = append(e.Dormant, ident)
		}
	}
	byCreation := func(a, b *Identity) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	}
	sort.Slice(e.Active, func(i, j int) bool { return byCreation(e.Active[i], e.Active[j]) })
	sort.Slice(e.Dormant, func(i, j int) bool { return byCreation(e.Dormant[i], e.Dormant[j]) })
	return e
}

// Delete removes an identity outright: unbinds any remaining tabs and
// destroys its jar. Returns false if id did not exist.
func (r *Registry) Delete(id ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.deleteLocked(id)
}

func (r *Registry) deleteLocked(id ID) bool {
	ident, ok := r.byID[id]
	if !ok {
		return false
	}
	r.clearFoldedName(ident)
	ident.Jar.Clear()
	ident.tabs = nil
	delete(r.byID, id)
	return true
}

// DeleteAllDormant deletes every currently dormant identity in bulk
// (spec.md §4.4 "for dormant identities also callable in bulk").
func (r *Registry) DeleteAllDormant() (attempted, deleted int, errs []error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var dormantIDs []ID
	for id, ident := range r.byID {
		if ident.Dormant() {
			dormantIDs = append(dormantIDs, id)
		}
	}
	attempted = len(dormantIDs)
	for _, id := range dormantIDs {
		if r.deleteLocked(id) {
			deleted++
		}
	}
	return attempted, deleted, nil
}

// ExpireDormant deletes every dormant identity whose LastAccessedAt
// predates its tier's DormantTTL, per the §4.6 expiration sweep. It
// returns the deleted identity ids for the one-shot user notification.
func (r *Registry) ExpireDormant(now time.Time) []ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	var expired []ID
	for id, ident := range r.byID {
		if !ident.Dormant() {
			continue
		}
		ttl, ok := policy.DormantTTL(ident.Tier)
		if !ok {
			continue
		}
		if now.Sub(ident.LastAccessedAt) > ttl {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		r.deleteLocked(id)
	}
	return expired
}

// Count returns the total number of identities currently registered
// (active + dormant), for policy admission checks and diagnostics.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byID)
}

// FindByPersistedURL searches every identity's persisted_tabs for an
// entry whose (domain, path) matches, used by Restart Reattachment
// (component C11). Query strings and fragments are ignored by policy.
func (r *Registry) FindByPersistedURL(domain, path string) (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, ident := range r.byID {
		for _, pt := range ident.persistedTabs {
			if pt.Domain == domain && pt.Path == path {
				return id, true
			}
		}
	}
	return "", false
}

// Package core wires every internal component into the single Core
// facade the host UI drives, exposing exactly the operations spec.md §6
// names under "Core-exposed operations".
//
// Grounded on juliankoehn-goplugins/core/framework.Framework (one struct
// holding every subsystem, constructed once at startup, exposing a small
// public method set to callers outside the package) — the same
// composition-root shape, generalized from an HTTP framework's
// db/mux/plugins to this engine's registry/jar/persistence/orchestrator.
package core

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostapi"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/intercept"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/kvstore"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/orchestrator"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/persistence"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/reattach"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/scrubber"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/shim"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/tabbind"
)

// expirationSweepInterval is spec.md §4.6's recurring dormant-expiration
// scan period.
const expirationSweepInterval = 6 * time.Hour

// Core is the composition root: every internal component plus the
// current Tier read from the host's Entitlement collaborator.
type Core struct {
	Registry    *identity.Registry
	Binding     *tabbind.Map
	Interceptor *intercept.Interceptor
	Scrubber    *scrubber.Scrubber
	Reattacher  *reattach.Reattacher
	Persistence *persistence.Manager
	Orchestrator *orchestrator.Orchestrator
	Storage     *kvstore.Namespacer

	entitlement  hostapi.Entitlement
	shimInjector hostapi.ShimInjector
	notifier     hostapi.Notifier
	nowFunc      func() time.Time
	tabMeta      map[identity.TabHandle]persistence.TabMetadata
	logger       *log.Entry

	shimMu    sync.Mutex
	shimEnds  map[identity.TabHandle]*shim.Endpoint
}

// New wires a Core from its host-provided collaborators. nowFunc
// defaults to time.Now. kvBackend, shimInjector and notifier may be nil:
// a nil kvBackend is replaced by an in-memory kvstore.MapBackend, a nil
// shimInjector makes InjectShim skip the host injection call (the frame's
// Endpoint is still created), and a nil notifier drops expiration
// notifications (a CLI-only host, for instance, has no page frames or
// notification tray to wire).
func New(tabs hostapi.TabStore, entitlement hostapi.Entitlement, primary, secondary, tertiary persistence.Layer, kvBackend kvstore.Backend, shimInjector hostapi.ShimInjector, notifier hostapi.Notifier, nowFunc func() time.Time, logger *log.Entry) *Core {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	if kvBackend == nil {
		kvBackend = kvstore.NewMapBackend()
	}

	reg := identity.NewRegistry(nowFunc)
	bind := tabbind.New(reg, nowFunc)
	orch := orchestrator.New(logger)

	c := &Core{
		Registry:     reg,
		Binding:      bind,
		Orchestrator: orch,
		Storage:      kvstore.New(kvBackend),
		entitlement:  entitlement,
		shimInjector: shimInjector,
		notifier:     notifier,
		nowFunc:      nowFunc,
		tabMeta:      make(map[identity.TabHandle]persistence.TabMetadata),
		logger:       logger.WithField("component", "core"),
		shimEnds:     make(map[identity.TabHandle]*shim.Endpoint),
	}

	c.Interceptor = intercept.New(reg, bind, orch, nowFunc, logger)
	c.Scrubber = scrubber.New(reg, bind, tabs, orch, nowFunc, logger)
	c.Reattacher = reattach.New(reg, bind, tabs, logger, nil)
	c.Persistence = persistence.NewManager(primary, secondary, tertiary, func() persistence.Snapshot {
		return persistence.BuildSnapshot(reg, c.tabMeta, nowFunc())
	}, logger)

	return c
}

// InjectShim asks the host to install the page-context cookie shim and
// storage namespacer into frame (spec.md §6 inject_shim), then builds
// the core-side Endpoint it talks to, resolving frame identities through
// the same Binding the rest of Core uses. Calling InjectShim again for a
// frame already holding an Endpoint returns the existing one rather than
// re-injecting.
func (c *Core) InjectShim(frame identity.TabHandle) (*shim.Endpoint, error) {
	c.shimMu.Lock()
	defer c.shimMu.Unlock()

	if ep, ok := c.shimEnds[frame]; ok {
		return ep, nil
	}
	if c.shimInjector != nil {
		if err := c.shimInjector.InjectShim(frame); err != nil {
			return nil, err
		}
	}
	ep := shim.NewEndpoint(frame, c.Binding.Lookup, c.Registry, c.nowFunc)
	c.shimEnds[frame] = ep
	return ep, nil
}

// ShimEndpoint returns the Endpoint previously built for frame by
// InjectShim, if any.
func (c *Core) ShimEndpoint(frame identity.TabHandle) (*shim.Endpoint, bool) {
	c.shimMu.Lock()
	defer c.shimMu.Unlock()
	ep, ok := c.shimEnds[frame]
	return ep, ok
}

// StorageGet reads a key/value-storage entry namespaced to frame's bound
// identity, resolving the frame through Binding since the host's storage
// API (like the shim) knows only frames, never raw identity ids.
func (c *Core) StorageGet(frame identity.TabHandle, key string) (string, bool, error) {
	id, ok := c.Binding.Lookup(frame)
	if !ok {
		return "", false, kvstore.ErrIdentityUnavailable
	}
	return c.Storage.Get(id, key)
}

// StorageSet writes a key/value-storage entry namespaced to frame's
// bound identity.
func (c *Core) StorageSet(frame identity.TabHandle, key, value string) error {
	id, ok := c.Binding.Lookup(frame)
	if !ok {
		return kvstore.ErrIdentityUnavailable
	}
	return c.Storage.Set(id, key, value)
}

// StorageDelete removes a key/value-storage entry namespaced to frame's
// bound identity.
func (c *Core) StorageDelete(frame identity.TabHandle, key string) error {
	id, ok := c.Binding.Lookup(frame)
	if !ok {
		return kvstore.ErrIdentityUnavailable
	}
	return c.Storage.Delete(id, key)
}

// StorageEnumerate lists every key/value-storage key namespaced to
// frame's bound identity.
func (c *Core) StorageEnumerate(frame identity.TabHandle) ([]string, error) {
	id, ok := c.Binding.Lookup(frame)
	if !ok {
		return nil, kvstore.ErrIdentityUnavailable
	}
	return c.Storage.Enumerate(id)
}

// StorageClear removes every key/value-storage entry namespaced to
// frame's bound identity.
func (c *Core) StorageClear(frame identity.TabHandle) error {
	id, ok := c.Binding.Lookup(frame)
	if !ok {
		return kvstore.ErrIdentityUnavailable
	}
	return c.Storage.Clear(id)
}

// Boot drives the Initialization Orchestrator through its startup
// sequence (spec.md §4.13), loading the persisted snapshot, running
// entitlement resolution, restart reattachment, and finally scheduling
// the delayed validator, transitioning to Ready when all phases
// complete.
func (c *Core) Boot(ctx context.Context) error {
	snap, err := c.Persistence.Load()
	if err != nil && err != persistence.ErrEmptySnapshot {
		c.logger.WithError(err).Error("snapshot load failed")
		c.Orchestrator.Fail(err)
		return err
	}
	c.restoreFromSnapshot(snap)
	if err := c.Orchestrator.Advance(orchestrator.PersistenceReady); err != nil {
		return err
	}

	tier := c.entitlement.GetTier()
	_ = tier // consumed by future identity creation calls via policy gates
	if err := c.Orchestrator.Advance(orchestrator.EntitlementReady); err != nil {
		return err
	}

	if err := c.Orchestrator.Advance(orchestrator.RestoreReady); err != nil {
		return err
	}

	c.Reattacher.Run(ctx)
	if err := c.Orchestrator.Advance(orchestrator.ReattachmentReady); err != nil {
		return err
	}

	go func() {
		report := <-c.Reattacher.RunValidatorAfterDelay(ctx)
		c.logger.WithField("deleted", len(report.Deleted)).Info("delayed reattachment validator completed")
	}()

	if err := c.Orchestrator.Advance(orchestrator.Ready); err != nil {
		return err
	}

	go c.runExpirationSweeper(ctx)
	return nil
}

// runExpirationSweeper drives spec.md §4.6's recurring dormant-identity
// expiration scan: every expirationSweepInterval, once the Orchestrator
// has reached Ready, it deletes every dormant identity past its tier's
// TTL and emits one user notification naming the count removed (spec.md
// S5: "the user sees one notification stating '1 inactive session
// removed'"). It exits when ctx is done.
func (c *Core) runExpirationSweeper(ctx context.Context) {
	ticker := time.NewTicker(expirationSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.Orchestrator.Ready() {
				continue
			}
			deleted := c.Registry.ExpireDormant(c.nowFunc())
			if len(deleted) == 0 {
				continue
			}
			c.Persistence.WriteImmediate()
			c.notifyExpired(len(deleted))
		}
	}
}

func (c *Core) notifyExpired(count int) {
	if c.notifier == nil {
		return
	}
	noun := "session"
	if count != 1 {
		noun = "sessions"
	}
	c.notifier.Notify("Inactive sessions removed", fmt.Sprintf("%d inactive %s removed", count, noun))
}

func (c *Core) restoreFromSnapshot(snap persistence.Snapshot) {
	now := time.Now()
	for _, is := range snap.Identities {
		persistence.RestoreIdentity(c.Registry, is, now)
	}
	for tab, meta := range snap.TabMetadata {
		c.tabMeta[tab] = meta
	}
}

// Tier returns the current entitlement tier as last read from the host.
func (c *Core) Tier() policy.Tier { return c.entitlement.GetTier() }

// CreateIdentity admits a new identity under the current tier.
func (c *Core) CreateIdentity(color *identity.Color) identity.Result {
	result := c.Registry.Create(c.Tier(), color)
	if !result.Refused {
		c.Persistence.WriteImmediate()
	}
	return result
}

// Rename renames an identity.
func (c *Core) Rename(id identity.ID, name string) identity.Result {
	return c.Registry.Rename(id, name)
}

// Recolor recolors an identity.
func (c *Core) Recolor(id identity.ID, color identity.Color) identity.Result {
	return c.Registry.Recolor(id, color)
}

// ListIdentities enumerates every identity split by lifecycle state.
func (c *Core) ListIdentities() identity.Enumeration {
	return c.Registry.Enumerate()
}

// OpenDormant binds an already-host-opened tab to a dormant identity,
// reactivating it. The host is responsible for the actual tab-creation
// mechanics (out of scope per spec.md §1); Core only performs the
// binding and, if url is non-empty, records it as a persisted-tab entry.
func (c *Core) OpenDormant(id identity.ID, tab identity.TabHandle, url string) bool {
	if !c.Binding.Bind(tab, id) {
		return false
	}
	if url != "" {
		c.tabMeta[tab] = persistence.TabMetadata{URL: url, Identity: id}
	}
	c.Persistence.RequestDebounced()
	return true
}

// Delete removes an identity outright.
func (c *Core) Delete(id identity.ID) bool {
	ok := c.Registry.Delete(id)
	if ok {
		c.Persistence.WriteImmediate()
	}
	return ok
}

// DeleteAllDormant deletes every dormant identity in bulk.
func (c *Core) DeleteAllDormant() (attempted, deleted int, errs []error) {
	attempted, deleted, errs = c.Registry.DeleteAllDormant()
	if deleted > 0 {
		c.Persistence.WriteImmediate()
	}
	return attempted, deleted, errs
}

// ConflictPolicy governs how ImportSnapshot handles an identity whose ID
// already exists in the registry, per SPEC_FULL.md's supplemented
// "Bulk export conflict policy" (spec.md §6 names the parameter without
// enumerating values).
type ConflictPolicy string

const (
	ConflictRename    ConflictPolicy = "rename"
	ConflictSkip      ConflictPolicy = "skip"
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// ImportReport summarizes one ImportSnapshot call for the host UI.
type ImportReport struct {
	Imported int
	Skipped  int
	Renamed  int
}

// ExportSnapshot serializes either a single identity (scope non-empty)
// or every identity (scope empty) into the gob wire format Persistence
// already uses for its own durable blobs, per spec.md §6
// "export_snapshot(scope) → bytes". File-level encryption/compression is
// a host concern (SPEC_FULL.md Non-goals) and is not applied here.
func (c *Core) ExportSnapshot(scope identity.ID) ([]byte, error) {
	now := time.Now()
	full := persistence.BuildSnapshot(c.Registry, c.tabMeta, now)
	if scope == "" {
		return persistence.Encode(full)
	}
	for _, is := range full.Identities {
		if is.ID == scope {
			return persistence.Encode(persistence.Snapshot{
				Identities: []persistence.IdentitySnapshot{is},
				SavedAt:    now,
			})
		}
	}
	return nil, persistence.ErrEmptySnapshot
}

// ImportSnapshot decodes data and adopts every contained identity,
// resolving any ID collision against the live registry per policy.
func (c *Core) ImportSnapshot(data []byte, policy ConflictPolicy) (ImportReport, error) {
	snap, err := persistence.Decode(data)
	if err != nil {
		return ImportReport{}, err
	}

	var report ImportReport
	now := time.Now()
	for i, is := range snap.Identities {
		if _, exists := c.Registry.Get(is.ID); exists {
			switch policy {
			case ConflictSkip:
				report.Skipped++
				continue
			case ConflictOverwrite:
				c.Registry.Delete(is.ID)
			default: // ConflictRename, and any unrecognized value
				suffix := now.Add(time.Duration(i) * time.Nanosecond).Format("150405.000000000")
				is.ID = identity.ID(string(is.ID) + "-imported-" + suffix)
				if is.Name != "" {
					is.Name = is.Name + " (imported " + suffix + ")"
				}
				report.Renamed++
			}
		}
		persistence.RestoreIdentity(c.Registry, is, now)
		report.Imported++
	}
	c.Persistence.WriteImmediate()
	return report, nil
}

// GetInitState reports the Orchestrator's current state and transition
// history, for the UI's "not-ready" affordances (SPEC_FULL.md
// "Orchestrator transition log").
func (c *Core) GetInitState() (orchestrator.State, []orchestrator.Transition) {
	return c.Orchestrator.State(), c.Orchestrator.TransitionLog()
}

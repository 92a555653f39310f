package core

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostapi"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/kvstore"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/orchestrator"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/persistence"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
)

type fakeShimInjector struct{ calls int }

func (f *fakeShimInjector) InjectShim(identity.TabHandle) error { f.calls++; return nil }

type fakeNotifier struct {
	notified []string
}

func (f *fakeNotifier) Notify(title, text string) { f.notified = append(f.notified, title+": "+text) }
func (f *fakeNotifier) Alarm(string, time.Time)   {}

type fakeTabs struct{}

func (fakeTabs) ListTabs() ([]identity.TabHandle, error)   { return nil, nil }
func (fakeTabs) TabURL(identity.TabHandle) (string, error) { return "", nil }
func (fakeTabs) QueryGlobalCookies(string) ([]hostapi.GlobalCookie, error) {
	return nil, nil
}
func (fakeTabs) DeleteGlobalCookie(string, string) error { return nil }

type fakeEntitlement struct{ tier policy.Tier }

func (f fakeEntitlement) GetTier() policy.Tier            { return f.tier }
func (f fakeEntitlement) GetFeatures() policy.FeatureSet { return policy.FeatureSet{} }

func newTestCore() *Core {
	now := time.Now()
	return New(fakeTabs{}, fakeEntitlement{tier: policy.Pro}, persistence.NewMemoryLayer(), persistence.NewMemoryLayer(), persistence.NewMemoryLayer(), kvstore.NewMapBackend(), &fakeShimInjector{}, &fakeNotifier{}, func() time.Time { return now }, nil)
}

func TestBootReachesReady(t *testing.T) {
	c := newTestCore()
	err := c.Boot(context.Background())
	require.NoError(t, err)

	state, log := c.GetInitState()
	require.Equal(t, orchestrator.Ready, state)
	require.NotEmpty(t, log)
}

func TestCreateRenameRecolorListIdentities(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	result := c.CreateIdentity(nil)
	require.False(t, result.Refused)
	id := result.Identity.ID

	renamed := c.Rename(id, "Work")
	require.False(t, renamed.Refused)

	recolored := c.Recolor(id, identity.Color{R: 10, G: 20, B: 30})
	require.False(t, recolored.Refused)

	enum := c.ListIdentities()
	require.Len(t, enum.Dormant, 1)
	require.Equal(t, "Work", enum.Dormant[0].Name)
}

func TestOpenDormantBindsTabAndPersists(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	result := c.CreateIdentity(nil)
	require.True(t, c.OpenDormant(result.Identity.ID, "tab-1", "https://example.test/"))

	enum := c.ListIdentities()
	require.Len(t, enum.Active, 1)
}

func TestDeleteAndDeleteAllDormant(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	a := c.CreateIdentity(nil).Identity
	b := c.CreateIdentity(nil).Identity

	require.True(t, c.Delete(a.ID))
	_, stillThere := c.Registry.Get(a.ID)
	require.False(t, stillThere)

	attempted, deleted, errs := c.DeleteAllDormant()
	require.Equal(t, 1, attempted)
	require.Equal(t, 1, deleted)
	require.Empty(t, errs)
	_, stillThere = c.Registry.Get(b.ID)
	require.False(t, stillThere)
}

func TestExportImportRoundTripSingleIdentity(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	a := c.CreateIdentity(nil).Identity
	c.Rename(a.ID, "Shopping")

	data, err := c.ExportSnapshot(a.ID)
	require.NoError(t, err)
	require.NotEmpty(t, data)

	report, err := c.ImportSnapshot(data, ConflictRename)
	require.NoError(t, err)
	require.Equal(t, 1, report.Imported)
	require.Equal(t, 1, report.Renamed)

	enum := c.ListIdentities()
	require.Len(t, enum.Dormant, 2)
}

func TestImportSnapshotSkipPolicyLeavesExistingUntouched(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	a := c.CreateIdentity(nil).Identity
	data, err := c.ExportSnapshot(a.ID)
	require.NoError(t, err)

	report, err := c.ImportSnapshot(data, ConflictSkip)
	require.NoError(t, err)
	require.Equal(t, 0, report.Imported)
	require.Equal(t, 1, report.Skipped)

	enum := c.ListIdentities()
	require.Len(t, enum.Dormant, 1)
}

func TestInjectShimBuildsEndpointAndReadsBoundJar(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	id := c.CreateIdentity(nil).Identity.ID
	require.True(t, c.OpenDormant(id, "tab-1", "https://example.test/"))

	injector := &fakeShimInjector{}
	c.shimInjector = injector

	ep, err := c.InjectShim("tab-1")
	require.NoError(t, err)
	require.NotNil(t, ep)
	require.Equal(t, 1, injector.calls)

	again, err := c.InjectShim("tab-1")
	require.NoError(t, err)
	require.Same(t, ep, again)
	require.Equal(t, 1, injector.calls, "re-injecting an already-bound frame must not call the host injector again")
}

func TestStorageWrapperNamespacesByBoundFrame(t *testing.T) {
	c := newTestCore()
	require.NoError(t, c.Boot(context.Background()))

	a := c.CreateIdentity(nil).Identity.ID
	b := c.CreateIdentity(nil).Identity.ID
	require.True(t, c.OpenDormant(a, "tab-a", ""))
	require.True(t, c.OpenDormant(b, "tab-b", ""))

	require.NoError(t, c.StorageSet("tab-a", "theme", "dark"))
	require.NoError(t, c.StorageSet("tab-b", "theme", "light"))

	v, ok, err := c.StorageGet("tab-a", "theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "dark", v)

	v, ok, err = c.StorageGet("tab-b", "theme")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "light", v)

	_, _, err = c.StorageGet("tab-unbound", "theme")
	require.ErrorIs(t, err, kvstore.ErrIdentityUnavailable)

	require.NoError(t, c.StorageDelete("tab-a", "theme"))
	_, ok, err = c.StorageGet("tab-a", "theme")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExpirationNotificationReportsRemovedCount(t *testing.T) {
	now := time.Now()
	notifier := &fakeNotifier{}
	c := New(fakeTabs{}, fakeEntitlement{tier: policy.Basic}, persistence.NewMemoryLayer(), persistence.NewMemoryLayer(), persistence.NewMemoryLayer(), kvstore.NewMapBackend(), &fakeShimInjector{}, notifier, func() time.Time { return now }, nil)
	require.NoError(t, c.Boot(context.Background()))

	id := c.CreateIdentity(nil).Identity.ID
	ident, ok := c.Registry.Get(id)
	require.True(t, ok)
	ident.LastAccessedAt = now.Add(-999 * time.Hour)

	deleted := c.Registry.ExpireDormant(now)
	require.Len(t, deleted, 1)
	c.notifyExpired(len(deleted))

	require.Len(t, notifier.notified, 1)
	require.Contains(t, notifier.notified[0], "1 inactive session removed")
}

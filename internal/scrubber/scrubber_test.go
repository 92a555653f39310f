package scrubber

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/cookie"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostapi"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/orchestrator"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/tabbind"
)

type fakeTabStore struct {
	urls       map[identity.TabHandle]string
	global     map[string][]hostapi.GlobalCookie
	deleted    []string
	failFirst  map[string]bool
	failedOnce map[string]bool
}

func newFakeTabStore() *fakeTabStore {
	return &fakeTabStore{
		urls:       map[identity.TabHandle]string{},
		global:     map[string][]hostapi.GlobalCookie{},
		failFirst:  map[string]bool{},
		failedOnce: map[string]bool{},
	}
}

func (f *fakeTabStore) ListTabs() ([]identity.TabHandle, error) { return nil, nil }
func (f *fakeTabStore) TabURL(tab identity.TabHandle) (string, error) { return f.urls[tab], nil }
func (f *fakeTabStore) QueryGlobalCookies(host string) ([]hostapi.GlobalCookie, error) {
	return f.global[host], nil
}
func (f *fakeTabStore) DeleteGlobalCookie(host, name string) error {
	key := host + "|" + name
	if f.failFirst[key] && !f.failedOnce[key] {
		f.failedOnce[key] = true
		return assertErr
	}
	f.deleted = append(f.deleted, key)
	return nil
}

var assertErr = errShim{}

type errShim struct{}

func (errShim) Error() string { return "simulated failure" }

func readyOrchestrator() *orchestrator.Orchestrator {
	o := orchestrator.New(nil)
	o.Advance(orchestrator.PersistenceReady)
	o.Advance(orchestrator.EntitlementReady)
	o.Advance(orchestrator.RestoreReady)
	o.Advance(orchestrator.ReattachmentReady)
	o.Advance(orchestrator.Ready)
	return o
}

func TestScrubTickRemovesGlobalCookiesForBoundTabs(t *testing.T) {
	now := time.Now()
	reg := identity.NewRegistry(func() time.Time { return now })
	bind := tabbind.New(reg, func() time.Time { return now })
	a := reg.Create(policy.Pro, nil).Identity
	bind.Bind("t1", a.ID)

	tabs := newFakeTabStore()
	tabs.urls["t1"] = "example.test"
	tabs.global["example.test"] = []hostapi.GlobalCookie{{Name: "sid", Domain: "example.test"}}

	s := New(reg, bind, tabs, readyOrchestrator(), func() time.Time { return now }, nil)
	s.ScrubTick()

	require.Contains(t, tabs.deleted, "example.test|sid")
}

func TestScrubTickNoOpBeforeReady(t *testing.T) {
	now := time.Now()
	reg := identity.NewRegistry(func() time.Time { return now })
	bind := tabbind.New(reg, func() time.Time { return now })
	a := reg.Create(policy.Pro, nil).Identity
	bind.Bind("t1", a.ID)

	tabs := newFakeTabStore()
	tabs.urls["t1"] = "example.test"
	tabs.global["example.test"] = []hostapi.GlobalCookie{{Name: "sid", Domain: "example.test"}}

	notReady := orchestrator.New(nil)
	s := New(reg, bind, tabs, notReady, func() time.Time { return now }, nil)
	s.ScrubTick()

	require.Empty(t, tabs.deleted)
}

func TestRemovalRetriesOnceThenSucceeds(t *testing.T) {
	now := time.Now()
	reg := identity.NewRegistry(func() time.Time { return now })
	bind := tabbind.New(reg, func() time.Time { return now })
	a := reg.Create(policy.Pro, nil).Identity
	bind.Bind("t1", a.ID)

	tabs := newFakeTabStore()
	tabs.urls["t1"] = "example.test"
	tabs.global["example.test"] = []hostapi.GlobalCookie{{Name: "sid", Domain: "example.test"}}
	tabs.failFirst["example.test|sid"] = true

	s := New(reg, bind, tabs, readyOrchestrator(), func() time.Time { return now }, nil)
	s.ScrubTick()

	require.Contains(t, tabs.deleted, "example.test|sid")
}

func TestObserveGlobalWriteStoresThenRemoves(t *testing.T) {
	now := time.Now()
	reg := identity.NewRegistry(func() time.Time { return now })
	bind := tabbind.New(reg, func() time.Time { return now })
	a := reg.Create(policy.Pro, nil).Identity
	bind.Bind("t1", a.ID)

	tabs := newFakeTabStore()
	s := New(reg, bind, tabs, readyOrchestrator(), func() time.Time { return now }, nil)

	s.ObserveGlobalWrite("t1", "sid=abc; Domain=example.test; Path=/", "example.test")

	require.Equal(t, 1, a.Jar.Stat(now).Count)
	require.Contains(t, tabs.deleted, "example.test|sid")
}

func TestSweepTickRemovesExpiredCookies(t *testing.T) {
	now := time.Now()
	reg := identity.NewRegistry(func() time.Time { return now })
	bind := tabbind.New(reg, func() time.Time { return now })
	a := reg.Create(policy.Pro, nil).Identity

	expiring := cookie.Parse("sid=abc; Domain=example.test; Path=/; Max-Age=1", "example.test", now)
	require.False(t, expiring.Rejected)
	a.Jar.Insert(expiring.Cookie, now)

	later := now.Add(2 * time.Second)
	s := New(reg, bind, newFakeTabStore(), readyOrchestrator(), func() time.Time { return later }, nil)
	s.SweepTick()

	require.Equal(t, 0, a.Jar.Stat(later).Count)
}

func TestSweepTickNoOpBeforeReady(t *testing.T) {
	now := time.Now()
	reg := identity.NewRegistry(func() time.Time { return now })
	bind := tabbind.New(reg, func() time.Time { return now })
	a := reg.Create(policy.Pro, nil).Identity

	expiring := cookie.Parse("sid=abc; Domain=example.test; Path=/; Max-Age=1", "example.test", now)
	require.False(t, expiring.Rejected)
	a.Jar.Insert(expiring.Cookie, now)

	later := now.Add(2 * time.Second)
	notReady := orchestrator.New(nil)
	s := New(reg, bind, newFakeTabStore(), notReady, func() time.Time { return later }, nil)
	s.SweepTick()

	require.False(t, a.Jar.Empty(), "SweepTick must not sweep before Ready")
}

// Package scrubber implements the Native-Store Scrubber (component C12):
// periodic and event-driven removal of session-bound cookies from the
// host's ambient (global) cookie store, and the periodic jar sweep.
//
// No teacher precedent in ble-cookiejar for an adversarial external
// store; grounded on ble-cookiejar's own removeExpiredCookies sweep
// shape (cleanup_test.go / jar.go) for the periodic-sweep half, and on
// navindex-colly's bounded single-retry idiom (storage error handling
// in storage/storage.go's sentinel errors) for the one-retry-then-log
// removal-failure policy.
package scrubber

import (
	"net/url"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/cookie"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostapi"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/orchestrator"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/tabbind"
)

// scrubInterval and sweepInterval are spec.md §4.12's two tick periods.
const (
	scrubInterval = 2 * time.Second
	sweepInterval = 60 * time.Second
)

// removalRetryDelay is the pause before a single removal retry, spec.md
// §4.12 "a single removal failure triggers one retry".
const removalRetryDelay = 100 * time.Millisecond

// Registry is the subset of *identity.Registry the scrubber needs.
type Registry interface {
	Get(id identity.ID) (*identity.Identity, bool)
	Enumerate() identity.Enumeration
}

// Scrubber owns the two periodic tickers. It must not act until the
// Initialization Orchestrator reaches Ready, though it may be started
// earlier so no tick is lost (spec.md §4.13).
type Scrubber struct {
	registry Registry
	binding  *tabbind.Map
	tabs     hostapi.TabStore
	orch     *orchestrator.Orchestrator
	nowFunc  func() time.Time
	logger   *log.Entry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// New returns a Scrubber wired to its collaborators.
func New(registry Registry, binding *tabbind.Map, tabs hostapi.TabStore, orch *orchestrator.Orchestrator, nowFunc func() time.Time, logger *log.Entry) *Scrubber {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Scrubber{
		registry: registry,
		binding:  binding,
		tabs:     tabs,
		orch:     orch,
		nowFunc:  nowFunc,
		logger:   logger.WithField("component", "scrubber"),
		stopCh:   make(chan struct{}),
	}
}

// Run blocks, driving both tickers until Stop is called or ctx-like
// stopCh fires. Intended to run in its own goroutine for the lifetime of
// the process.
func (s *Scrubber) Run() {
	scrubTicker := time.NewTicker(scrubInterval)
	sweepTicker := time.NewTicker(sweepInterval)
	defer scrubTicker.Stop()
	defer sweepTicker.Stop()

	for {
		select {
		case <-s.stopCh:
			return
		case <-scrubTicker.C:
			s.ScrubTick()
		case <-sweepTicker.C:
			s.SweepTick()
		}
	}
}

// Stop halts Run.
func (s *Scrubber) Stop() {
	s.stopOnce.Do(func() { close(s.stopCh) })
}

// ScrubTick performs one pass over every session-bound tab's current
// host, removing that host's cookies from the global store. It is a
// pass-through no-op before Ready, per spec.md §4.13.
func (s *Scrubber) ScrubTick() {
	if !s.orch.Ready() {
		return
	}
	for _, tab := range s.binding.BoundTabs() {
		rawURL, err := s.tabs.TabURL(tab)
		if err != nil {
			continue
		}
		host := hostFromURLOrRaw(rawURL)
		s.scrubHost(host)
	}
}

// hostFromURLOrRaw extracts a bare host from a full tab URL; it falls
// back to treating the input as already a bare host so test doubles and
// non-browser hosts that hand back a bare domain still work.
func hostFromURLOrRaw(raw string) string {
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		if h, err := cookie.Host(u); err == nil {
			return h
		}
	}
	return raw
}

func (s *Scrubber) scrubHost(host string) {
	cookies, err := s.tabs.QueryGlobalCookies(host)
	if err != nil {
		s.logger.WithField("host", host).WithError(err).Warn("global cookie query failed")
		return
	}
	for _, c := range cookies {
		s.removeWithRetry(c.Domain, c.Name)
	}
}

func (s *Scrubber) removeWithRetry(host, name string) {
	if err := s.tabs.DeleteGlobalCookie(host, name); err != nil {
		time.Sleep(removalRetryDelay)
		if err2 := s.tabs.DeleteGlobalCookie(host, name); err2 != nil {
			s.logger.WithFields(log.Fields{"host": host, "name": name}).WithError(err2).Warn("cookie removal failed after retry")
		}
	}
}

// ObserveGlobalWrite handles a host-reported write to the global cookie
// store that originated from a session-bound tab (spec.md §4.12):
// parse it, store it in the identity jar, then remove it from the
// global store.
func (s *Scrubber) ObserveGlobalWrite(tab identity.TabHandle, rawSetCookie, host string) {
	if !s.orch.Ready() {
		return
	}
	id, ok := s.binding.Lookup(tab)
	if !ok {
		return
	}
	ident, ok := s.registry.Get(id)
	if !ok {
		return
	}

	now := s.nowFunc()
	result := cookie.Parse(rawSetCookie, host, now)
	if !result.Rejected {
		ident.Jar.Insert(result.Cookie, now)
	}
	s.removeWithRetry(host, extractCookieName(rawSetCookie))
}

func extractCookieName(rawSetCookie string) string {
	for i := 0; i < len(rawSetCookie); i++ {
		if rawSetCookie[i] == '=' {
			return rawSetCookie[:i]
		}
		if rawSetCookie[i] == ';' {
			break
		}
	}
	return rawSetCookie
}

// SweepTick invokes Jar.Sweep across every identity, per spec.md §4.12's
// 60 s tick. Like ScrubTick, it is a pass-through no-op before Ready
// (spec.md §4.13 lists the Scrubber as a whole among the components that
// must not act until then).
func (s *Scrubber) SweepTick() {
	if !s.orch.Ready() {
		return
	}
	now := s.nowFunc()
	e := s.registry.Enumerate()
	for _, ident := range append(e.Active, e.Dormant...) {
		ident.Jar.Sweep(now)
	}
}

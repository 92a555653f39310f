// Package intercept implements the HTTP Interceptor (component C7): the
// two synchronous chokepoints that rewrite Cookie and Set-Cookie headers
// per bound tab, gated on the Initialization Orchestrator's Ready state.
//
// Grounded on ble-cookiejar's own request/response cookie surface
// (jar.go Cookies/SetCookies) for the header-rewrite shape, restructured
// around a tab-bound identity instead of a single process-wide jar, and
// on navindex-colly's collector request/response callback pairing for
// the two-chokepoint request/response lifecycle split.
package intercept

import (
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/cookie"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/orchestrator"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/tabbind"
)

// Registry is the subset of *identity.Registry the interceptor needs.
type Registry interface {
	Get(id identity.ID) (*identity.Identity, bool)
	Touch(id identity.ID)
}

// Interceptor owns the request/response chokepoints. It never mutates
// the Orchestrator and never returns an error to its caller — every
// failure mode in spec.md §4.7/§7 is "pass through" or "log and drop".
type Interceptor struct {
	registry Registry
	binding  *tabbind.Map
	orch     *orchestrator.Orchestrator
	nowFunc  func() time.Time
	logger   *log.Entry
}

// New returns an Interceptor wired to the given collaborators.
func New(registry Registry, binding *tabbind.Map, orch *orchestrator.Orchestrator, nowFunc func() time.Time, logger *log.Entry) *Interceptor {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}
	return &Interceptor{
		registry: registry,
		binding:  binding,
		orch:     orch,
		nowFunc:  nowFunc,
		logger:   logger.WithField("component", "interceptor"),
	}
}

// OnRequest is the request-phase chokepoint: it rewrites the Cookie
// header in place on header. tab is the originating tab; rawURL is the
// request's target URL. A pass-through (no rewrite) leaves header
// untouched and is never reported as an error.
func (i *Interceptor) OnRequest(tab identity.TabHandle, rawURL string, header http.Header) {
	if !i.orch.Ready() {
		return // spec.md §4.7: never act before Ready
	}

	id, bound := i.binding.Lookup(tab)
	if !bound {
		return
	}

	u, err := url.Parse(rawURL)
	if err != nil || !cookie.IsHTTP(u) {
		i.logger.WithField("tab", tab).WithError(err).Warn("malformed request URL, passing through")
		return
	}
	host, err := cookie.Host(u)
	if err != nil {
		i.logger.WithField("tab", tab).WithError(err).Warn("unparseable request host, passing through")
		return
	}

	ident, ok := i.registry.Get(id)
	if !ok {
		return
	}

	i.binding.RecordActivity(host, id)
	i.registry.Touch(id)

	now := i.nowFunc()
	matches := ident.Jar.Match(host, u.Path, cookie.IsSecure(u), now)
	if serialized := cookie.Serialize(matches); serialized != "" {
		header.Set("Cookie", serialized)
	} else {
		header.Del("Cookie")
	}
}

// OnResponse is the response-phase chokepoint: it consumes every
// Set-Cookie value present on header, storing valid cookies in the
// bound identity's jar, and strips Set-Cookie from header so the host's
// ambient cookie store never observes session-scoped state.
func (i *Interceptor) OnResponse(tab identity.TabHandle, rawURL string, header http.Header) {
	if !i.orch.Ready() {
		return
	}

	id, bound := i.binding.Lookup(tab)
	if !bound {
		return
	}

	u, err := url.Parse(rawURL)
	if err != nil || !cookie.IsHTTP(u) {
		header.Del("Set-Cookie")
		return
	}
	host, err := cookie.Host(u)
	if err != nil {
		header.Del("Set-Cookie")
		return
	}

	ident, ok := i.registry.Get(id)
	if !ok {
		header.Del("Set-Cookie")
		return
	}

	now := i.nowFunc()
	for _, raw := range header.Values("Set-Cookie") {
		result := cookie.Parse(raw, host, now)
		if result.Rejected {
			if result.RejectWhy == "cross-domain" {
				i.logger.WithFields(log.Fields{
					"tab": tab, "identity": id, "host": host, "value": raw,
				}).Warn("security-block: cross-domain Set-Cookie rejected")
			}
			continue
		}
		if result.Cookie.Path == "" {
			result.Cookie.Path = cookie.DefaultPath(u)
		}
		ident.Jar.Insert(result.Cookie, now)
	}
	header.Del("Set-Cookie")
}

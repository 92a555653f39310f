// Package shim models the core-side half of the Page-Context Cookie Shim
// (component C8): the correlation-id message protocol, the bounded
// exponential backoff for identity-id acquisition, and the optimistic
// write/refresh semantics the installed page-context script depends on.
// The page-context script itself (DOM injection, document.cookie
// property replacement) is host-provided per spec.md §1/§6 and has no
// Go representation; this package is the core-side endpoint it talks to.
//
// Grounded on ble-cookiejar's Jar read path (jar.go Cookies) for the
// "serve from in-memory state, synchronously" contract, and on
// juliankoehn-goplugins's correlation-id pattern (uuid.New() per
// request) for pairing an async response back to its caller.
package shim

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/cookie"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
)

// ErrIdentityUnavailable is returned when a frame's identity id could not
// be resolved within the bounded backoff window (spec.md §4.8: "fail
// loudly... not silently fall back to a shared default scope").
var ErrIdentityUnavailable = errors.New("shim: identity id unavailable for frame")

// identityBackoffCap bounds the exponential retry for acquiring a
// frame's identity id, per spec.md §4.8 ("capped at ≈3 s total").
const identityBackoffCap = 3 * time.Second

// readTimeout is the page->core read deadline of spec.md §5
// ("Cancellation & timeouts").
const readTimeout = 5 * time.Second

// idleRefreshInterval is the rate at which an installed shim refreshes
// its cache absent any read/write activity (spec.md §4.8).
const idleRefreshInterval = 500 * time.Millisecond

// Registry is the subset of *identity.Registry the shim endpoint needs.
type Registry interface {
	Get(id identity.ID) (*identity.Identity, bool)
}

// FrameIdentityResolver resolves the identity bound to a given frame
// (tab or iframe), mirroring the core's tab binding lookup but kept
// abstract here so the shim package does not import tabbind directly —
// frames are a host concept one level below a tab.
type FrameIdentityResolver func(frame identity.TabHandle) (identity.ID, bool)

// Endpoint is the core-side message-channel peer for one installed page
// shim. Core.InjectShim creates one Endpoint per frame and reuses it on
// later calls for the same frame (spec.md §6 inject_shim).
type Endpoint struct {
	frame     identity.TabHandle
	resolve   FrameIdentityResolver
	registry  Registry
	nowFunc   func() time.Time
	baseDelay time.Duration
}

// NewEndpoint returns an Endpoint bound to frame.
func NewEndpoint(frame identity.TabHandle, resolve FrameIdentityResolver, registry Registry, nowFunc func() time.Time) *Endpoint {
	if nowFunc == nil {
		nowFunc = time.Now
	}
	return &Endpoint{frame: frame, resolve: resolve, registry: registry, nowFunc: nowFunc, baseDelay: 50 * time.Millisecond}
}

// ReadRequest is a correlation-id'd read issued by the installed shim
// (spec.md §4.8 "message channel with correlation ids for read
// responses").
type ReadRequest struct {
	CorrelationID string
	Host          string
	Path          string
	Secure        bool
}

// ReadResponse answers a ReadRequest.
type ReadResponse struct {
	CorrelationID string
	CookieString  string
	Err           error
}

// Read resolves the frame's identity (with bounded backoff) and returns
// the serialized cookie string for (host, path). ctx should carry the
// shim's own 5 s page->core timeout (spec.md §5); Read additionally
// bounds the identity-resolution wait to identityBackoffCap.
func (e *Endpoint) Read(ctx context.Context, req ReadRequest) ReadResponse {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	id, err := e.resolveWithBackoff(ctx)
	if err != nil {
		return ReadResponse{CorrelationID: req.CorrelationID, Err: err}
	}
	ident, ok := e.registry.Get(id)
	if !ok {
		return ReadResponse{CorrelationID: req.CorrelationID, Err: ErrIdentityUnavailable}
	}

	now := e.nowFunc()
	matches := ident.Jar.Match(req.Host, req.Path, req.Secure, now)
	return ReadResponse{CorrelationID: req.CorrelationID, CookieString: cookie.Serialize(matches)}
}

// WriteRequest is the fire-and-forget message for a page-context
// document.cookie assignment (spec.md §4.8 "writes are unacknowledged").
type WriteRequest struct {
	RawSetCookie string
	Host         string
}

// Write parses and stores rawSetCookie into the frame's identity jar. It
// returns whether the write was accepted, so the caller's optimistic
// cache can be reconciled on rejection (spec.md §4.8) — the page script
// itself never sees this return value synchronously.
func (e *Endpoint) Write(ctx context.Context, req WriteRequest) (accepted bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, identityBackoffCap)
	defer cancel()

	id, err := e.resolveWithBackoff(ctx)
	if err != nil {
		return false, err
	}
	ident, ok := e.registry.Get(id)
	if !ok {
		return false, ErrIdentityUnavailable
	}

	now := e.nowFunc()
	result := cookie.Parse(req.RawSetCookie, req.Host, now)
	if result.Rejected {
		return false, nil
	}
	return ident.Jar.Insert(result.Cookie, now), nil
}

// resolveWithBackoff retries e.resolve with exponential backoff
// (baseDelay, 2x, 4x, ... ) until ctx is done or identityBackoffCap of
// real wall-clock time elapses, whichever is sooner. The cap is
// wall-clock rather than the injectable data clock since it bounds an
// actual page-script wait, not a cookie timestamp.
func (e *Endpoint) resolveWithBackoff(ctx context.Context) (identity.ID, error) {
	deadline := time.Now().Add(identityBackoffCap)
	delay := e.baseDelay

	for {
		if id, ok := e.resolve(e.frame); ok {
			return id, nil
		}
		if time.Now().After(deadline) {
			return "", ErrIdentityUnavailable
		}
		select {
		case <-ctx.Done():
			return "", ErrIdentityUnavailable
		case <-time.After(delay):
		}
		delay *= 2
		if delay > identityBackoffCap {
			delay = identityBackoffCap
		}
	}
}

// NewCorrelationID mints a fresh correlation id for a read request.
func NewCorrelationID() string {
	return uuid.New().String()
}

// IdleRefreshInterval exposes the 500ms idle-refresh constant for the
// host-side installer to schedule against.
func IdleRefreshInterval() time.Duration { return idleRefreshInterval }

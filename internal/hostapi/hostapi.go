// Package hostapi names the external collaborator contracts from
// spec.md §6: abstract operations the host (browser extension runtime)
// provides to the core, and the operations the core exposes back to the
// host UI. These are interfaces only — the transport, DOM injection, and
// rendering mechanics live entirely on the host side and are out of
// scope for this module (spec.md §1).
package hostapi

import (
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/identity"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/policy"
)

// GlobalCookie is a cookie as reported by the host's ambient (global,
// identity-unaware) cookie store.
type GlobalCookie struct {
	Name, Value, Domain, Path string
}

// TabStore is the subset of host capability the Interceptor, Scrubber and
// Reattachment need for tab and native-cookie-store bookkeeping.
type TabStore interface {
	ListTabs() ([]identity.TabHandle, error)
	TabURL(tab identity.TabHandle) (string, error)
	QueryGlobalCookies(host string) ([]GlobalCookie, error)
	DeleteGlobalCookie(host, name string) error
}

// Layer identifies one tier of the layered Persistence Layer (C10).
type Layer uint8

const (
	LayerPrimary Layer = iota
	LayerSecondary
	LayerTertiary
)

// BlobStore is the host's durable storage capability (persist_blob /
// load_blob in spec.md §6).
type BlobStore interface {
	PersistBlob(layer Layer, data []byte) error
	LoadBlob(layer Layer) ([]byte, bool, error)
}

// ShimInjector installs the page-context cookie shim and storage
// namespacer into a frame before any page script runs.
type ShimInjector interface {
	InjectShim(tabFrame identity.TabHandle) error
}

// Notifier is the host's user-facing notification and scheduled
// wake-up capability.
type Notifier interface {
	Notify(title, text string)
	Alarm(name string, at time.Time)
}

// Entitlement is the host's licensing/entitlement collaborator. The core
// consumes its output as a read-only input and never validates it
// itself (spec.md §6, §9 "Tier gates").
type Entitlement interface {
	GetTier() policy.Tier
	GetFeatures() policy.FeatureSet
}

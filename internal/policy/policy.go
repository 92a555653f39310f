// Package policy implements the Policy Gate (component C6): tier-driven
// admission rules consumed by the Identity Registry, the dormant-identity
// expiration sweeper, and Restart Reattachment.
//
// There is no teacher precedent for a tier system in ble-cookiejar (it's a
// leaf library with no entitlement concept); this package follows the
// corpus's general shape for a small, table-driven capability gate — a
// plain struct of named limits keyed by an enum, the same shape
// juliankoehn-goplugins/core/account/models uses for permission lookups
// (UserHasPerm table scan) — generalized here to a tier table instead of a
// permission list.
package policy

import "time"

// Tier is an externally supplied entitlement level. The core never
// validates it; it is a read-only input from the host's licensing
// collaborator (spec.md §6).
type Tier uint8

const (
	Basic Tier = iota
	Plus
	Pro
)

func (t Tier) String() string {
	switch t {
	case Plus:
		return "Plus"
	case Pro:
		return "Pro"
	default:
		return "Basic"
	}
}

// FeatureSet is the accompanying feature flags the entitlement
// collaborator hands the core alongside a Tier. The core only reads it;
// it never validates entitlement over the network itself.
type FeatureSet map[string]bool

// Unlimited signals "no cap" from MaxConcurrentIdentities.
const Unlimited = -1

const basicDormantTTL = 7 * 24 * time.Hour

// MaxConcurrentIdentities returns the cap on concurrently existing
// identities for tier, or Unlimited.
func MaxConcurrentIdentities(tier Tier) int {
	if tier == Basic {
		return 3
	}
	return Unlimited
}

// DormantTTL returns how long a dormant (tabless) identity may survive
// before the expiration sweep deletes it. A zero duration with ok==false
// means "no TTL" (never auto-deleted).
func DormantTTL(tier Tier) (ttl time.Duration, ok bool) {
	if tier == Basic {
		return basicDormantTTL, true
	}
	return 0, false
}

// MayUseCustomColor reports whether tier may pick an arbitrary in-gamut
// RGB color rather than a fixed palette entry.
func MayUseCustomColor(tier Tier) bool { return tier == Pro }

// MayAutoRestoreOnRestart reports whether tier is eligible for automatic,
// unattended tab reattachment on host restart.
func MayAutoRestoreOnRestart(tier Tier) bool { return tier == Pro }

// MayExportAll reports whether tier may bulk-export every identity at
// once (as opposed to one identity at a time).
func MayExportAll(tier Tier) bool { return tier == Pro }

// PaletteSize returns the number of fixed colors tier may choose from.
// Pro additionally gets MayUseCustomColor, so its palette size is mostly
// informational.
func PaletteSize(tier Tier) int {
	switch tier {
	case Pro:
		return 20
	case Plus:
		return 12
	default:
		return 6
	}
}

// RefusalReason is a structured reason code surfaced to Registry callers
// on a policy refusal, per spec.md §7 ("Refused-by-policy").
type RefusalReason string

const (
	ReasonQuotaExceeded    RefusalReason = "quota_exceeded"
	ReasonNameDuplicate    RefusalReason = "name_duplicate"
	ReasonNameTooLong      RefusalReason = "name_too_long"
	ReasonNameEmpty        RefusalReason = "name_empty_not_allowed_here"
	ReasonCustomColorGated RefusalReason = "custom_color_not_eligible"
	ReasonPaletteColor     RefusalReason = "color_not_in_palette"
)

// MayCreateIdentity reports whether tier may create one more identity
// given currentCount already-existing identities (active + dormant).
func MayCreateIdentity(tier Tier, currentCount int) (bool, RefusalReason) {
	max := MaxConcurrentIdentities(tier)
	if max == Unlimited || currentCount < max {
		return true, ""
	}
	return false, ReasonQuotaExceeded
}

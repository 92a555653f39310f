// Package jar implements the per-identity Cookie Jar (component C3): a
// three-level domain -> path -> name -> cookie store with insertion,
// domain/path matching bounded by the Hostname Classifier, expiration
// sweep, and clear.
//
// Adapted from ble-cookiejar's Jar (jar.go: SetCookies/update/get/delete,
// removeExpiredCookies) and Cookie (cookie.go: domainMatch/pathMatch/
// sendList ordering), restructured from ble-cookiejar's flat []Cookie
// slice into the hierarchical map spec.md §3 specifies, and bounded
// during domain-suffix walking by internal/hostclass instead of
// ble-cookiejar's single-level publicsuffix check.
package jar

import (
	"strings"
	"sync"
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/cookie"
	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostclass"
)

// Jar is a single identity's cookie store.
type Jar struct {
	mu sync.RWMutex
	// domain -> path -> name -> cookie
	domains map[string]map[string]map[string]*cookie.Cookie
}

// New returns an empty Jar.
func New() *Jar {
	return &Jar{domains: make(map[string]map[string]map[string]*cookie.Cookie)}
}

// Insert adds c to the jar, replacing any existing cookie with the same
// (domain, path, name) key. An already-expired cookie is rejected
// silently, per spec.md §3.
func (j *Jar) Insert(c *cookie.Cookie, now time.Time) (inserted bool) {
	if c.IsExpired(now) {
		return false
	}
	domain := normalizeDomain(c.Domain)
	path := c.Path
	if path == "" {
		path = "/"
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	byPath, ok := j.domains[domain]
	if !ok {
		byPath = make(map[string]map[string]*cookie.Cookie)
		j.domains[domain] = byPath
	}
	byName, ok := byPath[path]
	if !ok {
		byName = make(map[string]*cookie.Cookie)
		byPath[path] = byName
	}

	stored := *c
	stored.Domain = domain
	stored.Path = path
	byName[c.Name] = &stored
	return true
}

// Delete removes the cookie identified by (domain, path, name).
func (j *Jar) Delete(domain, path, name string) bool {
	domain = normalizeDomain(domain)
	j.mu.Lock()
	defer j.mu.Unlock()
	byPath, ok := j.domains[domain]
	if !ok {
		return false
	}
	byName, ok := byPath[path]
	if !ok {
		return false
	}
	if _, ok := byName[name]; !ok {
		return false
	}
	delete(byName, name)
	if len(byName) == 0 {
		delete(byPath, path)
	}
	if len(byPath) == 0 {
		delete(j.domains, domain)
	}
	return true
}

// Match returns every non-expired cookie that applies to a request for
// (host, path), walking the dotted-suffix chain of host only while the
// current suffix classifies as a valid cookie scope (spec.md §3), and
// requiring cookie-path to prefix-match the request path.
func (j *Jar) Match(host, path string, secure bool, now time.Time) []*cookie.Cookie {
	host = strings.ToLower(host)

	j.mu.Lock() // upgrade LastAccess bookkeeping, so take the write lock
	defer j.mu.Unlock()

	var matched []*cookie.Cookie
	for _, domain := range suffixChain(host) {
		byPath, ok := j.domains[domain]
		if !ok {
			continue
		}
		hostOnly := domain == host
		for cookiePath, byName := range byPath {
			if !pathPrefixMatch(cookiePath, path) {
				continue
			}
			for _, c := range byName {
				if c.IsExpired(now) {
					continue
				}
				if !domainMatches(c, domain, host, hostOnly) {
					continue
				}
				if c.Secure && !secure {
					continue
				}
				c.LastAccess = now
				matched = append(matched, c)
			}
		}
	}
	return matched
}

func domainMatches(c *cookie.Cookie, storedDomain, host string, hostOnly bool) bool {
	if storedDomain == host {
		return true
	}
	// storedDomain is a proper, valid-scope suffix of host taken from
	// suffixChain, so hostOnly is false here and the cookie matches. The
	// jar keeps no host-only flag: every cookie stored at a domain also
	// matches that domain's subdomains.
	return !hostOnly
}

// suffixChain returns host, then each successive dotted suffix of host
// that is a valid cookie scope, stopping before (and excluding) the first
// suffix classified Invalid, preventing matching at a bare public suffix.
func suffixChain(host string) []string {
	chain := []string{host}
	rest := host
	for {
		i := strings.IndexByte(rest, '.')
		if i < 0 {
			break
		}
		rest = rest[i+1:]
		if rest == "" {
			break
		}
		if !hostclass.IsCookieScope(rest) {
			break
		}
		chain = append(chain, rest)
	}
	return chain
}

// pathPrefixMatch implements RFC 6265 5.1.4 path-matching between the
// jar's stored cookiePath and a request path.
func pathPrefixMatch(cookiePath, requestPath string) bool {
	if cookiePath == requestPath {
		return true
	}
	if !strings.HasPrefix(requestPath, cookiePath) {
		return false
	}
	if cookiePath == "" {
		return true
	}
	if cookiePath[len(cookiePath)-1] == '/' {
		return true
	}
	return len(requestPath) > len(cookiePath) && requestPath[len(cookiePath)] == '/'
}

// Sweep removes every expired cookie from the jar, collapsing emptied
// path and domain maps. It returns the count removed.
func (j *Jar) Sweep(now time.Time) (removed int) {
	j.mu.Lock()
	defer j.mu.Unlock()

	for domain, byPath := range j.domains {
		for path, byName := range byPath {
			for name, c := range byName {
				if c.IsExpired(now) {
					delete(byName, name)
					removed++
				}
			}
			if len(byName) == 0 {
				delete(byPath, path)
			}
		}
		if len(byPath) == 0 {
			delete(j.domains, domain)
		}
	}
	return removed
}

// Clear empties the jar.
func (j *Jar) Clear() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.domains = make(map[string]map[string]map[string]*cookie.Cookie)
}

// All returns every non-expired cookie currently stored, for export and
// for stats reporting. Order is unspecified.
func (j *Jar) All(now time.Time) []*cookie.Cookie {
	j.mu.RLock()
	defer j.mu.RUnlock()
	var all []*cookie.Cookie
	for _, byPath := range j.domains {
		for _, byName := range byPath {
			for _, c := range byName {
				if !c.IsExpired(now) {
					cp := *c
					all = append(all, &cp)
				}
			}
		}
	}
	return all
}

// Restore replaces the jar's contents wholesale (used by the persistence
// layer on load); expired cookies are dropped.
func (j *Jar) Restore(cookies []*cookie.Cookie, now time.Time) {
	j.mu.Lock()
	j.domains = make(map[string]map[string]map[string]*cookie.Cookie)
	j.mu.Unlock()
	for _, c := range cookies {
		j.Insert(c, now)
	}
}

// Empty reports whether the jar holds no cookies at all (including
// expired-but-not-yet-swept ones).
func (j *Jar) Empty() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return len(j.domains) == 0
}

// Stats is read-only derived data about a jar's contents, for the CLI/UI
// (SPEC_FULL.md "Jar statistics" supplement).
type Stats struct {
	Count   int
	Oldest  time.Time
	Newest  time.Time
	Domains int
}

// Stat computes Stats over the jar's current (non-expired) contents.
func (j *Jar) Stat(now time.Time) Stats {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var s Stats
	s.Domains = len(j.domains)
	for _, byPath := range j.domains {
		for _, byName := range byPath {
			for _, c := range byName {
				if c.IsExpired(now) {
					continue
				}
				s.Count++
				if s.Oldest.IsZero() || c.Created.Before(s.Oldest) {
					s.Oldest = c.Created
				}
				if c.Expires.After(s.Newest) {
					s.Newest = c.Expires
				}
			}
		}
	}
	return s
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimPrefix(domain, "."))
}

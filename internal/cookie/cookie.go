// Package cookie implements the Cookie Model & Parser (component C2):
// parsing a Set-Cookie header value into a Cookie, serializing a list of
// cookies back into a Cookie header, and the domain/path matching rules
// the jar relies on.
//
// Adapted from ble-cookiejar's cookie.go (Cookie struct, domainMatch,
// pathMatch, sort ordering) and url.go (host/path helpers), generalized
// to identity-scoped matching and to the explicit parse/serialize entry
// points spec.md §4.2 names.
package cookie

import (
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/meraf-solutions/Sessner-Multi-Session-Manager-sub000/internal/hostclass"
)

// SameSite mirrors the four-state attribute spec.md's data model requires;
// net/http only distinguishes None/Lax/Strict and defaults silently, which
// loses the "attribute absent" case the jar needs for logging/export.
type SameSite uint8

const (
	SameSiteUnspecified SameSite = iota
	SameSiteNone
	SameSiteLax
	SameSiteStrict
)

func (s SameSite) String() string {
	switch s {
	case SameSiteNone:
		return "None"
	case SameSiteLax:
		return "Lax"
	case SameSiteStrict:
		return "Strict"
	default:
		return "Unspecified"
	}
}

// Cookie is the jar's internal representation, per spec.md §3.
type Cookie struct {
	Name, Value  string
	Domain, Path string
	Secure       bool
	HttpOnly     bool
	SameSite     SameSite

	// Expires holds the absolute expiration instant. The zero Time is the
	// "session" sentinel (never expires by itself, expires with the
	// browsing session, which this engine does not model as a separate
	// event).
	Expires time.Time

	Created    time.Time
	LastAccess time.Time
}

// Key returns the jar's equality key for this cookie: (domain, path, name).
func (c *Cookie) Key() (domain, path, name string) { return c.Domain, c.Path, c.Name }

// IsSession reports whether this is a session cookie (no absolute expiry).
func (c *Cookie) IsSession() bool { return c.Expires.IsZero() }

// IsExpired reports whether c has expired as of now. Session cookies never
// expire by this check.
func (c *Cookie) IsExpired(now time.Time) bool {
	return !c.Expires.IsZero() && !c.Expires.After(now)
}

// domainMatch implements RFC 6265 5.1.3 domain-matching: host matches
// c.Domain if identical, or if c.Domain is a non-host-only dotted suffix
// of host.
func (c *Cookie) domainMatch(host string, hostOnly bool) bool {
	if c.Domain == host {
		return true
	}
	if hostOnly {
		return false
	}
	return strings.HasSuffix(host, "."+c.Domain)
}

// pathMatch implements RFC 6265 5.1.4 path-matching.
func (c *Cookie) pathMatch(requestPath string) bool {
	if requestPath == c.Path {
		return true
	}
	if strings.HasPrefix(requestPath, c.Path) {
		if c.Path == "" {
			return true
		}
		if c.Path[len(c.Path)-1] == '/' {
			return true
		}
		if len(requestPath) > len(c.Path) && requestPath[len(c.Path)] == '/' {
			return true
		}
	}
	return false
}

// ShouldSend reports whether c should be delivered for a request to
// (host, path) under secure, given now. hostOnly selects whether domain
// cookies are allowed to match subdomains of c.Domain.
func (c *Cookie) ShouldSend(host, path string, secure bool, now time.Time, hostOnly bool) bool {
	return c.domainMatch(host, hostOnly) &&
		c.pathMatch(path) &&
		!c.IsExpired(now) &&
		secureEnough(c.Secure, secure)
}

func secureEnough(cookieSecure, requestSecure bool) bool {
	return requestSecure || !cookieSecure
}

// ---------------------------------------------------------------------
// Parsing

// ParseResult is the outcome of Parse.
type ParseResult struct {
	Cookie    *Cookie
	Rejected  bool
	RejectWhy string // "cross-domain", "malformed", "max-age-zero", "expired"
}

// Parse parses a single Set-Cookie header value (e.g.
// "sid=AAA; Domain=example.test; Path=/; HttpOnly"). requestHost is the
// host that sent the response; if non-empty, a declared Domain attribute
// must be a suffix of (or equal to) requestHost and must itself be a valid
// cookie scope (not a bare public suffix such as "test" or "co.uk"), or
// the cookie is rejected as a cross-domain injection attempt, per
// spec.md §4.2/§7.
func Parse(setCookieValue, requestHost string, now time.Time) ParseResult {
	segments := strings.Split(setCookieValue, ";")
	if len(segments) == 0 {
		return ParseResult{Rejected: true, RejectWhy: "malformed"}
	}

	nameValue := strings.TrimSpace(segments[0])
	eq := strings.IndexByte(nameValue, '=')
	if eq < 0 {
		return ParseResult{Rejected: true, RejectWhy: "malformed"}
	}
	name := strings.TrimSpace(nameValue[:eq])
	value := strings.TrimSpace(nameValue[eq+1:])
	if name == "" {
		return ParseResult{Rejected: true, RejectWhy: "malformed"}
	}

	c := &Cookie{Name: name, Value: value, Path: "/"}

	var maxAgeSeen bool
	var maxAge int
	var expiresAttr time.Time
	var domainAttr string

	for _, seg := range segments[1:] {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		var attr, attrVal string
		if eq := strings.IndexByte(seg, '='); eq >= 0 {
			attr = strings.TrimSpace(seg[:eq])
			attrVal = strings.TrimSpace(seg[eq+1:])
		} else {
			attr = seg
		}

		switch strings.ToLower(attr) {
		case "domain":
			domainAttr = strings.ToLower(strings.TrimPrefix(attrVal, "."))
		case "path":
			if strings.HasPrefix(attrVal, "/") {
				c.Path = attrVal
			}
		case "secure":
			c.Secure = true
		case "httponly":
			c.HttpOnly = true
		case "samesite":
			switch strings.ToLower(attrVal) {
			case "none":
				c.SameSite = SameSiteNone
			case "lax":
				c.SameSite = SameSiteLax
			case "strict":
				c.SameSite = SameSiteStrict
			}
		case "expires":
			if t, err := parseHTTPDate(attrVal); err == nil {
				expiresAttr = t
			}
		case "max-age":
			if n, err := strconv.Atoi(attrVal); err == nil {
				maxAgeSeen = true
				maxAge = n
			}
		}
	}

	if domainAttr != "" {
		c.Domain = domainAttr
	} else if requestHost != "" {
		c.Domain = requestHost
	}

	if requestHost != "" && domainAttr != "" {
		if !(domainAttr == requestHost || strings.HasSuffix(requestHost, "."+domainAttr)) {
			return ParseResult{Rejected: true, RejectWhy: "cross-domain"}
		}
		if !hostclass.IsCookieScope(domainAttr) {
			return ParseResult{Rejected: true, RejectWhy: "cross-domain"}
		}
	}

	// Max-Age overrides Expires; both interpreted as instants.
	switch {
	case maxAgeSeen && maxAge <= 0:
		return ParseResult{Rejected: true, RejectWhy: "max-age-zero"}
	case maxAgeSeen:
		c.Expires = now.Add(time.Duration(maxAge) * time.Second)
	case !expiresAttr.IsZero():
		if !expiresAttr.After(now) {
			return ParseResult{Rejected: true, RejectWhy: "expired"}
		}
		c.Expires = expiresAttr
	}

	c.Created = now
	c.LastAccess = now
	return ParseResult{Cookie: c}
}

func parseHTTPDate(s string) (time.Time, error) {
	layouts := []string{
		time.RFC1123, time.RFC1123Z,
		"Mon, 02-Jan-2006 15:04:05 MST",
		"Monday, 02-Jan-06 15:04:05 MST",
		time.ANSIC,
	}
	var lastErr error
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}
	return time.Time{}, lastErr
}

// ---------------------------------------------------------------------
// Serialization

// Serialize joins cookies into a single Cookie request-header value:
// "n1=v1; n2=v2; ...". Order follows RFC 6265 5.4: longer paths first,
// ties broken by earlier creation time.
func Serialize(cookies []*Cookie) string {
	if len(cookies) == 0 {
		return ""
	}
	ordered := make([]*Cookie, len(cookies))
	copy(ordered, cookies)
	sort.SliceStable(ordered, func(i, j int) bool {
		li, lj := len(ordered[i].Path), len(ordered[j].Path)
		if li != lj {
			return li > lj
		}
		return ordered[i].Created.Before(ordered[j].Created)
	})

	parts := make([]string, 0, len(ordered))
	for _, c := range ordered {
		parts = append(parts, c.Name+"="+c.Value)
	}
	return strings.Join(parts, "; ")
}

// ---------------------------------------------------------------------
// URL helpers shared with the interceptor and shim.

// Host returns the canonical (lower-cased, port-stripped) host from u, per
// RFC 6265 5.1.2.
func Host(u *url.URL) (string, error) {
	host := strings.ToLower(u.Host)
	host = strings.TrimSuffix(host, ".")
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		h, _, err := net.SplitHostPort(host)
		if err != nil {
			return "", err
		}
		host = h
	} else if strings.HasPrefix(host, "[") {
		if h, _, err := net.SplitHostPort(host); err == nil {
			host = h
		}
	}
	return host, nil
}

// IsHTTP reports whether u uses the http or https scheme.
func IsHTTP(u *url.URL) bool {
	scheme := strings.ToLower(u.Scheme)
	return scheme == "http" || scheme == "https"
}

// IsSecure reports whether u uses https.
func IsSecure(u *url.URL) bool {
	return strings.ToLower(u.Scheme) == "https"
}

// DefaultPath returns the "directory" part of u.Path per RFC 6265 5.1.4.
func DefaultPath(u *url.URL) string {
	path := u.Path
	if len(path) == 0 || path[0] != '/' {
		return "/"
	}
	i := strings.LastIndex(path, "/")
	if i == 0 {
		return "/"
	}
	return path[:i]
}

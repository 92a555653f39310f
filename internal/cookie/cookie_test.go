package cookie

import (
	"testing"
	"time"
)

func TestParseBasic(t *testing.T) {
	now := time.Now()
	res := Parse("sid=AAA; Domain=example.test; Path=/; HttpOnly", "example.test", now)
	if res.Rejected {
		t.Fatalf("unexpected rejection: %s", res.RejectWhy)
	}
	c := res.Cookie
	if c.Name != "sid" || c.Value != "AAA" || c.Domain != "example.test" || c.Path != "/" || !c.HttpOnly {
		t.Errorf("got %+v", c)
	}
}

func TestParseMissingDomainUsesRequestHost(t *testing.T) {
	res := Parse("k=v", "example.test", time.Now())
	if res.Rejected {
		t.Fatalf("unexpected rejection: %s", res.RejectWhy)
	}
	if res.Cookie.Domain != "example.test" {
		t.Errorf("Domain = %q, want example.test", res.Cookie.Domain)
	}
}

func TestParseCrossDomainRejected(t *testing.T) {
	res := Parse("evil=1; Domain=test", "foo.test", time.Now())
	if !res.Rejected || res.RejectWhy != "cross-domain" {
		t.Fatalf("got %+v, want cross-domain rejection", res)
	}
}

func TestParseMaxAgeZeroRejected(t *testing.T) {
	res := Parse("k=v; Max-Age=0", "example.test", time.Now())
	if !res.Rejected || res.RejectWhy != "max-age-zero" {
		t.Fatalf("got %+v, want max-age-zero rejection", res)
	}
}

func TestParseMaxAgeOverridesExpires(t *testing.T) {
	now := time.Now()
	res := Parse("k=v; Max-Age=60; Expires=Mon, 01-Jan-1990 00:00:00 GMT", "x.test", now)
	if res.Rejected {
		t.Fatalf("unexpected rejection: %s", res.RejectWhy)
	}
	want := now.Add(60 * time.Second)
	if res.Cookie.Expires.Sub(want) > time.Second || want.Sub(res.Cookie.Expires) > time.Second {
		t.Errorf("Expires = %v, want close to %v", res.Cookie.Expires, want)
	}
}

func TestParseMalformed(t *testing.T) {
	for _, v := range []string{"", "novalue", ";;;"} {
		res := Parse(v, "x.test", time.Now())
		if !res.Rejected {
			t.Errorf("Parse(%q) not rejected", v)
		}
	}
}

func TestSerializeOrdersLongerPathFirst(t *testing.T) {
	now := time.Now()
	cookies := []*Cookie{
		{Name: "a", Value: "1", Path: "/", Created: now},
		{Name: "b", Value: "2", Path: "/long/path", Created: now.Add(time.Second)},
	}
	got := Serialize(cookies)
	want := "b=2; a=1"
	if got != want {
		t.Errorf("Serialize = %q, want %q", got, want)
	}
}

func TestSerializeEmpty(t *testing.T) {
	if got := Serialize(nil); got != "" {
		t.Errorf("Serialize(nil) = %q, want empty", got)
	}
}

func TestPathMatch(t *testing.T) {
	tests := []struct {
		cookiePath, reqPath string
		want                bool
	}{
		{"/", "/anything", true},
		{"/ab/xy", "/ab/xy", true},
		{"/ab/xy", "/ab/xy/more", true},
		{"/ab/xy", "/ab/xyz", false},
		{"/ab/xy/", "/ab/xy/more", true},
	}
	for _, tt := range tests {
		c := &Cookie{Path: tt.cookiePath}
		if got := c.pathMatch(tt.reqPath); got != tt.want {
			t.Errorf("pathMatch(%q against %q) = %v, want %v", tt.reqPath, tt.cookiePath, got, tt.want)
		}
	}
}

func TestDomainMatchHostOnly(t *testing.T) {
	c := &Cookie{Domain: "example.test"}
	if !c.domainMatch("example.test", true) {
		t.Errorf("host-only cookie should match identical host")
	}
	if c.domainMatch("sub.example.test", true) {
		t.Errorf("host-only cookie must not match subdomain")
	}
	if !c.domainMatch("sub.example.test", false) {
		t.Errorf("domain cookie should match subdomain")
	}
}

func TestIsExpired(t *testing.T) {
	now := time.Now()
	session := &Cookie{}
	if session.IsExpired(now) {
		t.Errorf("session cookie reported expired")
	}
	expired := &Cookie{Expires: now.Add(-time.Second)}
	if !expired.IsExpired(now) {
		t.Errorf("past-dated cookie not reported expired")
	}
}

// Copyright 2012 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package hostclass

// singleLabelSuffixes lists common gTLDs and ccTLDs that MUST NOT, by
// themselves, be treated as a valid cookie scope (a cookie scoped to "com"
// would match every ".com" host). This is a hand-curated subset of the
// public suffix list covering the common gTLDs and ccTLDs in everyday
// traffic; it is not a full mirror of publicsuffix.org. An implementation
// MAY swap it for the full list without changing behavior, per §4.1.
var singleLabelSuffixes = buildSet([]string{
	"com", "org", "net", "edu", "gov", "mil", "int", "info", "biz", "name",
	"pro", "coop", "aero", "museum", "jobs", "mobi", "travel", "tel", "asia",
	"cat", "xxx", "app", "dev", "page", "new", "blog", "shop", "online",
	"site", "store", "tech", "club", "live", "life", "world", "today",
	"email", "media", "news", "agency", "company", "group", "team",
	"ac", "ad", "ae", "af", "ag", "ai", "al", "am", "ao", "aq", "ar", "as",
	"at", "au", "aw", "ax", "az", "ba", "bb", "bd", "be", "bf", "bg", "bh",
	"bi", "bj", "bm", "bn", "bo", "br", "bs", "bt", "bw", "by", "bz", "ca",
	"cc", "cd", "cf", "cg", "ch", "ci", "ck", "cl", "cm", "cn", "co", "cr",
	"cu", "cv", "cw", "cx", "cy", "cz", "de", "dj", "dk", "dm", "do", "dz",
	"ec", "ee", "eg", "eh", "er", "es", "et", "eu", "fi", "fj", "fk", "fm",
	"fo", "fr", "ga", "gb", "gd", "ge", "gf", "gg", "gh", "gi", "gl", "gm",
	"gn", "gp", "gq", "gr", "gs", "gt", "gu", "gw", "gy", "hk", "hm", "hn",
	"hr", "ht", "hu", "id", "ie", "il", "im", "in", "io", "iq", "ir", "is",
	"it", "je", "jm", "jo", "jp", "ke", "kg", "kh", "ki", "km", "kn", "kp",
	"kr", "kw", "ky", "kz", "la", "lb", "lc", "li", "lk", "lr", "ls", "lt",
	"lu", "lv", "ly", "ma", "mc", "md", "me", "mg", "mh", "mk", "ml", "mm",
	"mn", "mo", "mp", "mq", "mr", "ms", "mt", "mu", "mv", "mw", "mx", "my",
	"mz", "na", "nc", "ne", "nf", "ng", "ni", "nl", "no", "np", "nr", "nu",
	"nz", "om", "pa", "pe", "pf", "pg", "ph", "pk", "pl", "pm", "pn", "pr",
	"ps", "pt", "pw", "py", "qa", "re", "ro", "rs", "ru", "rw", "sa", "sb",
	"sc", "sd", "se", "sg", "sh", "si", "sk", "sl", "sm", "sn", "so", "sr",
	"ss", "st", "sv", "sx", "sy", "sz", "tc", "td", "tf", "tg", "th", "tj",
	"tk", "tl", "tm", "tn", "to", "tr", "tt", "tv", "tw", "tz", "ua", "ug",
	"uk", "us", "uy", "uz", "va", "vc", "ve", "vg", "vi", "vn", "vu", "wf",
	"ws", "ye", "yt", "za", "zm", "zw", "xyz", "nyc", "london", "berlin",
	// reserved special-use TLDs (RFC 2606 / IANA special-use registry):
	// never delegated, so a cookie scoped to one of these bare labels
	// must not be treated as a valid, specific cookie scope either.
	"test", "example", "invalid", "local",
})

// multiLabelSuffixes lists well-known multi-label public suffixes -
// registries where the registrable domain is suffix+1, e.g. "co.uk"
// (registrable: "example.co.uk") or "github.io" (registrable:
// "name.github.io"). Stored without a leading dot; every entry has two
// labels except "s3.amazonaws.com".
var multiLabelSuffixes = buildSet([]string{
	"co.uk", "org.uk", "me.uk", "ac.uk", "gov.uk", "net.uk", "sch.uk",
	"nhs.uk", "police.uk", "ltd.uk", "plc.uk",
	"co.jp", "ac.jp", "ad.jp", "ed.jp", "go.jp", "gr.jp", "lg.jp", "ne.jp",
	"or.jp",
	"com.au", "net.au", "org.au", "edu.au", "gov.au", "id.au", "asn.au",
	"com.br", "net.br", "org.br", "gov.br", "edu.br",
	"com.cn", "net.cn", "org.cn", "gov.cn", "edu.cn",
	"co.in", "net.in", "org.in", "gen.in", "firm.in", "ind.in",
	"co.nz", "net.nz", "org.nz", "govt.nz", "ac.nz", "school.nz",
	"co.za", "net.za", "org.za", "gov.za", "web.za",
	"com.mx", "net.mx", "org.mx", "gob.mx", "edu.mx",
	"com.sg", "net.sg", "org.sg", "gov.sg", "edu.sg",
	"com.hk", "net.hk", "org.hk", "gov.hk", "edu.hk",
	"com.tw", "net.tw", "org.tw", "gov.tw", "edu.tw",
	"co.kr", "ne.kr", "or.kr", "go.kr", "re.kr",
	"com.tr", "net.tr", "org.tr", "gov.tr", "edu.tr",
	"com.ar", "net.ar", "org.ar", "gov.ar", "edu.ar",
	"co.il", "net.il", "org.il", "gov.il", "ac.il",
	"com.ua", "net.ua", "org.ua", "gov.ua", "edu.ua",
	"com.ru", "net.ru", "org.ru", "gov.ru", "edu.ru",
	"github.io", "gitlab.io", "pages.dev", "web.app", "firebaseapp.com",
	"herokuapp.com", "vercel.app", "netlify.app", "s3.amazonaws.com",
	"cloudfront.net", "azurewebsites.net", "blogspot.com", "appspot.com",
	"workers.dev",
})

func buildSet(labels []string) map[string]struct{} {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

func isSingleLabelSuffix(label string) bool {
	_, ok := singleLabelSuffixes[label]
	return ok
}

func isMultiLabelSuffix(lastTwo string) bool {
	_, ok := multiLabelSuffixes[lastTwo]
	return ok
}

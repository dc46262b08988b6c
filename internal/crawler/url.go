package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// resolveLink turns an href into an absolute URL. Absolute hrefs are
// returned as parsed; relative ones are joined against the session domain,
// not against the page they were found on.
func resolveLink(domain *url.URL, href string) (*url.URL, error) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return nil, fmt.Errorf("parse link %q: %w", href, err)
	}
	if ref.IsAbs() {
		return ref, nil
	}
	return domain.ResolveReference(ref), nil
}

// sameAuthority reports whether a and b share host and port, ignoring case.
func sameAuthority(a, b *url.URL) bool {
	return strings.EqualFold(a.Host, b.Host)
}

func supportedScheme(u *url.URL) bool {
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return true
	default:
		return false
	}
}

func robotsURL(domain *url.URL) *url.URL {
	return &url.URL{Scheme: domain.Scheme, Host: domain.Host, Path: "/robots.txt"}
}

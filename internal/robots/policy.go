// Package robots evaluates robots.txt rules for a single crawl session.
package robots

import (
	"net/url"

	"github.com/temoto/robotstxt"
)

// Policy holds the parsed robots.txt of one domain. A nil Policy allows
// everything.
type Policy struct {
	data *robotstxt.RobotsData
}

// Parse builds a Policy from robots.txt text. Empty or unparsable text yields
// a policy that allows every path, along with the parse error if any.
func Parse(text string) (*Policy, error) {
	if text == "" {
		return &Policy{}, nil
	}
	data, err := robotstxt.FromString(text)
	if err != nil {
		return &Policy{}, err
	}
	return &Policy{data: data}, nil
}

// Allowed reports whether agent may fetch u. The most specific group for
// agent wins and the "*" group is the fallback.
func (p *Policy) Allowed(agent string, u *url.URL) bool {
	if p == nil || p.data == nil || u == nil {
		return true
	}
	group := p.data.FindGroup(agent)
	if group == nil {
		return true
	}
	return group.Test(target(u))
}

func target(u *url.URL) string {
	path := u.EscapedPath()
	if path == "" {
		path = "/"
	}
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return path
}

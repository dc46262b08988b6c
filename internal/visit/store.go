// Package visit records which URLs of each crawled domain have been seen and
// how many times they were discovered.
//
// Records are partitioned by domain. Each partition carries its own lock, so
// writers to one domain only contend with readers of another for the short
// time it takes to look up the partition.
package visit

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
)

var (
	// ErrDoesNotContainDomain is returned for URLs without a host.
	ErrDoesNotContainDomain = errors.New("URL does not contain domain")
	// ErrDomainDoesNotExist is returned when a domain has no records at all.
	ErrDomainDoesNotExist = errors.New("domain does not exist")
)

// Store is a concurrent, domain-partitioned visit counter. The zero value is
// not usable; construct it with NewStore.
type Store struct {
	mu      sync.RWMutex
	domains map[string]*partition
}

type partition struct {
	mu     sync.RWMutex
	counts map[string]int
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{domains: make(map[string]*partition)}
}

// IsFirstVisit reports whether no record exists yet for u.
func (s *Store) IsFirstVisit(u *url.URL) (bool, error) {
	domain, key, err := split(u)
	if err != nil {
		return false, err
	}
	p := s.lookup(domain)
	if p == nil {
		return true, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, seen := p.counts[key]
	return !seen, nil
}

// Visit increments the occurrence count for u, creating the record if needed.
func (s *Store) Visit(u *url.URL) error {
	_, err := s.Record(u)
	return err
}

// Record increments the occurrence count for u and reports whether this call
// created the record. The check and the increment happen under one lock, so
// concurrent callers racing on the same URL see exactly one first visit.
func (s *Store) Record(u *url.URL) (bool, error) {
	domain, key, err := split(u)
	if err != nil {
		return false, err
	}
	p := s.lookupOrCreate(domain)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.counts[key]++
	return p.counts[key] == 1, nil
}

// UniqueURLsForDomain resolves every key stored for domain into an absolute
// URL. The result is sorted for stable output.
func (s *Store) UniqueURLsForDomain(domain *url.URL) ([]*url.URL, error) {
	name, _, err := split(domain)
	if err != nil {
		return nil, err
	}
	p := s.lookup(name)
	if p == nil {
		return nil, ErrDomainDoesNotExist
	}

	p.mu.RLock()
	keys := make([]string, 0, len(p.counts))
	for k := range p.counts {
		keys = append(keys, k)
	}
	p.mu.RUnlock()
	if len(keys) == 0 {
		return nil, ErrDomainDoesNotExist
	}
	sort.Strings(keys)

	urls := make([]*url.URL, 0, len(keys))
	for _, k := range keys {
		resolved, err := resolveKey(domain, k)
		if err != nil {
			continue
		}
		urls = append(urls, resolved)
	}
	return urls, nil
}

// resolveKey rebuilds the URL for a key under domain's scheme and authority.
// Keys are never parsed as references, so a path such as "//other.host/x"
// stays a path.
func resolveKey(domain *url.URL, key string) (*url.URL, error) {
	u := &url.URL{Scheme: domain.Scheme, Host: domain.Host}

	rest, frag, hasFrag := strings.Cut(key, "#")
	if hasFrag {
		fragment, err := url.PathUnescape(frag)
		if err != nil {
			return nil, fmt.Errorf("unescape fragment %q: %w", frag, err)
		}
		u.Fragment = fragment
		u.RawFragment = frag
	}
	path, query, hasQuery := strings.Cut(rest, "?")
	u.RawQuery = query
	u.ForceQuery = hasQuery && query == ""

	unescaped, err := url.PathUnescape(path)
	if err != nil {
		return nil, fmt.Errorf("unescape path %q: %w", path, err)
	}
	u.Path = unescaped
	u.RawPath = path
	return u, nil
}

// URLCountForDomain returns how many times u was visited. A missing key on a
// known domain counts as zero.
func (s *Store) URLCountForDomain(u *url.URL) (int, error) {
	domain, key, err := split(u)
	if err != nil {
		return 0, err
	}
	p := s.lookup(domain)
	if p == nil {
		return 0, ErrDomainDoesNotExist
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	// A partition is created just before its first record lands.
	if len(p.counts) == 0 {
		return 0, ErrDomainDoesNotExist
	}
	return p.counts[key], nil
}

// Domains lists the partitions that hold at least one record.
func (s *Store) Domains() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (s *Store) lookup(domain string) *partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.domains[domain]
}

func (s *Store) lookupOrCreate(domain string) *partition {
	if p := s.lookup(domain); p != nil {
		return p
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.domains[domain]; ok {
		return p
	}
	p := &partition{counts: make(map[string]int)}
	s.domains[domain] = p
	return p
}

// DomainOf returns the partition name for u: its lower-cased host and port.
func DomainOf(u *url.URL) (string, error) {
	if u == nil || u.Host == "" {
		return "", ErrDoesNotContainDomain
	}
	return strings.ToLower(u.Host), nil
}

// KeyOf returns everything after the authority of u. An empty path is
// treated as "/".
func KeyOf(u *url.URL) string {
	var b strings.Builder
	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	b.WriteString(p)
	if u.ForceQuery || u.RawQuery != "" {
		b.WriteByte('?')
		b.WriteString(u.RawQuery)
	}
	if u.Fragment != "" {
		b.WriteByte('#')
		b.WriteString(u.EscapedFragment())
	}
	return b.String()
}

func split(u *url.URL) (string, string, error) {
	domain, err := DomainOf(u)
	if err != nil {
		return "", "", err
	}
	return domain, KeyOf(u), nil
}

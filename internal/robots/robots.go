// Package robots implements a per-domain cache of robots.txt content and
// crawl-delay directives, fetched at most once per domain for the lifetime
// of a crawl.
package robots

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/temoto/robotstxt"
)

const robotsTxtPath = "/robots.txt"

// Fetcher is the minimal HTTP capability the cache needs to retrieve a
// robots.txt resource; satisfied by *http.Client and by the crawler's own
// fetch client.
type Fetcher interface {
	Do(req *http.Request) (*http.Response, error)
}

// Entry holds the parsed robots.txt group for a single domain, or the
// "no policy" zero value when fetching/parsing failed, in which case every
// URL is permitted and no crawl-delay is enforced.
type Entry struct {
	group *robotstxt.Group
}

// CrawlDelay returns the Crawl-delay directive parsed from robots.txt, if
// the domain had a valid one.
func (e *Entry) CrawlDelay() (time.Duration, bool) {
	if e == nil || e.group == nil || e.group.CrawlDelay <= 0 {
		return 0, false
	}
	return e.group.CrawlDelay, true
}

// Allowed reports whether u may be fetched under this entry's robots.txt
// group. A "no policy" entry permits everything.
func (e *Entry) Allowed(u *url.URL) bool {
	if e == nil || e.group == nil {
		return true
	}
	return e.group.Test(u.RequestURI())
}

// Cache memoises one Entry per domain authority, guaranteeing at most one
// robots.txt GET request per domain for the lifetime of the Cache.
type Cache struct {
	userAgent string
	client    Fetcher

	mu      sync.Mutex
	entries map[string]*Entry
	gates   map[string]*sync.Once
}

// NewCache creates a Cache that fetches robots.txt using client, identifying
// itself with userAgent.
func NewCache(client Fetcher, userAgent string) *Cache {
	return &Cache{
		userAgent: userAgent,
		client:    client,
		entries:   make(map[string]*Entry),
		gates:     make(map[string]*sync.Once),
	}
}

// Get returns the Entry for domain, fetching and parsing robots.txt on the
// first call for that domain and caching the result for every subsequent
// call. Concurrent callers racing on the same domain block on a single
// in-flight fetch rather than issuing duplicate requests.
func (c *Cache) Get(ctx context.Context, scheme, domain string) *Entry {
	c.mu.Lock()
	gate, ok := c.gates[domain]
	if !ok {
		gate = &sync.Once{}
		c.gates[domain] = gate
	}
	c.mu.Unlock()

	gate.Do(func() {
		entry := c.fetch(ctx, scheme, domain)
		c.mu.Lock()
		c.entries[domain] = entry
		c.mu.Unlock()
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[domain]
}

func (c *Cache) fetch(ctx context.Context, scheme, domain string) *Entry {
	target := scheme + "://" + domain + robotsTxtPath
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return &Entry{}
	}
	req.Header.Set("User-Agent", c.userAgent)

	res, err := c.client.Do(req)
	if err != nil {
		return &Entry{}
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return &Entry{}
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return &Entry{}
	}

	data, err := robotstxt.FromStatusAndBytes(res.StatusCode, body)
	if err != nil {
		return &Entry{}
	}

	return &Entry{group: data.FindGroup(c.userAgent)}
}

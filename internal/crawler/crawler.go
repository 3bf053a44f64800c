// Package crawler implements the bounded, polite, concurrent web crawler:
// depth and page caps, per-domain robots.txt obedience, concurrency
// limiting, domain-scoped link following, content-type filtering and
// deduplication of visited URLs.
package crawler

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/aeolus-crawl/crawlsearch/internal/events"
	"github.com/aeolus-crawl/crawlsearch/internal/fetch"
	"github.com/aeolus-crawl/crawlsearch/internal/linkextract"
	"github.com/aeolus-crawl/crawlsearch/internal/robots"
)

// Writer is the capability the Crawler emits fetched pages to; satisfied
// by *search.Engine.
type Writer interface {
	Write(text, url, originURL string, depth uint32)
}

// Crawler drives a single bounded crawl per call to Start. Its
// configuration is immutable for the crawler's lifetime; per-crawl state
// (visited set, robots cache, semaphore) is scoped to each Start call.
type Crawler struct {
	cfg    Config
	logger *logrus.Entry
	events *events.Bus
}

// New creates a Crawler with the given configuration. logger and bus may be
// nil, in which case logging and event publishing are no-ops.
func New(cfg Config, logger *logrus.Entry, bus *events.Bus) *Crawler {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Crawler{cfg: cfg, logger: logger, events: bus}
}

// Start parses seed and begins traversal at depth 0, returning once the
// traversal quiesces. It fails only if the seed URL cannot be parsed or
// lacks a host; every per-page failure is absorbed and logged instead.
func (c *Crawler) Start(ctx context.Context, seed string, writer Writer) error {
	u, err := url.Parse(seed)
	if err != nil {
		return fmt.Errorf("invalid seed url %q: %w", seed, err)
	}
	if u.Hostname() == "" {
		return fmt.Errorf("invalid seed url %q: missing host", seed)
	}

	fetcher := fetch.New(c.cfg.UserAgent, c.cfg.FetchTimeout)
	concurrency := c.cfg.MaxConcurrentRequests
	if concurrency < 1 {
		concurrency = 1
	}

	r := &run{
		cfg:     c.cfg,
		writer:  writer,
		fetcher: fetcher,
		robots:  robots.NewCache(fetcher, c.cfg.UserAgent),
		visited: newVisitedSet(),
		sem:     make(chan struct{}, concurrency),
		logger:  c.logger,
		events:  c.events,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go r.visit(ctx, u, u.String(), 0, &wg)
	wg.Wait()
	return nil
}

// run holds the state scoped to a single crawl: the visited set, the
// robots cache, the concurrency semaphore and the fetch client, all shared
// read/write across the crawl's concurrent fetch goroutines.
type run struct {
	cfg     Config
	writer  Writer
	fetcher *fetch.Client
	robots  *robots.Cache
	visited *visitedSet
	sem     chan struct{}
	logger  *logrus.Entry
	events  *events.Bus
}

// visit fetches a single URL, applying the admission checks, politeness
// delay, content filters and link extraction described by the crawler's
// traversal contract, then recurses into same-domain children. It never
// returns an error: every failure is isolated to the page it occurred on.
func (r *run) visit(ctx context.Context, u *url.URL, originURL string, depth int, wg *sync.WaitGroup) {
	defer wg.Done()

	select {
	case r.sem <- struct{}{}:
	case <-ctx.Done():
		return
	}

	urlStr := u.String()

	if depth > r.cfg.MaxDepth || r.visited.Len() > r.cfg.MaxPages || r.visited.Contains(urlStr) {
		<-r.sem
		r.publish(events.KindSkippedLimit, urlStr, originURL, depth, "")
		return
	}

	domain := u.Hostname()
	if domain == "" {
		<-r.sem
		return
	}

	if r.cfg.RobotsEnabled {
		entry := r.robots.Get(ctx, u.Scheme, u.Host)
		delay := time.Duration(r.cfg.RateLimitWaitSeconds) * time.Second
		if d, ok := entry.CrawlDelay(); ok {
			delay = d
		}
		sleepCtx(ctx, delay)
		if !entry.Allowed(u) {
			<-r.sem
			r.publish(events.KindSkippedRobots, urlStr, originURL, depth, "")
			return
		}
	} else {
		sleepCtx(ctx, time.Duration(r.cfg.RateLimitWaitSeconds)*time.Second)
	}

	res, err := r.fetcher.Get(ctx, urlStr)
	if err != nil {
		<-r.sem
		r.logger.WithError(err).WithField("url", urlStr).Debug("fetch failed")
		r.publish(events.KindFetchError, urlStr, originURL, depth, err.Error())
		return
	}

	if res.Header.Get("cf-mitigated") == "challenge" {
		<-r.sem
		r.publish(events.KindSkippedCloudflare, urlStr, originURL, depth, "")
		return
	}

	if len(r.cfg.AllowedMimes) > 0 {
		sniffed := http.DetectContentType(res.Body)
		if mimeType, _, err := mime.ParseMediaType(sniffed); err == nil && !r.cfg.AllowedMimes[mimeType] {
			<-r.sem
			r.publish(events.KindSkippedMime, urlStr, originURL, depth, mimeType)
			return
		}
	}

	if !utf8.Valid(res.Body) {
		<-r.sem
		r.publish(events.KindSkippedDecode, urlStr, originURL, depth, "")
		return
	}
	text := string(res.Body)

	r.writer.Write(text, urlStr, originURL, uint32(depth))
	r.visited.Add(urlStr)
	r.publish(events.KindIndexed, urlStr, originURL, depth, "")

	// Release the permit before awaiting children so their fetches can
	// make progress independently of this goroutine's concurrency slot.
	<-r.sem

	hrefs, err := linkextract.Extract(res.Body)
	if err != nil {
		return
	}

	var childWg sync.WaitGroup
	scheduled := make(map[string]bool, len(hrefs))
	for _, href := range hrefs {
		resolved, err := u.Parse(href)
		if err != nil {
			continue
		}
		if resolved.Hostname() != domain {
			continue
		}
		key := resolved.String()
		if scheduled[key] {
			continue
		}
		scheduled[key] = true
		childWg.Add(1)
		go r.visit(ctx, resolved, originURL, depth+1, &childWg)
	}
	childWg.Wait()
}

func (r *run) publish(kind events.Kind, url, originURL string, depth int, reason string) {
	if r.events == nil {
		return
	}
	r.events.Publish(events.CrawlEvent{
		Kind:      kind,
		URL:       url,
		OriginURL: originURL,
		Depth:     depth,
		Reason:    reason,
	})
}

// sleepCtx sleeps for d or until ctx is cancelled, whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// recordingWriter collects every PageTuple emitted by the crawler for
// inspection by the tests below.
type recordingWriter struct {
	mu    sync.Mutex
	pages []page
}

type page struct {
	text, url, originURL string
	depth                uint32
}

func (w *recordingWriter) Write(text, url, originURL string, depth uint32) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pages = append(w.pages, page{text, url, originURL, depth})
}

func (w *recordingWriter) snapshot() []page {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]page, len(w.pages))
	copy(out, w.pages)
	return out
}

// S1: a 3-page site where / links to /a and /b, each serving
// <p>hello world</p>, reachable within depth 2.
func TestCrawlerS1IndexesLinkedPages(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/a">a</a><a href="/b">b</a>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>hello world</p>`)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>hello world</p>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(NewConfig(WithMaxDepth(2), WithRobotsEnabled(false), WithRateLimitWaitSeconds(0)), nil, nil)
	writer := &recordingWriter{}

	if err := c.Start(context.Background(), server.URL+"/", writer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	pages := writer.snapshot()
	if len(pages) < 2 {
		t.Fatalf("expected at least 2 indexed pages, got %d: %+v", len(pages), pages)
	}
	for _, p := range pages {
		if p.originURL != server.URL+"/" {
			t.Errorf("unexpected origin_url: %s", p.originURL)
		}
	}
}

// S2: robots.txt disallows /private, and Crawl-delay is honored between
// successive admitted fetches.
func TestCrawlerS2RespectsRobotsAndCrawlDelay(t *testing.T) {
	var privateHit bool
	var mu sync.Mutex
	var gets []time.Time

	recordGET := func() {
		mu.Lock()
		gets = append(gets, time.Now())
		mu.Unlock()
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "User-agent: *\nDisallow: /private\nCrawl-delay: 1\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		recordGET()
		fmt.Fprint(w, `<a href="/a">a</a><a href="/private/page">private</a>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		recordGET()
		fmt.Fprint(w, `<p>leaf page</p>`)
	})
	mux.HandleFunc("/private/page", func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		privateHit = true
		mu.Unlock()
		fmt.Fprint(w, `<p>secret</p>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(NewConfig(WithMaxDepth(2), WithMaxConcurrentRequests(1), WithRobotsEnabled(true)), nil, nil)
	writer := &recordingWriter{}

	if err := c.Start(context.Background(), server.URL+"/", writer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if privateHit {
		t.Errorf("expected /private/page to never be fetched")
	}
	for _, p := range writer.snapshot() {
		if p.url == server.URL+"/private/page" {
			t.Errorf("expected /private/page to never be indexed")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(gets) < 2 {
		t.Fatalf("expected at least 2 admitted fetches to compare a gap, got %d", len(gets))
	}
	gap := gets[1].Sub(gets[0])
	if gap < time.Second {
		t.Errorf("expected the configured Crawl-delay: 1 to be honored between successive fetches, got gap %v", gap)
	}
}

// S3: only the same-domain link is followed; the cross-domain link is not.
func TestCrawlerS3StaysOnSeedDomain(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<a href="http://other.invalid/">other</a><a href="http://%s/about">about</a>`, r.Host)
	})
	mux.HandleFunc("/about", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>about page</p>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(NewConfig(WithMaxDepth(2), WithRobotsEnabled(false), WithRateLimitWaitSeconds(0)), nil, nil)
	writer := &recordingWriter{}

	if err := c.Start(context.Background(), server.URL+"/", writer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	host := mustHost(t, server.URL)
	for _, p := range writer.snapshot() {
		pu, err := url.Parse(p.url)
		if err != nil {
			t.Fatalf("bad url in tuple: %v", err)
		}
		if pu.Hostname() != host {
			t.Errorf("expected only %s to be crawled, got %s", host, p.url)
		}
	}
}

// S4: a cf-mitigated challenge response is skipped entirely.
func TestCrawlerS4SkipsCloudflareMitigation(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("cf-mitigated", "challenge")
		fmt.Fprint(w, `<p>hello</p>`)
	}))
	defer server.Close()

	c := New(NewConfig(WithMaxDepth(1), WithRobotsEnabled(false), WithRateLimitWaitSeconds(0)), nil, nil)
	writer := &recordingWriter{}

	if err := c.Start(context.Background(), server.URL+"/", writer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if len(writer.snapshot()) != 0 {
		t.Errorf("expected no pages indexed behind a Cloudflare challenge, got %+v", writer.snapshot())
	}
}

// S6: with max_pages=1 against a 10-page site, at most 1+concurrency pages
// are fetched.
func TestCrawlerS6RespectsMaxPagesSoftCap(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		var links string
		for i := 0; i < 10; i++ {
			links += fmt.Sprintf(`<a href="/p%d">p%d</a>`, i, i)
		}
		fmt.Fprint(w, links)
	})
	for i := 0; i < 10; i++ {
		i := i
		mux.HandleFunc(fmt.Sprintf("/p%d", i), func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `<p>leaf page</p>`)
		})
	}
	server := httptest.NewServer(mux)
	defer server.Close()

	concurrency := 2
	c := New(NewConfig(
		WithMaxDepth(3),
		WithMaxPages(1),
		WithMaxConcurrentRequests(concurrency),
		WithRobotsEnabled(false),
		WithRateLimitWaitSeconds(0),
	), nil, nil)
	writer := &recordingWriter{}

	if err := c.Start(context.Background(), server.URL+"/", writer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if got, max := len(writer.snapshot()), 1+concurrency; got > max {
		t.Errorf("expected at most %d indexed pages, got %d", max, got)
	}
}

func TestCrawlerInvalidSeedFails(t *testing.T) {
	c := New(NewConfig(), nil, nil)
	err := c.Start(context.Background(), "://not-a-url", &recordingWriter{})
	if err == nil {
		t.Errorf("expected an error for an unparseable seed URL")
	}
}

func TestCrawlerDedupesVisitedURLs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<a href="/a">a</a><a href="/a">a again</a><a href="/">self</a>`)
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<p>leaf</p>`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	c := New(NewConfig(WithMaxDepth(3), WithRobotsEnabled(false), WithRateLimitWaitSeconds(0)), nil, nil)
	writer := &recordingWriter{}

	if err := c.Start(context.Background(), server.URL+"/", writer); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	seen := map[string]int{}
	for _, p := range writer.snapshot() {
		seen[p.url]++
	}
	for u, n := range seen {
		if n > 1 {
			t.Errorf("url %s was indexed %d times, expected at most once", u, n)
		}
	}
}

func mustHost(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("bad url: %v", err)
	}
	return u.Hostname()
}

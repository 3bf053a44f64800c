package indexer

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aeolus-crawl/crawlsearch/internal/events"
	"github.com/aeolus-crawl/crawlsearch/internal/search"
)

func TestServiceIndexAndSearchRoundTrip(t *testing.T) {
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

	engine, err := search.New()
	if err != nil {
		t.Fatalf("search.New failed: %v", err)
	}
	defer engine.Close()

	bus := events.NewBus(16)
	svc := New(engine, nil, bus)
	defer svc.Close()

	if err := svc.Index(context.Background(), server.URL+"/", 2); err != nil {
		t.Fatalf("Index failed: %v", err)
	}

	hits, err := svc.Search("hello")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(hits) == 0 {
		t.Fatalf("expected at least one hit, got none")
	}
	for _, h := range hits {
		if h.OriginURL != server.URL+"/" {
			t.Errorf("unexpected origin_url: %s", h.OriginURL)
		}
	}
}

func TestServiceIndexInvalidOriginFails(t *testing.T) {
	engine, err := search.New()
	if err != nil {
		t.Fatalf("search.New failed: %v", err)
	}
	defer engine.Close()

	svc := New(engine, nil, nil)
	defer svc.Close()

	if err := svc.Index(context.Background(), "://not-a-url", 1); err == nil {
		t.Errorf("expected an error for an invalid origin")
	}
}

func TestServiceSearchUnparseableQueryFails(t *testing.T) {
	engine, err := search.New()
	if err != nil {
		t.Fatalf("search.New failed: %v", err)
	}
	defer engine.Close()

	svc := New(engine, nil, nil)
	defer svc.Close()

	if _, err := svc.Search("::::"); err == nil {
		t.Errorf("expected an error for an unparseable query")
	}
}

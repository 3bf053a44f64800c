// Package search implements the indexing/search engine façade: a
// write-and-commit path and a ranked query path over a fixed schema of
// {url, origin_url, depth, body}, backed by bleve's scorch index.
package search

import (
	"fmt"
	"os"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sirupsen/logrus"
)

const bodyAnalyzerName = "crawlsearch_body"

const resultLimit = 10

// Hit is a single ranked search result; score is used only for ordering by
// the underlying library and is never exposed.
type Hit struct {
	RelevantURL string
	OriginURL   string
	Depth       uint32
}

// Engine is the indexing/search façade shared by every crawl and by the RPC
// Search path. Its schema is fixed at construction and never altered.
type Engine struct {
	indexDir string
	index    bleve.Index

	// writeMu serialises Write calls the way a single exclusive writer
	// lock would in the source system; bleve's own index is already safe
	// for concurrent use, but the explicit lock keeps the one-commit-per-
	// write discipline visible and easy to reason about.
	writeMu sync.Mutex
}

// New creates an Engine backed by a fresh temporary directory. The
// directory is removed when Close is called.
func New() (*Engine, error) {
	dir, err := os.MkdirTemp("", "crawlsearch-index-*")
	if err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	index, err := bleve.New(dir, buildMapping())
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("creating index: %w", err)
	}

	return &Engine{indexDir: dir, index: index}, nil
}

// Close releases the underlying index and removes its backing directory.
func (e *Engine) Close() error {
	if err := e.index.Close(); err != nil {
		return err
	}
	return os.RemoveAll(e.indexDir)
}

func buildMapping() *mapping.IndexMappingImpl {
	keyword := bleve.NewTextFieldMapping()
	keyword.Analyzer = "keyword"
	keyword.Store = true
	keyword.IncludeInAll = false

	depth := bleve.NewNumericFieldMapping()
	depth.Store = true
	depth.Index = false
	depth.IncludeInAll = false

	body := bleve.NewTextFieldMapping()
	body.Analyzer = bodyAnalyzerName
	body.Store = false
	body.IncludeInAll = false

	doc := bleve.NewDocumentMapping()
	doc.AddFieldMappingsAt("url", keyword)
	doc.AddFieldMappingsAt("origin_url", keyword)
	doc.AddFieldMappingsAt("depth", depth)
	doc.AddFieldMappingsAt("body", body)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	// Unqualified query terms (every caller's normal case) resolve against
	// this field rather than bleve's "_all" composite, which stays empty
	// since none of the fields above opt into IncludeInAll.
	im.DefaultField = "body"
	if err := im.AddCustomAnalyzer(bodyAnalyzerName, map[string]interface{}{
		"type":          "custom",
		"tokenizer":     "unicode",
		"token_filters": []string{"to_lower", "stop_en", snowballFilterName},
	}); err != nil {
		// The analyzer config above is a fixed, hand-verified literal; a
		// failure here means the binary was built against an incompatible
		// bleve version, not a runtime condition callers can act on.
		logrus.WithError(err).Fatal("registering body analyzer")
	}
	return im
}

// document is the on-disk shape of a single indexed page, matching the
// {url, origin_url, depth, body} schema exactly.
type document struct {
	URL       string `json:"url"`
	OriginURL string `json:"origin_url"`
	Depth     uint64 `json:"depth"`
	Body      string `json:"body"`
}

// Write appends one document with the four fields populated and commits
// it. On failure the error is logged and swallowed: a single bad write must
// never abort the crawl that produced it.
func (e *Engine) Write(text, url, originURL string, depth uint32) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	doc := document{URL: url, OriginURL: originURL, Depth: uint64(depth), Body: text}
	if err := e.index.Index(url, doc); err != nil {
		logrus.WithError(err).WithField("url", url).Warn("failed to index document")
	}
}

// Read parses query against the body field using bleve's default
// tokenised boolean query-string syntax and returns the top-ranked hits.
func (e *Engine) Read(query string) ([]Hit, error) {
	q := bleve.NewQueryStringQuery(query)
	req := bleve.NewSearchRequestOptions(q, resultLimit, 0, false)
	req.Fields = []string{"url", "origin_url", "depth"}

	result, err := e.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search %q failed: %w", query, err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, docMatch := range result.Hits {
		hit, ok := toHit(docMatch.Fields)
		if !ok {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func toHit(fields map[string]interface{}) (Hit, bool) {
	url, ok := fields["url"].(string)
	if !ok {
		return Hit{}, false
	}
	originURL, _ := fields["origin_url"].(string)
	var depth uint32
	if d, ok := fields["depth"].(float64); ok {
		depth = uint32(d)
	}
	return Hit{RelevantURL: url, OriginURL: originURL, Depth: depth}, true
}

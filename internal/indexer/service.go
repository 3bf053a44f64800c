// Package indexer wires a Crawler to a search.Engine: one-shot glue that
// turns an (origin, k) request into a bounded crawl writing straight into
// the engine, and forwards ranked queries straight through.
package indexer

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/aeolus-crawl/crawlsearch/internal/crawler"
	"github.com/aeolus-crawl/crawlsearch/internal/events"
	"github.com/aeolus-crawl/crawlsearch/internal/search"
)

// fixed per-crawl limits: every Index call gets the same conservative
// bounds regardless of k, matching the source system's one-shot glue.
const (
	maxPages              = 3
	maxConcurrentRequests = 2
	robotsEnabled         = true
)

// Service glues a Crawler and a search.Engine together behind the two
// operations the RPC façade exposes, and owns the Crawl Event Bus consumer
// for as long as the service is alive.
type Service struct {
	engine *search.Engine
	logger *logrus.Entry
	bus    *events.Bus

	consumerDone chan struct{}
}

// New creates a Service backed by engine. bus may be nil, in which case no
// event consumer is started. logger may be nil, in which case a standalone
// entry is used.
func New(engine *search.Engine, logger *logrus.Entry, bus *events.Bus) *Service {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &Service{engine: engine, logger: logger, bus: bus}
	if bus != nil {
		s.consumerDone = make(chan struct{})
		go s.consumeEvents()
	}
	return s
}

// consumeEvents drains the event bus for as long as it is open, logging
// every terminal crawl outcome at Debug. It is purely observational: the
// crawl and index paths never block on it.
func (s *Service) consumeEvents() {
	defer close(s.consumerDone)
	out := make(chan []byte)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.bus.Consume(out)
	}()
	for {
		select {
		case payload := <-out:
			s.logger.WithField("event", string(payload)).Debug("crawl event")
		case <-done:
			return
		}
	}
}

// Close closes the event bus, if any, and waits for the consumer goroutine
// to drain it.
func (s *Service) Close() {
	if s.bus == nil {
		return
	}
	s.bus.Close()
	<-s.consumerDone
}

// Index runs a bounded crawl from origin to depth k, indexing every
// admitted page into the Service's search engine. It returns an error only
// when the seed URL itself is invalid; per-page failures never surface
// here.
func (s *Service) Index(ctx context.Context, origin string, k uint32) error {
	cfg := crawler.NewConfig(
		crawler.WithMaxDepth(int(k)),
		crawler.WithMaxPages(maxPages),
		crawler.WithMaxConcurrentRequests(maxConcurrentRequests),
		crawler.WithRobotsEnabled(robotsEnabled),
	)
	c := crawler.New(cfg, s.logger, s.bus)
	if err := c.Start(ctx, origin, s.engine); err != nil {
		return fmt.Errorf("indexing %q: %w", origin, err)
	}
	return nil
}

// Search forwards query straight to the search engine's ranked query path.
func (s *Service) Search(query string) ([]search.Hit, error) {
	return s.engine.Read(query)
}

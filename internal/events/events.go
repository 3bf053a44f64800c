// Package events adapts the crawler's original channel-backed message
// queue into a small internal bus the Crawler publishes lifecycle events
// onto. It is purely observational: nothing in the crawl or index path
// depends on an event being delivered or observed.
package events

import "encoding/json"

// Kind enumerates the terminal outcomes a single crawl visit can reach.
type Kind string

const (
	KindIndexed           Kind = "indexed"
	KindSkippedLimit      Kind = "skipped_limit"
	KindSkippedRobots     Kind = "skipped_robots"
	KindSkippedMime       Kind = "skipped_mime"
	KindSkippedDecode     Kind = "skipped_decode"
	KindSkippedCloudflare Kind = "skipped_cloudflare"
	KindFetchError        Kind = "fetch_error"
)

// CrawlEvent describes the terminal outcome of a single crawl visit.
type CrawlEvent struct {
	Kind      Kind   `json:"kind"`
	URL       string `json:"url"`
	OriginURL string `json:"origin_url"`
	Depth     int    `json:"depth"`
	Reason    string `json:"reason,omitempty"`
}

// Bus is a simple in-memory publish/consume pair backed by a channel,
// adapted from the original crawler's ChannelQueue.
type Bus struct {
	ch chan []byte
}

// NewBus creates a Bus with the given buffer size. A buffered bus lets the
// Crawler publish events without blocking on a slow or absent consumer.
func NewBus(buffer int) *Bus {
	return &Bus{ch: make(chan []byte, buffer)}
}

// Publish marshals ev and enqueues it, dropping the event on a full buffer
// rather than blocking the crawl.
func (b *Bus) Publish(ev CrawlEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return
	}
	select {
	case b.ch <- payload:
	default:
	}
}

// Consume forwards every payload until the bus is closed.
func (b *Bus) Consume(out chan<- []byte) error {
	for payload := range b.ch {
		out <- payload
	}
	return nil
}

// Close closes the underlying channel. Must only be called once, after no
// more events will be published.
func (b *Bus) Close() {
	close(b.ch)
}

package crawler

import "time"

// Config is the immutable configuration for a single crawl. It is built per
// Index request and discarded at crawl end.
type Config struct {
	// UserAgent identifies the crawler in the User-Agent header and against
	// robots.txt directives. Must be non-empty.
	UserAgent string
	// MaxDepth bounds the hop count from the seed URL; the seed itself is
	// depth 0.
	MaxDepth int
	// MaxPages soft-caps the number of admitted URLs; the in-flight set may
	// overshoot by at most MaxConcurrentRequests.
	MaxPages int
	// MaxConcurrentRequests bounds the number of fetches in flight at once.
	MaxConcurrentRequests int
	// RateLimitWaitSeconds is the default crawl delay applied when robots
	// is disabled or a domain has no crawl-delay directive.
	RateLimitWaitSeconds uint
	// RobotsEnabled toggles robots.txt fetching, caching and enforcement.
	RobotsEnabled bool
	// AllowedMimes restricts admitted pages to a set of sniffed MIME
	// types. An empty set accepts everything.
	AllowedMimes map[string]bool
	// FetchTimeout bounds a single HTTP GET.
	FetchTimeout time.Duration
}

// Option mutates a Config; used with NewConfig to build a Config from
// defaults.
type Option func(*Config)

const (
	defaultUserAgent             = "crawlsearch/1.0 (+https://github.com/aeolus-crawl/crawlsearch)"
	defaultMaxDepth              = 5
	defaultMaxPages              = 15
	defaultMaxConcurrentRequests = 4
	defaultRateLimitWaitSeconds  = 1
	defaultFetchTimeout          = 10 * time.Second
)

// NewConfig builds a Config from the package defaults, mixing in any
// Options.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		UserAgent:             defaultUserAgent,
		MaxDepth:              defaultMaxDepth,
		MaxPages:              defaultMaxPages,
		MaxConcurrentRequests: defaultMaxConcurrentRequests,
		RateLimitWaitSeconds:  defaultRateLimitWaitSeconds,
		RobotsEnabled:         true,
		AllowedMimes:          map[string]bool{},
		FetchTimeout:          defaultFetchTimeout,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithUserAgent overrides the default user agent.
func WithUserAgent(ua string) Option {
	return func(c *Config) { c.UserAgent = ua }
}

// WithMaxDepth overrides the default max depth.
func WithMaxDepth(depth int) Option {
	return func(c *Config) { c.MaxDepth = depth }
}

// WithMaxPages overrides the default max page count.
func WithMaxPages(pages int) Option {
	return func(c *Config) { c.MaxPages = pages }
}

// WithMaxConcurrentRequests overrides the default concurrency limit.
func WithMaxConcurrentRequests(n int) Option {
	return func(c *Config) { c.MaxConcurrentRequests = n }
}

// WithRateLimitWaitSeconds overrides the default politeness delay.
func WithRateLimitWaitSeconds(seconds uint) Option {
	return func(c *Config) { c.RateLimitWaitSeconds = seconds }
}

// WithRobotsEnabled toggles robots.txt handling.
func WithRobotsEnabled(enabled bool) Option {
	return func(c *Config) { c.RobotsEnabled = enabled }
}

// WithAllowedMimes restricts admitted pages to the given sniffed MIME
// types.
func WithAllowedMimes(mimes ...string) Option {
	return func(c *Config) {
		set := make(map[string]bool, len(mimes))
		for _, m := range mimes {
			set[m] = true
		}
		c.AllowedMimes = set
	}
}

// WithFetchTimeout overrides the default per-request timeout.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Config) { c.FetchTimeout = d }
}

// Package fetch provides the HTTP client capability used by the crawler: a
// timed, retrying GET that returns the raw response for the caller to
// inspect (headers, status, body) without imposing any parsing policy.
package fetch

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/PuerkitoBio/rehttp"
)

// Result is the outcome of a single GET call.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Client performs GET requests with a configured User-Agent, applying
// exponential-backoff retries on temporary errors, mirroring the teacher
// fetcher's rehttp-wrapped transport.
type Client struct {
	userAgent string
	http      *http.Client
}

// New creates a Client with the given User-Agent and per-request timeout.
func New(userAgent string, timeout time.Duration) *Client {
	transport := rehttp.NewTransport(
		&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		},
		rehttp.RetryAll(rehttp.RetryMaxRetries(3), rehttp.RetryTemporaryErr()),
		rehttp.ExpJitterDelay(1, 10*time.Second),
	)
	return &Client{
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout, Transport: transport},
	}
}

// Do satisfies robots.Fetcher, delegating straight to the underlying
// *http.Client so the robots cache can reuse this client's transport and
// retry policy.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	req.Header.Set("User-Agent", c.userAgent)
	return c.http.Do(req)
}

// Get issues a GET request against targetURL and reads the full body into
// memory. It returns an error for a malformed URL, a network failure, a
// status of 400 or above, or a failed body read.
func (c *Client) Get(ctx context.Context, targetURL string) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("fetching %s failed: %w", targetURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	res, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		return Result{Elapsed: elapsed}, fmt.Errorf("fetching %s failed: %w", targetURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		return Result{StatusCode: res.StatusCode, Elapsed: elapsed},
			fmt.Errorf("fetching %s failed: %s", targetURL, res.Status)
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return Result{StatusCode: res.StatusCode, Elapsed: elapsed},
			fmt.Errorf("fetching %s failed: reading body: %w", targetURL, err)
	}

	return Result{
		StatusCode: res.StatusCode,
		Header:     res.Header,
		Body:       body,
		Elapsed:    elapsed,
	}, nil
}

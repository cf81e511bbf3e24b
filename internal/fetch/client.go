package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
)

const errorBodyLimit = 4 * 1024

// Request is one URL to fetch, tagged with a caller-chosen identifier.
type Request struct {
	ID  string
	URL string
}

// Result is the outcome of one request. Body is set on success, Err on
// failure; results arrive in completion order, not submission order.
type Result struct {
	ID   string
	Body []byte
	Err  error
}

// Error describes a failed fetch. StatusCode and Body are populated when
// the server responded with a non-2xx status; Err carries transport-level
// causes where no response was received.
type Error struct {
	URL        string
	StatusCode int
	Body       string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Client issues many GET requests concurrently under a concurrency ceiling.
type Client interface {
	FetchMany(ctx context.Context, reqs []Request, concurrency int) <-chan Result
}

// HTTPClient is the net/http-backed Client. One attempt per request; no
// retries and no streaming.
type HTTPClient struct {
	client *http.Client
}

// NewHTTPClient wraps client, falling back to http.DefaultClient when nil.
func NewHTTPClient(client *http.Client) *HTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPClient{client: client}
}

// FetchMany fans the requests out to at most concurrency workers and
// streams each result as it completes. The channel is closed after the
// last request finishes.
func (c *HTTPClient) FetchMany(ctx context.Context, reqs []Request, concurrency int) <-chan Result {
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make(chan Result, len(reqs))
	limiter := make(chan struct{}, concurrency)

	var wg sync.WaitGroup
	for _, req := range reqs {
		wg.Add(1)
		go func(req Request) {
			defer wg.Done()
			limiter <- struct{}{}
			defer func() { <-limiter }()

			body, err := c.fetchOne(ctx, req.URL)
			results <- Result{ID: req.ID, Body: body, Err: err}
		}(req)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

func (c *HTTPClient) fetchOne(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		return nil, &Error{URL: url, StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: url, Err: err}
	}
	return body, nil
}

package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const maxBodyBytes = 8 << 20

// Response is the raw result of one fetch attempt.
type Response struct {
	URL    string
	Status int
	Header http.Header
	Body   []byte
}

// Fetcher performs a single GET. Transport failures are returned as errors;
// HTTP statuses are returned in the Response for the controller to judge.
type Fetcher interface {
	Name() string
	Get(ctx context.Context, url string) (*Response, error)
}

type Headers struct {
	UserAgent string
	Referer   string
}

// extra is the header set both strategies send besides User-Agent.
func (h Headers) extra() map[string]string {
	m := map[string]string{
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	}
	if h.Referer != "" {
		m["Referer"] = h.Referer
	}
	return m
}

// HTTPFetcher is the plain net/http strategy.
type HTTPFetcher struct {
	hc      *http.Client
	headers Headers
}

func NewHTTPFetcher(timeout time.Duration, h Headers) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &HTTPFetcher{
		hc:      &http.Client{Timeout: timeout},
		headers: h,
	}
}

func (f *HTTPFetcher) Name() string { return "http" }

func (f *HTTPFetcher) Get(ctx context.Context, url string) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.headers.UserAgent)
	for k, v := range f.headers.extra() {
		req.Header.Set(k, v)
	}

	res, err := f.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http get: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return &Response{
		URL:    res.Request.URL.String(),
		Status: res.StatusCode,
		Header: res.Header,
		Body:   body,
	}, nil
}

package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/playwright-community/playwright-go"
)

// RenderFetcher loads pages in headless Chromium so script-built listings
// are present in the returned markup. The browser starts on first use.
type RenderFetcher struct {
	timeout time.Duration
	headers Headers

	mu      sync.Mutex
	pw      *playwright.Playwright
	browser playwright.Browser
}

func NewRenderFetcher(timeout time.Duration, h Headers) *RenderFetcher {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &RenderFetcher{timeout: timeout, headers: h}
}

func (f *RenderFetcher) Name() string { return "playwright" }

func (f *RenderFetcher) start() (playwright.Browser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.browser != nil {
		return f.browser, nil
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	f.pw = pw
	f.browser = browser
	return browser, nil
}

func (f *RenderFetcher) Get(ctx context.Context, url string) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	browser, err := f.start()
	if err != nil {
		return nil, err
	}

	opts := playwright.BrowserNewPageOptions{}
	if f.headers.UserAgent != "" {
		opts.UserAgent = playwright.String(f.headers.UserAgent)
	}
	page, err := browser.NewPage(opts)
	if err != nil {
		return nil, fmt.Errorf("new page: %w", err)
	}
	defer page.Close()

	if err := page.SetExtraHTTPHeaders(f.headers.extra()); err != nil {
		return nil, fmt.Errorf("set headers: %w", err)
	}

	timeout := f.timeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}

	resp, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
		Timeout:   playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil {
		return nil, fmt.Errorf("goto: %w", err)
	}
	if resp == nil {
		return nil, errors.New("goto: no response")
	}

	html, err := page.Content()
	if err != nil {
		return nil, fmt.Errorf("page content: %w", err)
	}

	hdr := http.Header{}
	for k, v := range resp.Headers() {
		hdr.Set(k, v)
	}
	return &Response{
		URL:    page.URL(),
		Status: resp.Status(),
		Header: hdr,
		Body:   []byte(html),
	}, nil
}

func (f *RenderFetcher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var errs []error
	if f.browser != nil {
		errs = append(errs, f.browser.Close())
		f.browser = nil
	}
	if f.pw != nil {
		errs = append(errs, f.pw.Stop())
		f.pw = nil
	}
	return errors.Join(errs...)
}

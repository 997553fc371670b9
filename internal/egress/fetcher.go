package egress

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrUpstreamStatus is returned when the fetched URL answers with a 4xx or 5xx status.
var ErrUpstreamStatus = errors.New("upstream returned error status")

const maxRedirects = 5

// Result is a fetched response, body capped at the configured size.
type Result struct {
	URL        string
	StatusCode int
	Body       []byte
	Truncated  bool
}

// FetcherConfig configures a Fetcher.
type FetcherConfig struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	// Validator re-checks every redirect target. Nil follows redirects unchecked.
	Validator *Validator
	// Transport is the base round tripper; nil uses http.DefaultTransport.
	Transport http.RoundTripper
}

// Fetcher performs outbound GETs.
type Fetcher struct {
	client  *http.Client
	maxBody int64
}

// NewFetcher returns a Fetcher. Requests are traced with otelhttp.
func NewFetcher(cfg FetcherConfig) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 * 1024
	}
	base := cfg.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	v := cfg.Validator
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(base),
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			if v == nil {
				return nil
			}
			_, err := v.Validate(req.URL.String())
			return err
		},
	}
	return &Fetcher{client: client, maxBody: cfg.MaxBodyBytes}
}

// Fetch GETs rawURL. Callers validate first; Fetch only enforces policy on redirects.
// A redirect denial is returned as the *decision.Denial (wrapped in *url.Error).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody+1))
	if err != nil {
		return nil, err
	}
	res := &Result{URL: resp.Request.URL.String(), StatusCode: resp.StatusCode}
	if int64(len(body)) > f.maxBody {
		body, res.Truncated = body[:f.maxBody], true
	}
	res.Body = body
	if resp.StatusCode >= 400 {
		return res, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}
	return res, nil
}

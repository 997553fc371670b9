package egress

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"owasp-controls-demo/backend/internal/decision"
)

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", r.Method)
		}
		_, _ = w.Write([]byte("hello"))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Timeout: time.Second})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if res.StatusCode != http.StatusOK || string(res.Body) != "hello" || res.Truncated {
		t.Errorf("result = %+v", res)
	}
}

func TestFetch_TruncatesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 100)))
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Timeout: time.Second, MaxBodyBytes: 10})
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(res.Body) != 10 || !res.Truncated {
		t.Errorf("body len = %d, truncated = %v; want 10, true", len(res.Body), res.Truncated)
	}
}

func TestFetch_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Timeout: time.Second})
	res, err := f.Fetch(context.Background(), srv.URL)
	if !errors.Is(err, ErrUpstreamStatus) {
		t.Fatalf("Fetch = %v, want ErrUpstreamStatus", err)
	}
	if res == nil || res.StatusCode != http.StatusNotFound {
		t.Errorf("result = %+v, want status 404", res)
	}
}

func TestFetch_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewFetcher(FetcherConfig{Timeout: 50 * time.Millisecond})
	start := time.Now()
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("Fetch should time out")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Fetch took %v, timeout not enforced", elapsed)
	}
}

func TestFetch_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	f := NewFetcher(FetcherConfig{Timeout: time.Second})
	if _, err := f.Fetch(ctx, srv.URL); !errors.Is(err, context.Canceled) {
		t.Fatalf("Fetch = %v, want context.Canceled", err)
	}
}

func TestFetch_RedirectRevalidated(t *testing.T) {
	target := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("internal secret"))
	}))
	defer target.Close()
	redirector := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirector.Close()

	secure := NewFetcher(FetcherConfig{Timeout: time.Second, Validator: NewValidator(allowList)})
	_, err := secure.Fetch(context.Background(), redirector.URL)
	den, ok := decision.AsDenial(err)
	if !ok || den.Reason != decision.ReasonInternalAddress {
		t.Fatalf("Fetch = %v, want internal address denial on redirect", err)
	}

	open := NewFetcher(FetcherConfig{Timeout: time.Second})
	res, err := open.Fetch(context.Background(), redirector.URL)
	if err != nil {
		t.Fatalf("unrestricted Fetch: %v", err)
	}
	if string(res.Body) != "internal secret" {
		t.Errorf("body = %q", res.Body)
	}
}

func TestFetch_RedirectLimit(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, srv.URL+"/again", http.StatusFound)
	}))
	defer srv.Close()

	f := NewFetcher(FetcherConfig{Timeout: time.Second})
	if _, err := f.Fetch(context.Background(), srv.URL); err == nil {
		t.Fatal("Fetch should stop after too many redirects")
	}
}

func TestFetch_BadURL(t *testing.T) {
	f := NewFetcher(FetcherConfig{})
	if _, err := f.Fetch(context.Background(), "http://[::1"); err == nil {
		t.Fatal("Fetch should reject an unparsable URL")
	}
}

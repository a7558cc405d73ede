package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"carwatch-engine/internal/proxy"
)

func TestFetchDirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ua := r.Header.Get("User-Agent"); !strings.Contains(ua, "Mozilla") {
			t.Errorf("User-Agent = %q, want a browser identity", ua)
		}
		fmt.Fprint(w, "hello")
	}))
	defer srv.Close()

	c := NewClient(nil, Config{}, nil)
	body, status, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if status != 200 {
		t.Fatalf("status = %d, want 200", status)
	}
	if string(body) != "hello" {
		t.Fatalf("body = %q, want hello", body)
	}
}

func TestFetchNon2xxIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewClient(nil, Config{}, nil)
	_, status, err := c.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("Fetch on 403 = nil error, want error")
	}
	if status != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", status)
	}
}

func TestFetchProxyExhausted(t *testing.T) {
	pool := proxy.NewPool(3, 10)
	c := NewClient(pool, Config{Rotate: true, DirectFallback: false}, nil)

	_, _, err := c.Fetch(context.Background(), "http://example.test/")
	if !errors.Is(err, ErrProxyExhausted) {
		t.Fatalf("err = %v, want ErrProxyExhausted", err)
	}
}

func TestFetchDirectFallbackOnEmptyPool(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "direct")
	}))
	defer srv.Close()

	pool := proxy.NewPool(3, 10)
	c := NewClient(pool, Config{Rotate: true, DirectFallback: true}, nil)

	body, _, err := c.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if string(body) != "direct" {
		t.Fatalf("body = %q, want direct", body)
	}
}

func TestFetchReportsProxyHealth(t *testing.T) {
	// Stub proxy answers absolute-URI requests itself.
	stub := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "via proxy")
	}))
	defer stub.Close()

	u, _ := url.Parse(stub.URL)
	ep, err := proxy.ParseEndpoint(u.Host, proxy.OriginManual)
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}

	pool := proxy.NewPool(3, 10)
	pool.Add(ep)

	c := NewClient(pool, Config{Rotate: true}, nil)
	if _, _, err := c.Fetch(context.Background(), "http://example.test/"); err != nil {
		t.Fatalf("Fetch via stub proxy: %v", err)
	}

	got := pool.Snapshot()[0]
	if got.Status != proxy.StatusHealthy {
		t.Fatalf("Status = %q after success, want %q", got.Status, proxy.StatusHealthy)
	}
	if got.LastSuccess.IsZero() {
		t.Fatal("LastSuccess not recorded")
	}
}

func TestFetchReportsProxyFailure(t *testing.T) {
	// Nothing listens here; the dial must fail and count against the proxy.
	ep, err := proxy.ParseEndpoint("127.0.0.1:1", proxy.OriginManual)
	if err != nil {
		t.Fatalf("parse endpoint: %v", err)
	}
	pool := proxy.NewPool(3, 10)
	pool.Add(ep)

	c := NewClient(pool, Config{Rotate: true}, nil)
	if _, _, err := c.Fetch(context.Background(), "http://example.test/"); err == nil {
		t.Fatal("Fetch through dead proxy = nil error, want error")
	}

	if got := pool.Snapshot()[0].Failures; got != 1 {
		t.Fatalf("Failures = %d after dead proxy fetch, want 1", got)
	}
}

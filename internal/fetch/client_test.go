package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestFetchManySuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "body of %s", r.URL.Path)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client())
	reqs := []Request{
		{ID: "a", URL: srv.URL + "/a"},
		{ID: "b", URL: srv.URL + "/b"},
	}

	got := map[string]string{}
	for res := range client.FetchMany(context.Background(), reqs, 2) {
		if res.Err != nil {
			t.Fatalf("unexpected error for %s: %v", res.ID, res.Err)
		}
		got[res.ID] = string(res.Body)
	}

	if len(got) != 2 {
		t.Fatalf("expected 2 results, got %d", len(got))
	}
	if got["a"] != "body of /a" || got["b"] != "body of /b" {
		t.Fatalf("unexpected bodies: %v", got)
	}
}

func TestFetchManyHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client())
	results := client.FetchMany(context.Background(), []Request{{ID: "a", URL: srv.URL}}, 1)

	res := <-results
	if res.Err == nil {
		t.Fatal("expected error for 404 response")
	}

	var fetchErr *Error
	if !errors.As(res.Err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %T", res.Err)
	}
	if fetchErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", fetchErr.StatusCode)
	}
	if fetchErr.Body == "" {
		t.Fatal("expected response body on error")
	}
}

func TestFetchManyTransportError(t *testing.T) {
	client := NewHTTPClient(nil)
	results := client.FetchMany(context.Background(), []Request{{ID: "a", URL: "http://127.0.0.1:1/nope"}}, 1)

	res := <-results
	if res.Err == nil {
		t.Fatal("expected transport error")
	}

	var fetchErr *Error
	if !errors.As(res.Err, &fetchErr) {
		t.Fatalf("expected *fetch.Error, got %T", res.Err)
	}
	if fetchErr.StatusCode != 0 {
		t.Fatalf("expected no status code, got %d", fetchErr.StatusCode)
	}
}

func TestFetchManyIsolatesFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client())
	reqs := []Request{
		{ID: "bad", URL: srv.URL + "/bad"},
		{ID: "good", URL: srv.URL + "/good"},
	}

	var failed, succeeded int
	for res := range client.FetchMany(context.Background(), reqs, 2) {
		if res.Err != nil {
			failed++
		} else {
			succeeded++
		}
	}
	if failed != 1 || succeeded != 1 {
		t.Fatalf("expected 1 failure and 1 success, got %d/%d", failed, succeeded)
	}
}

func TestFetchManyConcurrencyCeiling(t *testing.T) {
	const limit = 2

	var (
		mu      sync.Mutex
		current int32
		peak    int32
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		in := atomic.AddInt32(&current, 1)
		mu.Lock()
		if in > peak {
			peak = in
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&current, -1)
		fmt.Fprint(w, "ok")
	}))
	defer srv.Close()

	client := NewHTTPClient(srv.Client())
	var reqs []Request
	for i := 0; i < 8; i++ {
		reqs = append(reqs, Request{ID: fmt.Sprintf("r%d", i), URL: srv.URL})
	}

	for res := range client.FetchMany(context.Background(), reqs, limit) {
		if res.Err != nil {
			t.Fatalf("unexpected error: %v", res.Err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if peak > limit {
		t.Fatalf("expected at most %d concurrent requests, observed %d", limit, peak)
	}
}

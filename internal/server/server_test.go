package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"extasset/internal/blobstore"
)

func testServer(t *testing.T) (*Server, *blobstore.LocalDir) {
	t.Helper()
	blobs, err := blobstore.NewLocalDir(t.TempDir(), "/assets")
	if err != nil {
		t.Fatalf("new blob store: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New("127.0.0.1:0", blobs, "/assets", logger), blobs
}

func TestServeStoredBlob(t *testing.T) {
	srv, blobs := testServer(t)
	if err := blobs.Put(context.Background(), "abc123.app.js", []byte("console.log(1)")); err != nil {
		t.Fatalf("put: %v", err)
	}

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/assets/abc123.app.js")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "console.log(1)" {
		t.Fatalf("unexpected body %q", string(body))
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "javascript") {
		t.Fatalf("unexpected content type %q", ct)
	}
	if cc := resp.Header.Get("Cache-Control"); !strings.Contains(cc, "immutable") {
		t.Fatalf("expected immutable cache header, got %q", cc)
	}
}

func TestServeMissingBlob(t *testing.T) {
	srv, _ := testServer(t)

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/assets/nope.js")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestServeRejectsTraversal(t *testing.T) {
	srv, _ := testServer(t)

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/assets/..%2Fsecret", nil)
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for traversal, got %d", resp.StatusCode)
	}
}

func TestServeMethodNotAllowed(t *testing.T) {
	srv, _ := testServer(t)

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/assets/abc.js", "text/plain", strings.NewReader("x"))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)

	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestListenAddr(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		allow   string
		want    string
		wantErr bool
	}{
		{name: "host port", raw: "127.0.0.1:7433", want: "127.0.0.1:7433"},
		{name: "localhost", raw: "localhost:7433", want: "localhost:7433"},
		{name: "url", raw: "http://127.0.0.1:7433", want: "127.0.0.1:7433"},
		{name: "remote refused", raw: "0.0.0.0:7433", wantErr: true},
		{name: "remote allowed", raw: "0.0.0.0:7433", allow: "true", want: "0.0.0.0:7433"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.allow != "" {
				t.Setenv(allowRemoteEnvKey, tc.allow)
			}
			got, err := ListenAddr(tc.raw)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %q", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

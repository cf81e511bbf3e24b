// Package server serves the mirror directory over HTTP for deployments
// where no CDN or webserver fronts the blob store.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"strconv"
	"strings"
	"time"
)

const (
	allowRemoteEnvKey = "EXTASSET_ALLOW_REMOTE"
	readHeaderTimeout = 5 * time.Second
	readTimeout       = 30 * time.Second
	writeTimeout      = 60 * time.Second
	idleTimeout       = 60 * time.Second

	// Mirrored keys are content-addressed, so their content never changes.
	cacheControl = "public, max-age=31536000, immutable"
)

// BlobSource is the read side of the blob store the server needs.
type BlobSource interface {
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// Server serves mirrored asset blobs.
type Server struct {
	addr     string
	basePath string
	blobs    BlobSource
	logger   *slog.Logger
}

// New creates a new server instance. basePath is the URL path prefix assets
// are served under (the path component of base_url).
func New(addr string, blobs BlobSource, basePath string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	basePath = "/" + strings.Trim(basePath, "/")
	if basePath == "/" {
		basePath = "/assets"
	}
	return &Server{addr: addr, basePath: basePath, blobs: blobs, logger: logger}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.logger.Info("starting mirror server", "addr", s.addr, "base_path", s.basePath)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}
	return server.ListenAndServe()
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc(s.basePath+"/", s.handleAsset)
	return s.withRequestLogging(mux)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintln(w, `{"status":"ok"}`)
}

func (s *Server) handleAsset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	key := strings.TrimPrefix(r.URL.Path, s.basePath+"/")
	if key == "" || strings.Contains(key, "..") {
		http.NotFound(w, r)
		return
	}

	rc, err := s.blobs.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			http.NotFound(w, r)
			return
		}
		s.logger.Error("open blob failed", "key", key, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	if ctype := mime.TypeByExtension(path.Ext(key)); ctype != "" {
		w.Header().Set("Content-Type", ctype)
	} else {
		w.Header().Set("Content-Type", "application/octet-stream")
	}
	w.Header().Set("Cache-Control", cacheControl)

	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.Error("write blob failed", "key", key, "error", err)
	}
}

// ListenAddr converts a configured listen address or URL into a listen
// address, refusing non-local hosts unless explicitly allowed.
func ListenAddr(raw string) (string, error) {
	if raw == "" {
		return "", fmt.Errorf("listen address is required")
	}
	if u, err := url.Parse(raw); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(raw)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}
	return raw, nil
}

func isAllowedListenHost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	if raw := strings.TrimSpace(os.Getenv(allowRemoteEnvKey)); raw != "" {
		allowed, err := strconv.ParseBool(raw)
		return err == nil && allowed
	}
	return false
}

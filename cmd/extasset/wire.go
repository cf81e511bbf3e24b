package main

import (
	"fmt"
	"log/slog"
	"net/url"

	"extasset/internal/blobstore"
	"extasset/internal/config"
	"extasset/internal/fetch"
	"extasset/internal/mirror"
	"extasset/internal/store"
)

// withMirror opens the stores, builds the engine, runs fn, and closes
// everything down again.
func withMirror(cfg *config.Config, fn func(m *mirror.Mirror, st *store.Store) error) error {
	if cfg == nil {
		return fmt.Errorf("config not initialized")
	}
	if cfg.DBPath == "" {
		return fmt.Errorf("db path is required")
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	blobs, err := blobstore.NewLocalDir(cfg.MirrorDir, cfg.BaseURL)
	if err != nil {
		return err
	}

	m := mirror.New(cfg.AssetList(), st, blobs, fetch.NewHTTPClient(nil), slog.Default())
	m.SetConcurrency(cfg.Concurrency)

	return fn(m, st)
}

// baseURLPath extracts the URL path prefix assets are served under. An
// absolute base_url contributes only its path component.
func baseURLPath(baseURL string) string {
	if u, err := url.Parse(baseURL); err == nil && u.Path != "" {
		return u.Path
	}
	return config.DefaultBaseURL
}

package mirror

import (
	"context"
	"errors"
	"fmt"

	"extasset/internal/assets"
)

// ErrUnknownAsset is returned when a name is not present in configuration.
var ErrUnknownAsset = errors.New("unknown asset")

// Exists reports whether name is configured, whether or not it has ever
// been synchronized.
func (m *Mirror) Exists(name string) bool {
	_, ok := m.byName[name]
	return ok
}

// ResolveURL returns the currently servable URL for name. An asset that
// was never synchronized resolves to its original source URL, so callers
// are never handed a broken reference.
func (m *Mirror) ResolveURL(ctx context.Context, name string) (string, error) {
	a, ok := m.byName[name]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAsset, name)
	}

	record, err := m.records.Get(ctx, name)
	if err != nil {
		return "", err
	}
	if record == nil {
		return a.URL, nil
	}
	return m.blobs.URLFor(assets.BlobKey(name, record.ContentHash)), nil
}

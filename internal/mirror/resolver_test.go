package mirror

import (
	"context"
	"errors"
	"testing"

	"extasset/internal/assets"
)

func TestResolveUnknownAsset(t *testing.T) {
	origin := newUpstream(t, map[string]string{})
	f := newFixture(t, origin, []assets.Asset{{Name: "app.js", URL: origin.url("/app.js")}})

	url, err := f.mirror.ResolveURL(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown asset")
	}
	if !errors.Is(err, ErrUnknownAsset) {
		t.Fatalf("expected ErrUnknownAsset, got %v", err)
	}
	if url != "" {
		t.Fatalf("expected empty url, got %q", url)
	}
}

func TestResolveNeverSyncedFallsBackToSource(t *testing.T) {
	origin := newUpstream(t, map[string]string{})
	f := newFixture(t, origin, []assets.Asset{
		{Name: "new-asset", URL: "https://x/y.js"},
	})

	url := f.mustResolve(t, "new-asset")
	if url != "https://x/y.js" {
		t.Fatalf("expected source url verbatim, got %q", url)
	}
}

func TestResolveAfterSyncUsesBlobURL(t *testing.T) {
	origin := newUpstream(t, map[string]string{"/app.js": "content"})
	f := newFixture(t, origin, []assets.Asset{{Name: "app.js", URL: origin.url("/app.js")}})

	f.mustSync(t, false)

	key := assets.BlobKey("app.js", assets.ContentHash([]byte("content")))
	if url := f.mustResolve(t, "app.js"); url != testBaseURL+"/"+key {
		t.Fatalf("unexpected url %q", url)
	}
}

func TestExists(t *testing.T) {
	origin := newUpstream(t, map[string]string{})
	f := newFixture(t, origin, []assets.Asset{{Name: "app.js", URL: origin.url("/app.js")}})

	if !f.mirror.Exists("app.js") {
		t.Fatal("expected configured asset to exist")
	}
	if f.mirror.Exists("missing") {
		t.Fatal("expected unconfigured asset to not exist")
	}
}

// Package mirror synchronizes externally-hosted assets into local storage
// and resolves asset names to content-addressed servable URLs.
package mirror

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"extasset/internal/assets"
	"extasset/internal/blobstore"
	"extasset/internal/fetch"
)

// DefaultConcurrency bounds the fetch fan-out when none is configured.
const DefaultConcurrency = 5

// RecordStore is the metadata contract the engine needs: permanent
// per-asset records, read and overwritten by name.
type RecordStore interface {
	Get(ctx context.Context, name string) (*assets.Record, error)
	Put(ctx context.Context, name string, record assets.Record) error
}

// Mirror is the synchronization engine over one configured asset list.
type Mirror struct {
	assetList   []assets.Asset
	byName      map[string]assets.Asset
	records     RecordStore
	blobs       blobstore.Store
	fetcher     fetch.Client
	logger      *slog.Logger
	clock       clockwork.Clock
	concurrency int
}

// New creates a mirror over the configured assets and injected stores.
func New(assetList []assets.Asset, records RecordStore, blobs blobstore.Store, fetcher fetch.Client, logger *slog.Logger) *Mirror {
	if logger == nil {
		logger = slog.Default()
	}

	byName := make(map[string]assets.Asset, len(assetList))
	for _, a := range assetList {
		byName[a.Name] = a
	}

	return &Mirror{
		assetList:   assetList,
		byName:      byName,
		records:     records,
		blobs:       blobs,
		fetcher:     fetcher,
		logger:      logger,
		clock:       clockwork.NewRealClock(),
		concurrency: DefaultConcurrency,
	}
}

// SetConcurrency overrides the fetch concurrency ceiling.
func (m *Mirror) SetConcurrency(n int) {
	if n > 0 {
		m.concurrency = n
	}
}

// SetClock overrides the engine clock.
func (m *Mirror) SetClock(clock clockwork.Clock) {
	if clock != nil {
		m.clock = clock
	}
}

// Synchronize runs one synchronization pass: it fetches every eligible
// asset concurrently and reconciles each completion against the stores.
// The call returns after every submitted fetch has been reconciled.
//
// Fetch failures are logged and never abort the pass. Store failures do
// abort it, since the blob/record consistency ordering cannot be
// guaranteed past a failing backend; in-flight fetches are still drained
// before the error is returned.
func (m *Mirror) Synchronize(ctx context.Context, force bool) error {
	now := m.clock.Now().UTC()

	var reqs []fetch.Request
	for _, a := range m.assetList {
		due, err := m.eligible(ctx, a, now, force)
		if err != nil {
			return err
		}
		if !due {
			continue
		}
		reqs = append(reqs, fetch.Request{ID: a.Name, URL: a.URL})
	}
	if len(reqs) == 0 {
		return nil
	}

	m.logger.Debug("synchronizing assets", "eligible", len(reqs), "force", force)

	var storeErr error
	for res := range m.fetcher.FetchMany(ctx, reqs, m.concurrency) {
		if storeErr != nil {
			continue
		}
		if err := m.reconcile(ctx, res, force); err != nil {
			storeErr = err
		}
	}
	return storeErr
}

// eligible applies the interval skip rule. The comparison is strict: an
// asset checked exactly one interval ago is due again.
func (m *Mirror) eligible(ctx context.Context, a assets.Asset, now time.Time, force bool) (bool, error) {
	if force || a.CheckInterval == 0 {
		return true, nil
	}
	record, err := m.records.Get(ctx, a.Name)
	if err != nil {
		return false, err
	}
	if record == nil {
		return true, nil
	}
	return !record.LastCheckedAt.Add(a.CheckInterval).After(now), nil
}

// reconcile applies one fetch outcome to the stores. The write ordering is
// load-bearing: the new blob lands before the record moves to its hash,
// and the stale blob is removed only after the record moves, so a reader
// always finds a blob for whichever hash the record currently names.
func (m *Mirror) reconcile(ctx context.Context, res fetch.Result, force bool) error {
	if res.Err != nil {
		var fetchErr *fetch.Error
		if errors.As(res.Err, &fetchErr) && fetchErr.StatusCode != 0 {
			m.logger.Error("asset fetch failed",
				"asset", res.ID, "status", fetchErr.StatusCode, "body", fetchErr.Body)
		} else {
			m.logger.Error("asset fetch failed", "asset", res.ID, "error", res.Err)
		}
		return nil
	}

	hash := assets.ContentHash(res.Body)
	record, err := m.records.Get(ctx, res.ID)
	if err != nil {
		return err
	}

	now := m.clock.Now().UTC()

	// Unchanged content only advances the check timestamp. No blob write.
	if record != nil && record.ContentHash == hash && !force {
		return m.records.Put(ctx, res.ID, assets.Record{ContentHash: hash, LastCheckedAt: now})
	}

	if err := m.blobs.Put(ctx, assets.BlobKey(res.ID, hash), res.Body); err != nil {
		return err
	}
	if err := m.records.Put(ctx, res.ID, assets.Record{ContentHash: hash, LastCheckedAt: now}); err != nil {
		return err
	}
	if record != nil && record.ContentHash != hash {
		if err := m.blobs.Delete(ctx, assets.BlobKey(res.ID, record.ContentHash)); err != nil {
			return err
		}
	}
	return nil
}

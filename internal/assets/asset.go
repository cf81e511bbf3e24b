package assets

import (
	"encoding/hex"
	"fmt"
	"time"

	"golang.org/x/crypto/blake2b"
)

// Asset is one configured external asset. The list is loaded once per run
// and never mutated by the engine.
type Asset struct {
	Name          string
	URL           string
	CheckInterval time.Duration // zero means check on every run
}

// Record is the persisted sync state for one asset name. It is created on
// the first successful fetch and overwritten on every reconciled fetch;
// LastCheckedAt always advances even when the content did not change.
type Record struct {
	ContentHash   string
	LastCheckedAt time.Time
}

// BlobKey composes the storage key for one content version of an asset.
// Two content versions of the same asset never share a key, so a stale
// version stays addressable for deletion after the current pointer moves.
func BlobKey(name, hash string) string {
	return fmt.Sprintf("%s.%s", hash, name)
}

// ContentHash returns the hex-encoded BLAKE2b-256 digest of body. The hash
// is used for change detection only, not integrity protection.
func ContentHash(body []byte) string {
	sum := blake2b.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// Package freshness supplies statement nonces derived from the latest chain
// checkpoint (block hash) so a verifier can bound how old a statement is.
//
// The latest checkpoint is shared by every authorization in the process.
// Cache only ever advances, so concurrent readers never observe an older
// checkpoint after a newer one.
package freshness

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/allisson/sessionsig/internal/errors"
)

// ErrNoCheckpoint indicates no checkpoint has been observed and the upstream is unreachable.
var ErrNoCheckpoint = errors.Wrap(errors.ErrUnavailable, "no freshness checkpoint available")

// Checkpoint is an observed chain position.
type Checkpoint struct {
	Height     uint64    `json:"height"`
	Hash       string    `json:"hash"`
	ObservedAt time.Time `json:"observed_at"`
}

// Source reports the latest checkpoint of the chain or network.
type Source interface {
	LatestCheckpoint(ctx context.Context) (Checkpoint, error)
}

// NonceSource returns the nonce to embed in a new statement.
type NonceSource interface {
	Nonce(ctx context.Context) (string, error)
}

// Cache holds the latest checkpoint. The zero value is ready to use.
type Cache struct {
	latest atomic.Pointer[Checkpoint]
}

// Observe records checkpoint if it is newer than the cached one and reports
// whether the cache advanced.
func (c *Cache) Observe(checkpoint Checkpoint) bool {
	next := checkpoint
	for {
		current := c.latest.Load()
		if current != nil && current.Height >= next.Height {
			return false
		}
		if c.latest.CompareAndSwap(current, &next) {
			return true
		}
	}
}

// Latest returns the cached checkpoint, if any.
func (c *Cache) Latest() (Checkpoint, bool) {
	current := c.latest.Load()
	if current == nil {
		return Checkpoint{}, false
	}
	return *current, true
}

// CachedSource refreshes the cache from an upstream Source on every call and
// falls back to the last cached checkpoint when the upstream fails.
type CachedSource struct {
	source Source
	cache  *Cache
	logger *slog.Logger
}

// NewCachedSource creates a NonceSource backed by source.
func NewCachedSource(source Source, logger *slog.Logger) *CachedSource {
	return &CachedSource{source: source, cache: &Cache{}, logger: logger}
}

// Cache returns the underlying cache.
func (s *CachedSource) Cache() *Cache {
	return s.cache
}

// Nonce returns the hash of the latest checkpoint.
func (s *CachedSource) Nonce(ctx context.Context) (string, error) {
	checkpoint, err := s.source.LatestCheckpoint(ctx)
	if err == nil {
		s.cache.Observe(checkpoint)
	} else {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		s.logger.Warn("freshness source failed, using cached checkpoint", slog.Any("error", err))
	}

	latest, ok := s.cache.Latest()
	if !ok {
		return "", errors.Wrap(ErrNoCheckpoint, fmt.Sprintf("upstream: %v", err))
	}
	return latest.Hash, nil
}

// LocalSource mints checkpoints in process: each call advances the height by
// one and produces a random 32-byte hash. It stands in for a block source in
// tests, the CLI and the local reference network.
type LocalSource struct {
	mu     sync.Mutex
	height uint64
	now    func() time.Time
}

// NewLocalSource creates a LocalSource.
func NewLocalSource() *LocalSource {
	return &LocalSource{now: time.Now}
}

// LatestCheckpoint returns a new checkpoint.
func (s *LocalSource) LatestCheckpoint(ctx context.Context) (Checkpoint, error) {
	if err := ctx.Err(); err != nil {
		return Checkpoint{}, err
	}

	hash := make([]byte, 32)
	if _, err := rand.Read(hash); err != nil {
		return Checkpoint{}, fmt.Errorf("failed to generate checkpoint hash: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.height++

	return Checkpoint{
		Height:     s.height,
		Hash:       "0x" + hex.EncodeToString(hash),
		ObservedAt: s.now().UTC(),
	}, nil
}

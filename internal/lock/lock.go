// Package lock guards against two invocations racing on the same document.
// The pipeline does not do its own cross-invocation scheduling (the external
// scheduler guarantees at most one active invocation per document id), but
// it must still refuse to start against a document that is already
// InWorkman unless the recovery window has elapsed. This package provides a
// best-effort Redis-backed fast path for that check and falls back to the
// metadata store's own timestamp when Redis is unreachable.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parchment-labs/docworker/internal/models"
	"github.com/parchment-labs/docworker/pkg/logger"
)

// Guard decides whether an invocation may take over a document.
type Guard struct {
	redis          *redis.Client
	recoveryWindow time.Duration
}

// New builds a Guard. client may be nil, in which case every check falls
// back to the metadata store timestamp.
func New(client *redis.Client, recoveryWindow time.Duration) *Guard {
	return &Guard{redis: client, recoveryWindow: recoveryWindow}
}

func key(documentID int64) string {
	return fmt.Sprintf("lock:doc:%d", documentID)
}

// Acquire reports whether the invocation may proceed against doc, and if so,
// marks the document locked for the duration of one invocation deadline.
// lockTTL should be set to the invocation's wall-clock deadline so a crashed
// worker's lock expires on its own.
func (g *Guard) Acquire(ctx context.Context, doc models.Document, lockTTL time.Duration) (bool, error) {
	if doc.Status == models.StatusInWorkman {
		if !g.recoveryWindowElapsed(doc.DateUpdated) {
			return false, nil
		}
		logger.Warnf("lock: recovery window elapsed for document %d, last updated %s ago", doc.ID, time.Since(doc.DateUpdated))
	}

	if g.redis == nil {
		return true, nil
	}

	ok, err := g.redis.SetNX(ctx, key(doc.ID), time.Now().Format(time.RFC3339), lockTTL).Result()
	if err != nil {
		// Redis unreachable: fall back to the metadata store's own
		// InWorkman/timestamp check above, already satisfied at this point.
		logger.Warnf("lock: redis unavailable, falling back to metadata timestamp for document %d: %v", doc.ID, err)
		return true, nil
	}
	return ok, nil
}

// Release clears the Redis lock key, if a client is configured. Safe to call
// even if Acquire fell back to the metadata-only path.
func (g *Guard) Release(ctx context.Context, documentID int64) {
	if g.redis == nil {
		return
	}
	if err := g.redis.Del(ctx, key(documentID)).Err(); err != nil {
		logger.Warnf("lock: release failed for document %d: %v", documentID, err)
	}
}

func (g *Guard) recoveryWindowElapsed(lastUpdated time.Time) bool {
	if g.recoveryWindow <= 0 {
		return false // default: none — fail fast
	}
	return time.Since(lastUpdated) > g.recoveryWindow
}

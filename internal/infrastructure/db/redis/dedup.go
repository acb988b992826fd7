package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupTTL = time.Hour

// SubmissionGuard detects forms submitted twice, e.g. a double click on a
// create button. Every rendered form carries a one-time nonce.
// Key format: dedup:<session_id>:<nonce>
type SubmissionGuard struct {
	client *redis.Client
}

// NewSubmissionGuard creates a SubmissionGuard wrapping the given Redis client.
func NewSubmissionGuard(client *redis.Client) *SubmissionGuard {
	return &SubmissionGuard{client: client}
}

// First records the nonce and reports whether this is its first use
// (the record expires after dedupTTL).
func (g *SubmissionGuard) First(ctx context.Context, sessionID, nonce string) (bool, error) {
	ok, err := g.client.SetNX(ctx, g.key(sessionID, nonce), "1", dedupTTL).Result()
	if err != nil {
		return false, fmt.Errorf("dedup check: %w", err)
	}
	return ok, nil
}

func (g *SubmissionGuard) key(sessionID, nonce string) string {
	return fmt.Sprintf("dedup:%s:%s", sessionID, nonce)
}

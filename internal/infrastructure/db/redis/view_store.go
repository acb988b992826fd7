package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/electrix/tracker/internal/core/domain"
)

// maxUpdateAttempts bounds the optimistic retries of one Update.
const maxUpdateAttempts = 8

// ViewStore keeps the screen states of a browser session in one hash, one
// field per screen.
// Key format: view:<session_id>
type ViewStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewViewStore(client *redis.Client, ttl time.Duration) *ViewStore {
	return &ViewStore{client: client, ttl: ttl}
}

func (s *ViewStore) Get(ctx context.Context, sessionID, screen string) ([]byte, error) {
	data, err := s.client.HGet(ctx, viewKey(sessionID), screen).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, domain.ErrViewNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load view: %w", err)
	}
	return data, nil
}

func (s *ViewStore) Set(ctx context.Context, sessionID, screen string, data []byte) error {
	key := viewKey(sessionID)
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, screen, data)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save view: %w", err)
	}
	return nil
}

// Update runs fn inside WATCH/MULTI and retries when another request of the
// same session wrote the hash in between.
func (s *ViewStore) Update(ctx context.Context, sessionID, screen string, fn func(current []byte) ([]byte, error)) error {
	key := viewKey(sessionID)
	txf := func(tx *redis.Tx) error {
		cur, err := tx.HGet(ctx, key, screen).Bytes()
		if errors.Is(err, redis.Nil) {
			cur = nil
		} else if err != nil {
			return err
		}

		next, err := fn(cur)
		if err != nil || next == nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, screen, next)
			pipe.Expire(ctx, key, s.ttl)
			return nil
		})
		return err
	}

	for i := 0; i < maxUpdateAttempts; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return fmt.Errorf("update view: %w", err)
		}
		return nil
	}
	return fmt.Errorf("update view: %w", domain.ErrStaleView)
}

func (s *ViewStore) Clear(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, viewKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("clear view: %w", err)
	}
	return nil
}

func viewKey(sessionID string) string {
	return "view:" + sessionID
}

package redisinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/univio-api/internal/domain"
)

const maxTxRetries = 10

// ChallengeStore keeps challenge state as JSON values. Each Mutate is an
// optimistic WATCH/MULTI transaction on its key, retried on conflict.
type ChallengeStore struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewChallengeStore creates the store. Scan only visits keys under prefix;
// retention is how long issuance history must outlive its newest entry.
func NewChallengeStore(client *redis.Client, prefix string, retention time.Duration) *ChallengeStore {
	return &ChallengeStore{client: client, prefix: prefix, retention: retention, now: time.Now}
}

func (s *ChallengeStore) Get(ctx context.Context, key string) (*domain.ChallengeState, error) {
	raw, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}
	var st domain.ChallengeState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, fmt.Errorf("decode challenge state: %w", err)
	}
	return &st, nil
}

func (s *ChallengeStore) Mutate(ctx context.Context, key string, fn func(*domain.ChallengeState) error) error {
	txf := func(tx *redis.Tx) error {
		var st domain.ChallengeState
		raw, err := tx.Get(ctx, key).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("redis get: %w", err)
		default:
			if err := json.Unmarshal(raw, &st); err != nil {
				return fmt.Errorf("decode challenge state: %w", err)
			}
		}

		if err := fn(&st); err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if st.Empty() {
				pipe.Del(ctx, key)
				return nil
			}
			data, err := json.Marshal(&st)
			if err != nil {
				return fmt.Errorf("encode challenge state: %w", err)
			}
			pipe.Set(ctx, key, data, s.ttl(&st))
			return nil
		})
		return err
	}

	for i := 0; i < maxTxRetries; i++ {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}
	return fmt.Errorf("challenge %s: write contention: %w", key, domain.ErrUnavailable)
}

func (s *ChallengeStore) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *ChallengeStore) Scan(ctx context.Context, fn func(key string) error) error {
	iter := s.client.Scan(ctx, 0, s.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := fn(iter.Val()); err != nil {
			return err
		}
	}
	return iter.Err()
}

// ttl keeps the key until the last part of the state stops mattering.
func (s *ChallengeStore) ttl(st *domain.ChallengeState) time.Duration {
	d := st.Horizon(s.retention).Sub(s.now())
	if d < time.Second {
		return time.Second
	}
	return d
}

package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/healthhub/healthhub-service/internal/domain"
)

// redisTokenLedger keeps one JSON document per token value, expiring with the
// record itself, so expired rows never need sweeping.
type redisTokenLedger struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedisTokenLedger constructs a Redis-backed ledger.
func NewRedisTokenLedger(client redis.UniversalClient, prefix string) TokenLedger {
	if prefix == "" {
		prefix = "hh"
	}
	return &redisTokenLedger{client: client, prefix: prefix, now: time.Now}
}

func (r *redisTokenLedger) key(value string) string {
	return r.prefix + ":token:" + value
}

func (r *redisTokenLedger) Create(ctx context.Context, rec *domain.TokenRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	ttl := rec.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("token record already expired")
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(rec.Value), data, ttl).Result()
	if err != nil {
		return fmt.Errorf("redis ledger create: %w", err)
	}
	if !ok {
		return ErrDuplicate
	}
	return nil
}

func (r *redisTokenLedger) FindOne(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error) {
	if filter.Value == "" {
		return nil, ErrNotFound
	}
	rec, err := r.load(ctx, r.client, filter.Value)
	if err != nil {
		return nil, err
	}
	if !filter.Matches(rec) {
		return nil, ErrNotFound
	}
	return rec, nil
}

func (r *redisTokenLedger) Consume(ctx context.Context, filter TokenFilter) (*domain.TokenRecord, error) {
	if filter.Value == "" {
		return nil, ErrNotFound
	}
	key := r.key(filter.Value)

	var consumed *domain.TokenRecord
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := r.load(ctx, tx, filter.Value)
		if err != nil {
			return err
		}
		if !filter.Matches(rec) {
			return ErrNotFound
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			return nil
		})
		if err != nil {
			return err
		}
		consumed = rec
		return nil
	}, key)
	if errors.Is(err, redis.TxFailedErr) {
		// another request touched the key between GET and DEL
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return consumed, nil
}

func (r *redisTokenLedger) Delete(ctx context.Context, rec *domain.TokenRecord) error {
	n, err := r.client.Del(ctx, r.key(rec.Value)).Result()
	if err != nil {
		return fmt.Errorf("redis ledger delete: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *redisTokenLedger) Invalidate(ctx context.Context, value string) error {
	if value == "" {
		return ErrNotFound
	}
	key := r.key(value)
	return r.client.Watch(ctx, func(tx *redis.Tx) error {
		rec, err := r.load(ctx, tx, value)
		if err != nil {
			return err
		}
		rec.Valid = false
		ttl := rec.ExpiresAt.Sub(r.now())
		data, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if ttl <= 0 {
				pipe.Del(ctx, key)
				return nil
			}
			pipe.Set(ctx, key, data, ttl)
			return nil
		})
		return err
	}, key)
}

// DeleteExpired is a no-op: keys carry their own TTL.
func (r *redisTokenLedger) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}

type stringGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func (r *redisTokenLedger) load(ctx context.Context, c stringGetter, value string) (*domain.TokenRecord, error) {
	data, err := c.Get(ctx, r.key(value)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis ledger get: %w", err)
	}
	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("redis ledger decode: %w", err)
	}
	return &rec, nil
}

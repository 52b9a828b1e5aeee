package session

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

const sessionKeyPrefix = "storefront:session:"

// KV is the subset of the Redis client used for sessions
type KV interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	SetBytes(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Update(ctx context.Context, key string, ttl time.Duration, fn func(current []byte, found bool) ([]byte, error)) error
	Del(ctx context.Context, keys ...string) error
}

// RedisStore keeps sessions as JSON documents with a sliding TTL
type RedisStore struct {
	kv  KV
	ttl time.Duration
}

// NewRedisStore creates a RedisStore
func NewRedisStore(kv KV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

func (s *RedisStore) Get(ctx context.Context, id string) (*Data, error) {
	raw, found, err := s.kv.GetBytes(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	data := &Data{}
	if !found {
		return data, nil
	}
	if err := json.Unmarshal(raw, data); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return data, nil
}

func (s *RedisStore) Save(ctx context.Context, id string, data *Data) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := s.kv.SetBytes(ctx, sessionKeyPrefix+id, raw, s.ttl); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Update runs fn inside an optimistic Redis transaction on the session key
func (s *RedisStore) Update(ctx context.Context, id string, fn func(*Data)) error {
	err := s.kv.Update(ctx, sessionKeyPrefix+id, s.ttl, func(current []byte, found bool) ([]byte, error) {
		data := &Data{}
		if found {
			if err := json.Unmarshal(current, data); err != nil {
				return nil, fmt.Errorf("decode session: %w", err)
			}
		}
		fn(data)
		return json.Marshal(data)
	})
	if err != nil {
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.kv.Del(ctx, sessionKeyPrefix+id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

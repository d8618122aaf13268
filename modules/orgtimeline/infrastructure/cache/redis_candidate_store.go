package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/jacksonlee411/orgtimeline/modules/orgtimeline/services"
)

const defaultPrefix = "orgtimeline:parent_candidates:v1"

// RedisCandidateStore shares parent candidate entries between processes.
// Redis expires keys with the entry TTL.
type RedisCandidateStore struct {
	redis  *redis.Client
	prefix string
	clock  clockwork.Clock
}

var _ services.CandidateStore = (*RedisCandidateStore)(nil)

func NewRedisCandidateStore(client *redis.Client, prefix string, clock clockwork.Clock) *RedisCandidateStore {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &RedisCandidateStore{redis: client, prefix: prefix, clock: clock}
}

// Open parses a redis:// URL and returns a store backed by a new client.
func Open(redisURL string, clock clockwork.Clock) (*RedisCandidateStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return NewRedisCandidateStore(redis.NewClient(opts), "", clock), nil
}

func (s *RedisCandidateStore) key(k string) string {
	return s.prefix + ":" + k
}

func (s *RedisCandidateStore) Get(ctx context.Context, key string) (services.CandidateEntry, bool, error) {
	raw, err := s.redis.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return services.CandidateEntry{}, false, nil
		}
		return services.CandidateEntry{}, false, err
	}
	return s.decode(raw)
}

// decode treats an entry past its ExpiresAt as a miss even if redis still
// holds the key.
func (s *RedisCandidateStore) decode(raw []byte) (services.CandidateEntry, bool, error) {
	var entry services.CandidateEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return services.CandidateEntry{}, false, err
	}
	if !s.clock.Now().Before(entry.ExpiresAt) {
		return services.CandidateEntry{}, false, nil
	}
	return entry, true, nil
}

func (s *RedisCandidateStore) Set(ctx context.Context, key string, entry services.CandidateEntry, ttl time.Duration) error {
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, s.key(key), payload, ttl).Err()
}

func (s *RedisCandidateStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *RedisCandidateStore) Close() error {
	return s.redis.Close()
}

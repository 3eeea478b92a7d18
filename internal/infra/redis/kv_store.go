package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces collection keys.
const DefaultKeyPrefix = "quizloop:"

// KVStore keeps each collection snapshot as a plain Redis string:
//
//	SET {prefix}{collectionKey} {json}
type KVStore struct {
	client *redis.Client
	prefix string
}

func NewKVStore(client *redis.Client, prefix string) *KVStore {
	return &KVStore{client: client, prefix: prefix}
}

func (s *KVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *KVStore) Set(ctx context.Context, key string, value []byte) error {
	return s.client.Set(ctx, s.prefix+key, value, 0).Err()
}

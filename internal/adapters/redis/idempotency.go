package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// StoredReply is the replay envelope for a completed mutating request: the
// HTTP status and the exact body that was written for it.
type StoredReply struct {
	Status int    `json:"status"`
	Body   []byte `json:"body"`
}

// ReplayStore keeps one reply per Idempotency-Key so a retried purchase
// returns the original outcome instead of running the transaction again.
// Entries lapse after the configured TTL.
type ReplayStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewReplayStore(client *redis.Client, ttl time.Duration) *ReplayStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ReplayStore{client: client, ttl: ttl}
}

// Get returns the stored reply for key, or nil when none exists. An empty
// key never matches anything.
func (s *ReplayStore) Get(ctx context.Context, key string) (*StoredReply, error) {
	if key == "" {
		return nil, nil
	}
	data, err := s.client.Get(ctx, "replay:"+key).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var reply StoredReply
	if err := json.Unmarshal(data, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// Set records the reply for key. A no-op on an empty key.
func (s *ReplayStore) Set(ctx context.Context, key string, reply StoredReply) error {
	if key == "" {
		return nil
	}
	data, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, "replay:"+key, data, s.ttl).Err()
}

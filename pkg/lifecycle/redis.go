package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLedger is a Redis-backed single-use ledger, safe across processes.
type RedisLedger struct {
	client *redis.Client
	prefix string
}

// NewRedisLedger creates a ledger namespaced under the given prefix
// ("tenantguard:grant" if empty).
func NewRedisLedger(client *redis.Client, prefix string) *RedisLedger {
	if prefix == "" {
		prefix = "tenantguard:grant"
	}
	return &RedisLedger{client: client, prefix: prefix}
}

func (l *RedisLedger) MarkUsed(ctx context.Context, jti string, ttl time.Duration) (bool, error) {
	if jti == "" {
		return false, errors.New("empty jti")
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	first, err := l.client.SetNX(ctx, l.prefix+":"+jti, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("mark grant used: %w", err)
	}
	return first, nil
}

// RedisSessionRevoker drops every session key held under a tenant's
// namespace. It assumes sessions are stored as "<prefix>:<tenantID>:<sid>".
type RedisSessionRevoker struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionRevoker creates a revoker over the session keyspace
// ("session" if prefix is empty).
func NewRedisSessionRevoker(client *redis.Client, prefix string) *RedisSessionRevoker {
	if prefix == "" {
		prefix = "session"
	}
	return &RedisSessionRevoker{client: client, prefix: prefix}
}

func (r *RedisSessionRevoker) RevokeAll(ctx context.Context, tenantID int64) error {
	pattern := fmt.Sprintf("%s:%d:*", r.prefix, tenantID)
	iter := r.client.Scan(ctx, 0, pattern, 100).Iterator()

	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("revoke sessions: %w", err)
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("scan sessions: %w", err)
	}
	if len(keys) > 0 {
		if err := r.client.Del(ctx, keys...).Err(); err != nil {
			return fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return nil
}

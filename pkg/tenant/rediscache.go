package tenant

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisCache stores resolved tenants in Redis so that multiple application
// instances share one staleness window for lifecycle transitions.
type redisCache struct {
	client *redis.Client
	prefix string
}

// NewRedisCache creates a Redis-backed tenant cache. Keys are namespaced
// under the given prefix ("tenant" if empty).
func NewRedisCache(client *redis.Client, prefix string) Cache {
	if prefix == "" {
		prefix = "tenant"
	}
	return &redisCache{client: client, prefix: prefix}
}

func (c *redisCache) key(key string) string {
	return c.prefix + ":" + key
}

func (c *redisCache) Get(ctx context.Context, key string) (*Tenant, bool) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err != nil {
		// Cache miss and transport failure are equivalent here: fall through
		// to the directory lookup.
		return nil, false
	}

	var t redisTenant
	if err := json.Unmarshal(data, &t); err != nil {
		c.client.Del(ctx, c.key(key))
		return nil, false
	}
	return t.toTenant(), true
}

func (c *redisCache) Set(ctx context.Context, key string, t *Tenant, ttl time.Duration) {
	data, err := json.Marshal(fromTenant(t))
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(key), data, ttl)
}

func (c *redisCache) Delete(ctx context.Context, key string) {
	c.client.Del(ctx, c.key(key))
}

func (c *redisCache) Close() error {
	// The client is shared and owned by the caller.
	return nil
}

// redisTenant is the wire shape for cached tenants. The internal ID must
// round-trip, so it cannot reuse Tenant's public JSON encoding.
type redisTenant struct {
	ID          int64      `json:"id"`
	PublicID    string     `json:"public_id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Email       string     `json:"email,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	Status      Status     `json:"status"`
	TrialEndsAt *time.Time `json:"trial_ends_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func fromTenant(t *Tenant) redisTenant {
	return redisTenant{
		ID:          t.ID,
		PublicID:    t.PublicID.String(),
		Name:        t.Name,
		Slug:        t.Slug,
		Email:       t.Email,
		Phone:       t.Phone,
		Status:      t.Status,
		TrialEndsAt: t.TrialEndsAt,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (rt redisTenant) toTenant() *Tenant {
	t := &Tenant{
		ID:          rt.ID,
		Name:        rt.Name,
		Slug:        rt.Slug,
		Email:       rt.Email,
		Phone:       rt.Phone,
		Status:      rt.Status,
		TrialEndsAt: rt.TrialEndsAt,
		CreatedAt:   rt.CreatedAt,
		UpdatedAt:   rt.UpdatedAt,
	}
	if id, err := uuid.Parse(rt.PublicID); err == nil {
		t.PublicID = id
	}
	return t
}

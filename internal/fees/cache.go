package fees

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/tokenomics/pkg/db/models"
	"github.com/angelmondragon/tokenomics/pkg/enums"
	"github.com/angelmondragon/tokenomics/pkg/redis"
	"github.com/shopspring/decimal"
)

// SettingsCache holds recently read fee settings. A cached nil setting records
// that the kind has no row, so default-tier lookups skip storage too.
type SettingsCache interface {
	Get(ctx context.Context, kind enums.FeeKind) (setting *models.FeeSetting, hit bool, err error)
	Put(ctx context.Context, kind enums.FeeKind, setting *models.FeeSetting) error
	Invalidate(ctx context.Context, kind enums.FeeKind) error
}

type redisStore interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	CacheKey(parts ...string) string
}

type cachedSetting struct {
	Found  bool            `json:"found"`
	Rate   decimal.Decimal `json:"rate"`
	Active bool            `json:"active"`
}

// RedisCache stores settings as short-lived JSON values.
type RedisCache struct {
	store redisStore
	ttl   time.Duration
}

// NewRedisCache builds a settings cache backed by redis.
func NewRedisCache(store redisStore, ttl time.Duration) (*RedisCache, error) {
	if store == nil {
		return nil, fmt.Errorf("redis store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("cache ttl must be positive")
	}
	return &RedisCache{store: store, ttl: ttl}, nil
}

func (c *RedisCache) key(kind enums.FeeKind) string {
	return c.store.CacheKey("fee_settings", string(kind))
}

func (c *RedisCache) Get(ctx context.Context, kind enums.FeeKind) (*models.FeeSetting, bool, error) {
	raw, err := c.store.Get(ctx, c.key(kind))
	if errors.Is(err, redis.ErrNil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var entry cachedSetting
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return nil, false, fmt.Errorf("decode cached fee setting: %w", err)
	}
	if !entry.Found {
		return nil, true, nil
	}
	return &models.FeeSetting{Kind: kind, Rate: entry.Rate, Active: entry.Active}, true, nil
}

func (c *RedisCache) Put(ctx context.Context, kind enums.FeeKind, setting *models.FeeSetting) error {
	entry := cachedSetting{}
	if setting != nil {
		entry = cachedSetting{Found: true, Rate: setting.Rate, Active: setting.Active}
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return c.store.Set(ctx, c.key(kind), string(payload), c.ttl)
}

func (c *RedisCache) Invalidate(ctx context.Context, kind enums.FeeKind) error {
	return c.store.Del(ctx, c.key(kind))
}

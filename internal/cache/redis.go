package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecozelo/agenda/config"
	"github.com/ecozelo/agenda/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client      *redis.Client
	servicesTTL time.Duration
}

func NewRedisCache(cfg config.RedisConfig, servicesTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		servicesTTL: servicesTTL,
	}
}

func (c *RedisCache) GetServices(ctx context.Context) ([]domain.ServiceDefinition, error) {
	data, err := c.client.Get(ctx, servicesKey()).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var services []domain.ServiceDefinition
	if err := json.Unmarshal(data, &services); err != nil {
		return nil, err
	}
	return services, nil
}

func (c *RedisCache) SetServices(ctx context.Context, services []domain.ServiceDefinition) error {
	payload, err := json.Marshal(services)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, servicesKey(), payload, c.servicesTTL).Err()
}

func (c *RedisCache) InvalidateServices(ctx context.Context) error {
	return c.client.Del(ctx, servicesKey()).Err()
}

// AcquireSlotHold places a short-lived hold on a (date, start) slot while the
// booking transaction runs. The database remains the authority; the hold only
// narrows the race window between display and commit.
func (c *RedisCache) AcquireSlotHold(ctx context.Context, date time.Time, start domain.TimeOfDay, ttl time.Duration) (bool, error) {
	return c.client.SetNX(ctx, slotHoldKey(date, start), "held", ttl).Result()
}

func (c *RedisCache) ReleaseSlotHold(ctx context.Context, date time.Time, start domain.TimeOfDay) error {
	return c.client.Del(ctx, slotHoldKey(date, start)).Err()
}

func (c *RedisCache) SaveSession(ctx context.Context, tokenHash string, payload []byte, ttl time.Duration) error {
	return c.client.Set(ctx, sessionKey(tokenHash), payload, ttl).Err()
}

func (c *RedisCache) GetSession(ctx context.Context, tokenHash string) ([]byte, error) {
	data, err := c.client.Get(ctx, sessionKey(tokenHash)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisCache) DeleteSession(ctx context.Context, tokenHash string) error {
	return c.client.Del(ctx, sessionKey(tokenHash)).Err()
}

func servicesKey() string {
	return "cache:services"
}

func slotHoldKey(date time.Time, start domain.TimeOfDay) string {
	return fmt.Sprintf("hold:slot:%s:%s", domain.FormatDate(date), start)
}

func sessionKey(tokenHash string) string {
	return "session:admin:" + tokenHash
}

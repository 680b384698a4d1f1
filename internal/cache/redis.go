package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/redis/go-redis/v9"
)

type RedisCache struct {
	client     *redis.Client
	flightsTTL time.Duration
	now        func() time.Time
}

func NewRedisCache(cfg config.RedisConfig, flightsTTL time.Duration) *RedisCache {
	return &RedisCache{
		client:     redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		flightsTTL: flightsTTL,
		now:        time.Now,
	}
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

// GetFlights returns the cached result for a search key together with the
// generation it was looked up under. A nil slice with a nil error is a miss;
// the generation is still valid and must be handed back to SetFlights.
func (c *RedisCache) GetFlights(ctx context.Context, key string) ([]domain.Flight, int64, error) {
	gen, err := c.generation(ctx)
	if err != nil {
		return nil, 0, err
	}

	data, err := c.client.Get(ctx, flightsKey(gen, key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, gen, nil
		}
		return nil, gen, err
	}

	flights := make([]domain.Flight, 0)
	if err := json.Unmarshal(data, &flights); err != nil {
		return nil, gen, err
	}
	return flights, gen, nil
}

// SetFlights stores flights under the generation observed by the GetFlights
// miss. If an invalidation happened in between, the entry lands under a
// retired generation and is never read.
func (c *RedisCache) SetFlights(ctx context.Context, key string, gen int64, flights []domain.Flight) error {
	if flights == nil {
		flights = []domain.Flight{}
	}
	payload, err := json.Marshal(flights)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, flightsKey(gen, key), payload, c.flightsTTL).Err()
}

// InvalidateFlights drops every cached search at once by bumping the
// generation that prefixes the keys; old entries age out on their TTL.
func (c *RedisCache) InvalidateFlights(ctx context.Context) error {
	return c.client.Incr(ctx, generationKey()).Err()
}

func (c *RedisCache) generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return gen, err
}

func generationKey() string {
	return "cache:flights:gen"
}

func flightsKey(gen int64, key string) string {
	return fmt.Sprintf("cache:flights:%d:%s", gen, key)
}

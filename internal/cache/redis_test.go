package cache

import (
	"context"
	"testing"
	"time"

	"github.com/Domenick1991/flightbooking/config"
	"github.com/Domenick1991/flightbooking/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := NewRedisCache(config.RedisConfig{Addr: mr.Addr()}, ttl)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestNewRedisCache(t *testing.T) {
	c := NewRedisCache(config.RedisConfig{Addr: "localhost:6379"}, time.Minute)
	assert.NotNil(t, c)
	assert.Equal(t, time.Minute, c.flightsTTL)
	assert.NoError(t, c.Close())
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "cache:flights:gen", generationKey())
	assert.Equal(t, "cache:flights:3:o=BLR|d=DEL", flightsKey(3, "o=BLR|d=DEL"))
}

func TestRedisCache_FlightsMissThenHit(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	got, gen, err := c.GetFlights(ctx, "BLR|DEL")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(0), gen)

	flights := []domain.Flight{{ID: 1, FlightNumber: "AI101", AvailableSeats: 12}}
	require.NoError(t, c.SetFlights(ctx, "BLR|DEL", gen, flights))

	got, gen, err = c.GetFlights(ctx, "BLR|DEL")
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)
	require.Len(t, got, 1)
	assert.Equal(t, "AI101", got[0].FlightNumber)
	assert.Equal(t, 12, got[0].AvailableSeats)
}

func TestRedisCache_EmptyResultIsAHit(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetFlights(ctx, "XXX", 0, nil))

	got, _, err := c.GetFlights(ctx, "XXX")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRedisCache_InvalidateDropsEntries(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	require.NoError(t, c.SetFlights(ctx, "BLR|DEL", 0, []domain.Flight{{ID: 1}}))
	require.NoError(t, c.InvalidateFlights(ctx))

	got, gen, err := c.GetFlights(ctx, "BLR|DEL")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), gen)
}

func TestRedisCache_ResultLoadedBeforeInvalidationIsNotServed(t *testing.T) {
	c, _ := newTestCache(t, time.Minute)
	ctx := context.Background()

	// search misses and goes to the database
	_, gen, err := c.GetFlights(ctx, "BLR|DEL")
	require.NoError(t, err)

	// a booking commits meanwhile
	require.NoError(t, c.InvalidateFlights(ctx))

	// the search stores what it read before the booking
	require.NoError(t, c.SetFlights(ctx, "BLR|DEL", gen, []domain.Flight{{ID: 1, AvailableSeats: 1}}))

	got, _, err := c.GetFlights(ctx, "BLR|DEL")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_FlightsExpire(t *testing.T) {
	c, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	require.NoError(t, c.SetFlights(ctx, "BLR|DEL", 0, []domain.Flight{{ID: 1}}))
	mr.FastForward(31 * time.Second)

	got, _, err := c.GetFlights(ctx, "BLR|DEL")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParseDecision(t *testing.T) {
	d, err := parseDecision([]any{int64(1), int64(4), int64(0)})
	assert.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, int64(4), d.Remaining)
	assert.Zero(t, d.RetryAfter)

	d, err = parseDecision([]any{int64(0), int64(0), int64(750)})
	assert.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 750*time.Millisecond, d.RetryAfter)

	_, err = parseDecision("OK")
	assert.Error(t, err)
	_, err = parseDecision([]any{int64(1)})
	assert.Error(t, err)
}

func TestAsInt64(t *testing.T) {
	assert.Equal(t, int64(7), asInt64(int64(7)))
	assert.Equal(t, int64(7), asInt64(7))
	assert.Equal(t, int64(7), asInt64(7.9))
	assert.Equal(t, int64(12), asInt64("12"))
	assert.Equal(t, int64(0), asInt64("x"))
	assert.Equal(t, int64(0), asInt64(nil))
}

package data

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbyte/rotor/internal/market"
)

func sampleSeries() market.Series {
	return market.Series{
		{Time: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC), Open: 100, High: 101, Low: 99, Close: 100.5, Volume: 1_000_000},
		{Time: time.Date(2025, 1, 3, 0, 0, 0, 0, time.UTC), Open: 100.5, High: 102, Low: 100, Close: 101.5, Volume: 1_100_000},
	}
}

func TestRedisCache_SeriesRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute)
	series := sampleSeries()

	raw, err := json.Marshal(series)
	require.NoError(t, err)

	mock.ExpectSet("rotor:series:NVDA:30", raw, time.Minute).SetVal("OK")
	cache.SetSeries(context.Background(), "NVDA", 30, series)

	mock.ExpectGet("rotor:series:NVDA:30").SetVal(string(raw))
	got, ok := cache.GetSeries(context.Background(), "NVDA", 30)

	require.True(t, ok)
	assert.Equal(t, series, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_SeriesMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute)

	mock.ExpectGet("rotor:series:NVDA:30").RedisNil()

	_, ok := cache.GetSeries(context.Background(), "NVDA", 30)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_ErrorsDegradeToMisses(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute)

	mock.ExpectGet("rotor:price:NVDA").SetErr(errors.New("connection refused"))

	_, ok := cache.GetPrice(context.Background(), "NVDA")
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_PriceRoundTrip(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute)

	mock.ExpectSet("rotor:price:NVDA", 181.25, time.Minute).SetVal("OK")
	cache.SetPrice(context.Background(), "NVDA", 181.25)

	mock.ExpectGet("rotor:price:NVDA").SetVal("181.25")
	price, ok := cache.GetPrice(context.Background(), "NVDA")

	require.True(t, ok)
	assert.InDelta(t, 181.25, price, 1e-9)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSeriesProvider_CacheMissFallsThroughAndStores(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Minute)
	upstream := &fakeProvider{}
	provider := NewRedisSeriesProvider(cache, upstream)

	mock.ExpectGet("rotor:series:AAA:2").RedisNil()
	// The fake provider produces a deterministic series, so the write is
	// expectable byte for byte
	expected, err := upstream.Series(context.Background(), "AAA", 2)
	require.NoError(t, err)
	raw, err := json.Marshal(expected)
	require.NoError(t, err)
	mock.ExpectSet("rotor:series:AAA:2", raw, time.Minute).SetVal("OK")

	got, err := provider.Series(context.Background(), "AAA", 2)

	require.NoError(t, err)
	assert.Equal(t, expected, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

package market

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func day(n int) time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func sampleSeries() Series {
	return Series{
		{Time: day(0), Open: 10, High: 12, Low: 9, Close: 11, Volume: 100},
		{Time: day(1), Open: 11, High: 13, Low: 10, Close: 12, Volume: 200},
		{Time: day(2), Open: 12, High: 14, Low: 11, Close: 13, Volume: 300},
	}
}

func TestSeriesColumns(t *testing.T) {
	s := sampleSeries()

	assert.Equal(t, []float64{11, 12, 13}, s.Closes())
	assert.Equal(t, []float64{12, 13, 14}, s.Highs())
	assert.Equal(t, []float64{9, 10, 11}, s.Lows())
	assert.Equal(t, []float64{100, 200, 300}, s.Volumes())
}

func TestSeriesLast(t *testing.T) {
	s := sampleSeries()

	last, ok := s.Last()
	assert.True(t, ok)
	assert.Equal(t, 13.0, last.Close)
	assert.Equal(t, 13.0, s.LastClose())

	empty := Series{}
	_, ok = empty.Last()
	assert.False(t, ok)
	assert.Equal(t, 0.0, empty.LastClose())
}

func TestSeriesTail(t *testing.T) {
	s := sampleSeries()

	assert.Len(t, s.Tail(2), 2)
	assert.Equal(t, 12.0, s.Tail(2)[0].Close)
	assert.Len(t, s.Tail(10), 3)
	assert.Len(t, s.Tail(0), 0)
}

func TestSeriesUpTo(t *testing.T) {
	s := sampleSeries()

	assert.Len(t, s.UpTo(day(1)), 2)
	assert.Equal(t, 12.0, s.UpTo(day(1)).LastClose())

	// Inclusive of the boundary candle
	assert.Len(t, s.UpTo(day(2)), 3)
	assert.Len(t, s.UpTo(day(5)), 3)
	assert.Len(t, s.UpTo(day(-1)), 0)
}

package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbyte/rotor/internal/metrics"
	"github.com/quantbyte/rotor/internal/portfolio"
	"github.com/quantbyte/rotor/internal/scoring"
)

func testServer() (*Server, *State) {
	state := NewState()
	return NewServer("127.0.0.1:0", state, metrics.NewRegistry()), state
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _ := testServer()

	rec := get(t, s, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestScores_EmptyThenPublished(t *testing.T) {
	s, state := testServer()

	rec := get(t, s, "/v1/scores")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int             `json:"count"`
		Scores []scoring.Score `json:"scores"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Zero(t, body.Count)

	state.PublishScores([]scoring.Score{
		{Symbol: "NVDA", ExpectedReturn: 0.61},
		{Symbol: "AMD", ExpectedReturn: 0.43},
	}, time.Date(2025, 6, 2, 14, 30, 0, 0, time.UTC))

	rec = get(t, s, "/v1/scores")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "NVDA", body.Scores[0].Symbol)
}

func TestPortfolio_NotFoundUntilPublished(t *testing.T) {
	s, state := testServer()

	rec := get(t, s, "/v1/portfolio")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	p := portfolio.New(10_000)
	require.True(t, p.AddPosition("NVDA", 100, 50, 0.8))
	state.PublishPortfolio(p.State(), time.Now())

	rec = get(t, s, "/v1/portfolio")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Portfolio portfolio.State `json:"portfolio"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.InDelta(t, 5000, body.Portfolio.Cash, 1e-9)
	require.Len(t, body.Portfolio.Positions, 1)
	assert.Equal(t, "NVDA", body.Portfolio.Positions[0].Symbol)
}

func TestMetricsEndpoint(t *testing.T) {
	s, _ := testServer()
	s.metrics.ScansTotal.Inc()

	rec := get(t, s, "/metrics")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "rotor_scans_total 1")
}

func TestNotFound(t *testing.T) {
	s, _ := testServer()

	rec := get(t, s, "/nope")

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not found", body["error"])
}

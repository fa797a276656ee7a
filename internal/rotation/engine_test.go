package rotation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantbyte/rotor/internal/portfolio"
)

func testPortfolio(capital float64) *portfolio.Portfolio {
	p := portfolio.New(capital)
	base := time.Date(2025, 3, 3, 9, 30, 0, 0, time.UTC)
	p.SetClock(func() time.Time { return base })
	return p
}

func TestEvaluate_ScoreDifferentialPicksBestCandidate(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.5))

	e := NewEngine(nil)
	decisions := e.Evaluate(p, map[string]float64{
		"AAA": 0.50,
		"BBB": 0.60,
		"CCC": 0.75,
	})

	require.Len(t, decisions, 1)
	d := decisions[0]
	assert.True(t, d.ShouldRotate)
	assert.Equal(t, "AAA", d.From)
	assert.Equal(t, "CCC", d.To)
	assert.Equal(t, ReasonScoreDifferential, d.Reason)
	assert.InDelta(t, 0.25, d.ScoreDifference, 1e-9)
	assert.InDelta(t, 0.75, d.ToScore, 1e-9)
	assert.NotEmpty(t, d.ID)
}

func TestEvaluate_ExactThresholdDoesNotTrigger(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.5))

	// Threshold and scores are exact binary fractions so the comparison is
	// not at the mercy of float rounding
	e := NewEngine(&Config{
		StopLossPercent:       -15,
		CircuitBreakerPercent: -30,
		RotationThreshold:     0.25,
	})

	decisions := e.Evaluate(p, map[string]float64{"AAA": 0.5, "BBB": 0.75})
	assert.Empty(t, decisions, "a margin exactly at the threshold must not rotate")

	decisions = e.Evaluate(p, map[string]float64{"AAA": 0.5, "BBB": 0.8125})
	assert.Len(t, decisions, 1)
}

func TestEvaluate_HeldSymbolsAreNotCandidates(t *testing.T) {
	p := testPortfolio(20000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.3))
	require.True(t, p.AddPosition("BBB", 100, 50, 0.9))

	e := NewEngine(nil)
	// BBB has the highest score but is already held, so AAA has nowhere to go
	decisions := e.Evaluate(p, map[string]float64{"AAA": 0.3, "BBB": 0.9})

	assert.Empty(t, decisions)
}

func TestEvaluate_StopLossTakesPriorityOverRotation(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 100, 0.5))
	p.UpdatePrices(map[string]float64{"AAA": 84})

	e := NewEngine(nil)
	decisions := e.Evaluate(p, map[string]float64{"AAA": 0.5, "BBB": 0.95})

	require.Len(t, decisions, 1)
	assert.Equal(t, ReasonStopLoss, decisions[0].Reason)
	assert.Equal(t, "AAA", decisions[0].From)
	assert.Empty(t, decisions[0].To)
}

func TestEvaluate_CircuitBreakerIsAdditive(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.5))
	require.True(t, p.AddPosition("BBB", 100, 50, 0.5))
	// AAA collapses: its stop loss fires, and the portfolio drawdown of -35%
	// trips the breaker on top
	p.UpdatePrices(map[string]float64{"AAA": 30})

	e := NewEngine(nil)
	decisions := e.Evaluate(p, map[string]float64{"AAA": 0.1, "BBB": 0.5, "CCC": 0.9})

	require.Len(t, decisions, 4)
	assert.Equal(t, ReasonStopLoss, decisions[0].Reason)
	assert.Equal(t, "AAA", decisions[0].From)
	assert.Equal(t, ReasonScoreDifferential, decisions[1].Reason)
	assert.Equal(t, "BBB", decisions[1].From)
	assert.Equal(t, "CCC", decisions[1].To)
	assert.Equal(t, ReasonCircuitBreaker, decisions[2].Reason)
	assert.Equal(t, "AAA", decisions[2].From)
	assert.Equal(t, ReasonCircuitBreaker, decisions[3].Reason)
	assert.Equal(t, "BBB", decisions[3].From)
}

func TestExecute_RotationMovesCapital(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.5))

	e := NewEngine(nil)
	decisions := e.Evaluate(p, map[string]float64{"AAA": 0.5, "BBB": 0.8})
	require.Len(t, decisions, 1)

	result := e.Execute(p, decisions[0], map[string]float64{"AAA": 100, "BBB": 40})

	require.True(t, result.Executed, result.Error)
	assert.EqualValues(t, 125, result.NewShares)
	_, held := p.Position("AAA")
	assert.False(t, held)
	pos, held := p.Position("BBB")
	require.True(t, held)
	assert.EqualValues(t, 125, pos.Shares)
}

func TestExecute_MissingPriceFailsWithoutMutation(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.5))

	e := NewEngine(nil)
	d := Decision{ShouldRotate: true, From: "AAA", To: "BBB", Reason: ReasonScoreDifferential}

	result := e.Execute(p, d, map[string]float64{"AAA": 100})

	assert.False(t, result.Executed)
	assert.Contains(t, result.Error, "no price available for BBB")
	_, held := p.Position("AAA")
	assert.True(t, held)
}

func TestExecute_InsufficientValue(t *testing.T) {
	p := testPortfolio(100)
	require.True(t, p.AddPosition("AAA", 10, 5, 0.5))

	e := NewEngine(nil)
	d := Decision{ShouldRotate: true, From: "AAA", To: "BBB", Reason: ReasonScoreDifferential}

	result := e.Execute(p, d, map[string]float64{"AAA": 10, "BBB": 1000})

	assert.False(t, result.Executed)
	assert.Equal(t, "insufficient value", result.Error)
	_, held := p.Position("AAA")
	assert.True(t, held)
}

func TestExecute_StopLossLiquidates(t *testing.T) {
	p := testPortfolio(10000)
	require.True(t, p.AddPosition("AAA", 100, 100, 0.5))
	p.UpdatePrices(map[string]float64{"AAA": 84})

	e := NewEngine(nil)
	d := Decision{ShouldRotate: true, From: "AAA", Reason: ReasonStopLoss}

	result := e.Execute(p, d, map[string]float64{"AAA": 84})

	require.True(t, result.Executed)
	assert.Zero(t, p.NumPositions())
	assert.InDelta(t, 8400, p.Cash(), 1e-9)
}

func TestExecuteAll_ReturnsOnlyExecuted(t *testing.T) {
	p := testPortfolio(20000)
	require.True(t, p.AddPosition("AAA", 100, 50, 0.5))
	require.True(t, p.AddPosition("BBB", 100, 50, 0.5))

	e := NewEngine(nil)
	decisions := []Decision{
		{ShouldRotate: true, From: "AAA", To: "CCC", Reason: ReasonScoreDifferential},
		{ShouldRotate: true, From: "BBB", To: "MISSING", Reason: ReasonScoreDifferential},
	}

	results := e.ExecuteAll(p, decisions, map[string]float64{"AAA": 100, "BBB": 100, "CCC": 50})

	require.Len(t, results, 1)
	assert.Equal(t, "AAA", results[0].Decision.From)
	_, held := p.Position("BBB")
	assert.True(t, held, "a failed sibling decision must leave its position intact")
}

func TestReasonString(t *testing.T) {
	assert.Equal(t, "STOP_LOSS_HIT", ReasonStopLoss.String())
	assert.Equal(t, "SCORE_DIFFERENTIAL", ReasonScoreDifferential.String())
	assert.Equal(t, "CIRCUIT_BREAKER", ReasonCircuitBreaker.String())
	assert.Equal(t, "UNKNOWN", Reason(99).String())
}

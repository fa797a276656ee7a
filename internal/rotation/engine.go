package rotation

import (
	"fmt"
	"math"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/quantbyte/rotor/internal/portfolio"
)

// Reason explains why a rotation decision was emitted
type Reason int

const (
	ReasonStopLoss Reason = iota
	ReasonScoreDifferential
	ReasonCircuitBreaker
)

func (r Reason) String() string {
	switch r {
	case ReasonStopLoss:
		return "STOP_LOSS_HIT"
	case ReasonScoreDifferential:
		return "SCORE_DIFFERENTIAL"
	case ReasonCircuitBreaker:
		return "CIRCUIT_BREAKER"
	default:
		return "UNKNOWN"
	}
}

// Decision is an ephemeral rotation instruction, produced by Evaluate and
// consumed immediately by Execute
type Decision struct {
	ID              string  `json:"id"`
	ShouldRotate    bool    `json:"should_rotate"`
	From            string  `json:"from"`
	To              string  `json:"to,omitempty"` // empty for liquidations
	ToScore         float64 `json:"to_score,omitempty"`
	Reason          Reason  `json:"reason"`
	ScoreDifference float64 `json:"score_difference,omitempty"`
}

// ExecutionResult reports whether a decision actually executed and why not
// when it didn't
type ExecutionResult struct {
	Decision  Decision `json:"decision"`
	Executed  bool     `json:"executed"`
	NewShares int64    `json:"new_shares,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Config holds the rotation thresholds
type Config struct {
	StopLossPercent       float64 `yaml:"stop_loss_percent"`       // -15 default
	CircuitBreakerPercent float64 `yaml:"circuit_breaker_percent"` // -30 default
	RotationThreshold     float64 `yaml:"rotation_threshold"`      // 0.02 default
}

// DefaultConfig returns the standard rotation thresholds
func DefaultConfig() *Config {
	return &Config{
		StopLossPercent:       -15,
		CircuitBreakerPercent: -30,
		RotationThreshold:     0.02,
	}
}

// Engine evaluates and executes rotation decisions against one portfolio.
// Not reentrant-safe for concurrent callers mutating the same portfolio.
type Engine struct {
	cfg *Config
}

// NewEngine creates a rotation engine. A nil config uses defaults.
func NewEngine(cfg *Config) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Engine{cfg: cfg}
}

// Evaluate runs one decision pass over all held positions. Priority per
// position: stop loss first, then the best score-differential candidate.
// The portfolio-wide circuit breaker is evaluated last and is additive: when
// it trips, every held position receives a liquidation decision, including
// positions already decided above.
func (e *Engine) Evaluate(p *portfolio.Portfolio, scores map[string]float64) []Decision {
	var decisions []Decision

	for _, symbol := range p.Held() {
		pos, _ := p.Position(symbol)

		if pos.IsStopLossHit(e.cfg.StopLossPercent) {
			decisions = append(decisions, Decision{
				ID:           uuid.NewString(),
				ShouldRotate: true,
				From:         symbol,
				Reason:       ReasonStopLoss,
			})
			log.Debug().Str("symbol", symbol).
				Float64("pnl_pct", pos.UnrealizedPnLPercent()).
				Msg("stop loss hit")
			continue
		}

		if d, ok := e.bestCandidate(p, symbol, scores); ok {
			decisions = append(decisions, d)
		}
	}

	if p.IsCircuitBreakerHit(e.cfg.CircuitBreakerPercent) {
		log.Warn().Float64("drawdown_pct", p.MaxDrawdownPercent()).
			Msg("circuit breaker tripped, liquidating all holdings")
		for _, symbol := range p.Held() {
			decisions = append(decisions, Decision{
				ID:           uuid.NewString(),
				ShouldRotate: true,
				From:         symbol,
				Reason:       ReasonCircuitBreaker,
			})
		}
	}

	return decisions
}

// bestCandidate scans all scored instruments not already held and keeps the
// one whose margin over the held score is largest. The margin must strictly
// exceed the rotation threshold; exactly at the threshold does not trigger.
func (e *Engine) bestCandidate(p *portfolio.Portfolio, held string, scores map[string]float64) (Decision, bool) {
	currentScore := scores[held] // 0 when absent from the map

	candidates := make([]string, 0, len(scores))
	for symbol := range scores {
		candidates = append(candidates, symbol)
	}
	sort.Strings(candidates)

	best := ""
	bestDiff := e.cfg.RotationThreshold
	for _, symbol := range candidates {
		if _, heldAlready := p.Position(symbol); heldAlready {
			continue
		}
		if diff := scores[symbol] - currentScore; diff > bestDiff {
			best = symbol
			bestDiff = diff
		}
	}

	if best == "" || bestDiff <= e.cfg.RotationThreshold {
		return Decision{}, false
	}
	return Decision{
		ID:              uuid.NewString(),
		ShouldRotate:    true,
		From:            held,
		To:              best,
		ToScore:         scores[best],
		Reason:          ReasonScoreDifferential,
		ScoreDifference: bestDiff,
	}, true
}

// Execute applies one decision against the portfolio using the price map.
// Failures are reported in the result, never as a partial mutation.
func (e *Engine) Execute(p *portfolio.Portfolio, d Decision, prices map[string]float64) ExecutionResult {
	result := ExecutionResult{Decision: d}
	if !d.ShouldRotate {
		result.Error = "decision does not call for rotation"
		return result
	}

	fromPrice, ok := prices[d.From]
	if !ok {
		result.Error = fmt.Sprintf("no price available for %s", d.From)
		return result
	}

	switch d.Reason {
	case ReasonStopLoss, ReasonCircuitBreaker:
		if !p.RemovePosition(d.From, fromPrice) {
			result.Error = fmt.Sprintf("no position for %s", d.From)
			return result
		}
		result.Executed = true
		log.Info().Str("symbol", d.From).Str("reason", d.Reason.String()).
			Float64("price", fromPrice).Msg("position liquidated")

	case ReasonScoreDifferential:
		toPrice, ok := prices[d.To]
		if !ok {
			result.Error = fmt.Sprintf("no price available for %s", d.To)
			return result
		}
		pos, held := p.Position(d.From)
		if !held {
			result.Error = fmt.Sprintf("no position for %s", d.From)
			return result
		}
		newShares := int64(math.Floor(float64(pos.Shares) * fromPrice / toPrice))
		if newShares == 0 {
			result.Error = "insufficient value"
			return result
		}
		if !p.RotatePosition(d.From, fromPrice, d.To, toPrice, d.ToScore) {
			result.Error = "rotation rejected by portfolio"
			return result
		}
		result.Executed = true
		result.NewShares = newShares
		log.Info().Str("from", d.From).Str("to", d.To).
			Float64("score_diff", d.ScoreDifference).
			Int64("shares", newShares).Msg("rotation executed")

	default:
		result.Error = "unknown rotation reason"
	}
	return result
}

// ExecuteAll applies decisions independently and returns only the results
// that actually executed. A failed decision never blocks its siblings.
func (e *Engine) ExecuteAll(p *portfolio.Portfolio, decisions []Decision, prices map[string]float64) []ExecutionResult {
	var executed []ExecutionResult
	for _, d := range decisions {
		if result := e.Execute(p, d, prices); result.Executed {
			executed = append(executed, result)
		}
	}
	return executed
}

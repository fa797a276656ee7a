package http

import (
	"sync"
	"time"

	"github.com/quantbyte/rotor/internal/portfolio"
	"github.com/quantbyte/rotor/internal/scoring"
)

// State is the read-only view the API serves: the latest scan results and
// portfolio snapshot, published by the scan/rotate loops
type State struct {
	mu          sync.RWMutex
	scores      []scoring.Score
	scoresAsOf  time.Time
	portfolio   *portfolio.State
	portfolioAt time.Time
}

// NewState creates an empty published state
func NewState() *State {
	return &State{}
}

// PublishScores replaces the served scan results
func (s *State) PublishScores(scores []scoring.Score, asOf time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scores = append([]scoring.Score(nil), scores...)
	s.scoresAsOf = asOf
}

// Scores returns the latest scan results and their timestamp
func (s *State) Scores() ([]scoring.Score, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]scoring.Score(nil), s.scores...), s.scoresAsOf
}

// PublishPortfolio replaces the served portfolio snapshot
func (s *State) PublishPortfolio(state portfolio.State, asOf time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.portfolio = &state
	s.portfolioAt = asOf
}

// Portfolio returns the latest snapshot, false when none was published yet
func (s *State) Portfolio() (portfolio.State, time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.portfolio == nil {
		return portfolio.State{}, time.Time{}, false
	}
	return *s.portfolio, s.portfolioAt, true
}

package data

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// PriceUpdate is one tick received from the streaming feed
type PriceUpdate struct {
	Symbol string    `json:"symbol"`
	Price  float64   `json:"price"`
	Time   time.Time `json:"time"`
}

// Stream consumes a websocket price feed and forwards ticks to a channel.
// It reconnects on read failures until the context is cancelled.
type Stream struct {
	url      string
	dialer   *websocket.Dialer
	backoff  time.Duration
	onUpdate chan<- PriceUpdate
}

// NewStream creates a stream for the feed url, delivering ticks to updates
func NewStream(url string, updates chan<- PriceUpdate) *Stream {
	return &Stream{
		url:      url,
		dialer:   websocket.DefaultDialer,
		backoff:  2 * time.Second,
		onUpdate: updates,
	}
}

// Run connects and pumps ticks until the context is cancelled. It returns
// the context's error on cancellation; connection drops are retried.
func (s *Stream) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.pump(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Warn().Err(err).Str("url", s.url).Msg("price stream dropped, reconnecting")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.backoff):
		}
	}
}

func (s *Stream) pump(ctx context.Context) error {
	conn, _, err := s.dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", s.url, err)
	}
	defer conn.Close()

	// Unblock the read loop when the context is cancelled
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	log.Info().Str("url", s.url).Msg("price stream connected")
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		var update PriceUpdate
		if err := json.Unmarshal(raw, &update); err != nil {
			log.Warn().Err(err).Msg("dropping malformed tick")
			continue
		}
		select {
		case s.onUpdate <- update:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

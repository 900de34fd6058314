// Package sweep schedules the periodic room cleanup. The Timer publishes
// ticks on the event bus and the Subscriber turns each tick into a sweep,
// so ticks can come from another process when the bus is shared.
package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aurzen/roombot/pkg/log"
	"github.com/aurzen/roombot/pkg/pubsub"
)

// Tick reasons.
const (
	ReasonStartup  = "startup"
	ReasonInterval = "interval"
	ReasonManual   = "manual"
)

// Timer publishes a sweep tick on start and then every interval.
type Timer struct {
	bus      pubsub.Publisher
	interval time.Duration
	channel  string

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewTimer creates a timer publishing on the tick channel for scope.
func NewTimer(bus pubsub.Publisher, interval time.Duration, scope string) *Timer {
	return &Timer{
		bus:      bus,
		interval: interval,
		channel:  pubsub.SweepTickChannel(scope),
	}
}

// Start begins the interval loop and publishes the startup tick. A failed
// startup tick is logged; the loop keeps running.
func (t *Timer) Start(ctx context.Context) error {
	if t.interval <= 0 {
		return errors.New("sweep interval must be positive")
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancel != nil {
		return errors.New("sweep timer already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	t.cancel = cancel
	t.done = done

	go t.loop(ctx, done)
	l := log.L()
	l.Info().Dur("interval", t.interval).Str("channel", t.channel).Msg("sweep timer started")

	if err := t.Tick(ctx, ReasonStartup); err != nil {
		l.Error().Err(err).Msg("failed to publish startup sweep tick")
	}
	return nil
}

func (t *Timer) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.Tick(ctx, ReasonInterval); err != nil && ctx.Err() == nil {
				l := log.L()
				l.Error().Err(err).Msg("failed to publish sweep tick")
			}
		}
	}
}

// Tick publishes one tick now.
func (t *Timer) Tick(ctx context.Context, reason string) error {
	event, err := pubsub.NewEvent(pubsub.EventSweepTick, t.channel, pubsub.SweepTickPayload{Reason: reason})
	if err != nil {
		return err
	}
	return t.bus.Publish(ctx, t.channel, event)
}

// Stop ends the interval loop and waits for it to exit.
func (t *Timer) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

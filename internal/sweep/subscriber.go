package sweep

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/aurzen/roombot/internal/service"
	"github.com/aurzen/roombot/pkg/log"
	"github.com/aurzen/roombot/pkg/pubsub"
)

// Sweeper runs one sweep.
type Sweeper interface {
	Sweep(ctx context.Context) (*service.SweepSummary, error)
}

// Subscriber runs a sweep for every tick received. Sweeps never overlap:
// ticks are handled one at a time.
type Subscriber struct {
	bus     pubsub.Subscriber
	sweeper Sweeper
	channel string
	timeout time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewSubscriber creates a subscriber on the tick channel for scope. timeout
// bounds a single sweep; zero means no bound.
func NewSubscriber(bus pubsub.Subscriber, sweeper Sweeper, scope string, timeout time.Duration) *Subscriber {
	return &Subscriber{
		bus:     bus,
		sweeper: sweeper,
		channel: pubsub.SweepTickChannel(scope),
		timeout: timeout,
	}
}

// Start subscribes and returns once the subscription is live.
func (s *Subscriber) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return errors.New("sweep subscriber already started")
	}

	ctx, cancel := context.WithCancel(ctx)
	events, err := s.bus.Subscribe(ctx, s.channel)
	if err != nil {
		cancel()
		return err
	}

	done := make(chan struct{})
	s.cancel = cancel
	s.done = done
	go s.loop(ctx, events, done)
	return nil
}

func (s *Subscriber) loop(ctx context.Context, events <-chan *pubsub.Event, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event.Type != pubsub.EventSweepTick {
				continue
			}
			s.handle(ctx, event)
		}
	}
}

func (s *Subscriber) handle(ctx context.Context, event *pubsub.Event) {
	var payload pubsub.SweepTickPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		payload.Reason = "unknown"
	}

	logger := log.L().With().
		Str(log.FieldRequestID, event.ID).
		Str("reason", payload.Reason).
		Logger()
	ctx = log.WithLogger(ctx, logger)

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	if _, err := s.sweeper.Sweep(ctx); err != nil {
		logger.Error().Err(err).Msg("sweep failed")
	}
}

// Stop unsubscribes and waits for an in-flight sweep to finish.
func (s *Subscriber) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

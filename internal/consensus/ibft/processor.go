package ibft

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/rs/zerolog"
)

const pollTimeout = 500 * time.Millisecond

type Shutdowner interface {
	Shutdown()
}

// Processor is the single consumer of the event queue. Every consensus state
// transition happens on the goroutine running Run.
type Processor struct {
	queue       *ibftevent.Queue
	multiplexer *EventMultiplexer
	controller  Controller
	timers      []Shutdowner

	stopped atomic.Bool
	logger  zerolog.Logger
}

func NewProcessor(queue *ibftevent.Queue, controller Controller, timers ...Shutdowner) *Processor {
	return &Processor{
		queue:       queue,
		multiplexer: NewEventMultiplexer(controller),
		controller:  controller,
		timers:      timers,
		logger:      logging.NewLogger("ibft-processor"),
	}
}

// Run starts the controller and handles events until Stop is called, ctx is
// done or a handler fails. The handler error is returned.
func (p *Processor) Run(ctx context.Context) error {
	defer func() {
		for _, t := range p.timers {
			t.Shutdown()
		}
	}()

	if err := p.controller.Start(ctx); err != nil {
		return fmt.Errorf("failed to start controller: %w", err)
	}

	for !p.stopped.Load() && ctx.Err() == nil {
		event := p.queue.Poll(ctx, pollTimeout)
		if event == nil {
			continue
		}
		if err := p.multiplexer.HandleEvent(ctx, event); err != nil {
			p.logger.Error().Err(err).
				Stringer(logging.FieldType, event.Type()).
				Msg("State machine failed while processing event")
			return err
		}
	}

	p.logger.Info().Msg("Shutting down IBFT event processor")
	return nil
}

// Stop makes Run return after its current poll.
func (p *Processor) Stop() {
	p.stopped.Store(true)
}

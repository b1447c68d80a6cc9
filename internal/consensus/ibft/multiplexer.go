package ibft

import (
	"context"
	"fmt"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
)

// Controller reacts to consensus events. All calls are made from the processor goroutine.
type Controller interface {
	Start(ctx context.Context) error
	HandleMessageEvent(ctx context.Context, event ibftevent.MessageReceived) error
	HandleNewBlockEvent(ctx context.Context, event ibftevent.NewChainHead) error
	HandleRoundExpiry(ctx context.Context, event ibftevent.RoundExpiry) error
	HandleBlockTimerExpiry(ctx context.Context, event ibftevent.BlockTimerExpiry) error
}

type EventMultiplexer struct {
	controller Controller
}

func NewEventMultiplexer(controller Controller) *EventMultiplexer {
	return &EventMultiplexer{controller: controller}
}

func (m *EventMultiplexer) HandleEvent(ctx context.Context, event ibftevent.Event) error {
	switch e := event.(type) {
	case ibftevent.MessageReceived:
		return m.controller.HandleMessageEvent(ctx, e)
	case ibftevent.NewChainHead:
		return m.controller.HandleNewBlockEvent(ctx, e)
	case ibftevent.RoundExpiry:
		return m.controller.HandleRoundExpiry(ctx, e)
	case ibftevent.BlockTimerExpiry:
		return m.controller.HandleBlockTimerExpiry(ctx, e)
	}
	return fmt.Errorf("unknown event type %s", event.Type())
}

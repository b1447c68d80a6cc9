package transport

import (
	"context"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/rs/zerolog"
)

// Subscriber feeds the messages of the consensus topic into the event queue.
type Subscriber struct {
	ps     *network.PubSub
	topic  string
	queue  *ibftevent.Queue
	logger zerolog.Logger
}

func NewSubscriber(ps *network.PubSub, topic string, queue *ibftevent.Queue) *Subscriber {
	return &Subscriber{
		ps:     ps,
		topic:  topic,
		queue:  queue,
		logger: logging.NewLogger("ibft-subscriber").With().Str(logging.FieldTopic, topic).Logger(),
	}
}

func (s *Subscriber) Run(ctx context.Context) error {
	sub, err := s.ps.Subscribe(s.topic)
	if err != nil {
		return err
	}
	defer sub.Close()

	ch := sub.Start(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case received, ok := <-ch:
			if !ok {
				return nil
			}
			if len(received.Data) == 0 {
				s.logger.Trace().Msg("Received empty message")
				continue
			}

			msg, err := messages.DecodeMessage(received.Data)
			if err != nil {
				s.logger.Debug().
					Err(err).
					Stringer(logging.FieldPeerId, received.From).
					Msg("Failed to decode topic message")
				continue
			}

			s.logger.Trace().
				Stringer(logging.FieldType, msg.Code).
				Stringer(logging.FieldPeerId, received.From).
				Msg("Validator message received")
			s.queue.Add(ibftevent.MessageReceived{Message: msg, From: received.From})
		}
	}
}

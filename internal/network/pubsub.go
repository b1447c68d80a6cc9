package network

import (
	"context"
	"errors"
	"sync"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/telemetry"
	"github.com/NilFoundation/ibft/internal/telemetry/telattr"
	"github.com/ethereum/go-ethereum/crypto"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	pubsub_pb "github.com/libp2p/go-libp2p-pubsub/pb"
	"github.com/rs/zerolog"
)

const subscriptionChannelSize = 100

type PubSub struct {
	impl   *pubsub.PubSub
	prefix string
	self   PeerID

	mu     sync.Mutex
	topics map[string]*pubsub.Topic // +checklocks:mu

	published     telemetry.Counter
	publishedSize telemetry.Counter
	received      telemetry.Counter
	receivedSize  telemetry.Counter

	logger zerolog.Logger
}

// Message is a pubsub message together with the peer that forwarded it.
type Message struct {
	Data []byte
	From PeerID
}

type Subscription struct {
	ps   *PubSub
	impl *pubsub.Subscription

	logger zerolog.Logger
}

// messageID identifies a message by its payload, so a copy republished by
// another peer is recognized as already seen.
func messageID(msg *pubsub_pb.Message) string {
	return string(crypto.Keccak256(msg.Data))
}

// newPubSub creates a gossipsub router. It must be closed after use.
func newPubSub(ctx context.Context, h Host, conf *Config, logger zerolog.Logger) (*PubSub, error) {
	impl, err := pubsub.NewGossipSub(ctx, h, pubsub.WithMessageIdFn(messageID))
	if err != nil {
		return nil, err
	}

	ps := &PubSub{
		impl:   impl,
		prefix: conf.Prefix,
		self:   h.ID(),
		topics: make(map[string]*pubsub.Topic),
		logger: logger.With().Str(logging.FieldComponent, "pub-sub").Logger(),
	}

	meter := telemetry.NewMeter("github.com/NilFoundation/ibft/internal/network/pubsub")
	if ps.published, err = meter.Int64Counter("pubsub.published_messages"); err != nil {
		return nil, err
	}
	if ps.publishedSize, err = meter.Int64Counter("pubsub.published_messages_size"); err != nil {
		return nil, err
	}
	if ps.received, err = meter.Int64Counter("pubsub.received_messages"); err != nil {
		return nil, err
	}
	if ps.receivedSize, err = meter.Int64Counter("pubsub.received_messages_size"); err != nil {
		return nil, err
	}
	return ps, nil
}

func (ps *PubSub) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	var errs []error
	for _, t := range ps.topics {
		if err := t.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish publishes a message to the given topic.
func (ps *PubSub) Publish(ctx context.Context, topic string, data []byte) error {
	t, err := ps.getTopic(topic)
	if err != nil {
		return err
	}
	if err := t.Publish(ctx, data); err != nil {
		return err
	}

	attrs := telattr.With(telattr.Topic(topic), telattr.P2PIdentity(ps.self))
	ps.published.Add(ctx, 1, attrs)
	ps.publishedSize.Add(ctx, int64(len(data)), attrs)

	ps.logger.Trace().Str(logging.FieldTopic, topic).Msg("Published message")
	return nil
}

// Subscribe subscribes to the given topic. The subscription must be closed after use.
func (ps *PubSub) Subscribe(topic string) (*Subscription, error) {
	t, err := ps.getTopic(topic)
	if err != nil {
		return nil, err
	}
	impl, err := t.Subscribe()
	if err != nil {
		return nil, err
	}

	logger := ps.logger.With().Str(logging.FieldTopic, topic).Logger()
	logger.Debug().Msg("Subscribed to topic")
	return &Subscription{ps: ps, impl: impl, logger: logger}, nil
}

func (ps *PubSub) ListPeers(topic string) []PeerID {
	t, err := ps.getTopic(topic)
	if err != nil {
		return nil
	}
	return t.ListPeers()
}

func (ps *PubSub) getTopic(topic string) (*pubsub.Topic, error) {
	topic = ps.prefix + topic

	ps.mu.Lock()
	defer ps.mu.Unlock()

	if t, ok := ps.topics[topic]; ok {
		return t, nil
	}

	t, err := ps.impl.Join(topic)
	if err != nil {
		return nil, err
	}
	ps.topics[topic] = t
	return t, nil
}

// Start delivers the subscription's messages, except the ones published by
// this host, until ctx is done or the subscription is closed.
func (s *Subscription) Start(ctx context.Context) <-chan Message {
	msgCh := make(chan Message, subscriptionChannelSize)

	go func() {
		defer close(msgCh)

		for {
			msg, err := s.impl.Next(ctx)
			if err != nil {
				if ctx.Err() != nil || errors.Is(err, pubsub.ErrSubscriptionCancelled) {
					s.logger.Debug().Err(err).Msg("Subscription loop closed")
					return
				}
				s.logger.Error().Err(err).Msg("Error reading message")
				continue
			}

			if msg.ReceivedFrom == s.ps.self {
				continue
			}

			attrs := telattr.With(telattr.Topic(s.impl.Topic()), telattr.P2PIdentity(s.ps.self))
			s.ps.received.Add(ctx, 1, attrs)
			s.ps.receivedSize.Add(ctx, int64(len(msg.Data)), attrs)

			select {
			case msgCh <- Message{Data: msg.Data, From: msg.ReceivedFrom}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgCh
}

func (s *Subscription) Close() {
	s.impl.Cancel()
}

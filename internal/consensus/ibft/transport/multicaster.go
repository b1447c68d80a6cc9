package transport

import (
	"context"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/ethereum/go-ethereum/common"
)

// Multicaster delivers a message to the other validators on a best-effort basis.
type Multicaster interface {
	Multicast(ctx context.Context, msg *messages.Message, exclude ...common.Address) error
}

// PubSubMulticaster publishes messages to the consensus topic.
// Gossipsub delivers to every subscriber, so exclusions are not applied.
type PubSubMulticaster struct {
	ps    *network.PubSub
	topic string
}

var _ Multicaster = (*PubSubMulticaster)(nil)

func NewPubSubMulticaster(ps *network.PubSub, topic string) *PubSubMulticaster {
	return &PubSubMulticaster{ps: ps, topic: topic}
}

func (m *PubSubMulticaster) Multicast(ctx context.Context, msg *messages.Message, _ ...common.Address) error {
	data, err := msg.Encode()
	if err != nil {
		return err
	}
	return m.ps.Publish(ctx, m.topic, data)
}

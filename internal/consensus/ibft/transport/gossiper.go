package transport

import (
	"context"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/ethereum/go-ethereum/common"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Gossiper re-multicasts messages received from other validators.
// Every message is sent at most once.
type Gossiper struct {
	multicaster Multicaster
	seen        *lru.Cache[common.Hash, struct{}]
}

func NewGossiper(multicaster Multicaster, historyLimit int) (*Gossiper, error) {
	seen, err := lru.New[common.Hash, struct{}](historyLimit)
	if err != nil {
		return nil, err
	}
	return &Gossiper{multicaster: multicaster, seen: seen}, nil
}

// MarkSeen records the message so that it is never gossiped.
// It reports whether the message was already known.
func (g *Gossiper) MarkSeen(msg *messages.Message) bool {
	known, _ := g.seen.ContainsOrAdd(msg.Identity(), struct{}{})
	return known
}

// Gossip sends the message to every validator except its author and the peer it came from.
func (g *Gossiper) Gossip(ctx context.Context, msg *messages.Message, author common.Address, from network.PeerID) error {
	if g.MarkSeen(msg) {
		return nil
	}

	exclude := []common.Address{author}
	if from != "" {
		if sender, err := network.AddressFromPeerID(from); err == nil {
			exclude = append(exclude, sender)
		}
	}
	return g.multicaster.Multicast(ctx, msg, exclude...)
}

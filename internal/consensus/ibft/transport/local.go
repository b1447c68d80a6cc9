package transport

import (
	"context"
	"slices"
	"sync"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/network"
	"github.com/ethereum/go-ethereum/common"
)

type localNode struct {
	id    network.PeerID
	queue *ibftevent.Queue
}

// LocalNetwork connects validators running in one process by their event queues.
type LocalNetwork struct {
	mu    sync.RWMutex
	nodes map[common.Address]localNode
}

func NewLocalNetwork() *LocalNetwork {
	return &LocalNetwork{nodes: make(map[common.Address]localNode)}
}

// Join registers the validator's queue and returns its multicaster.
func (n *LocalNetwork) Join(key crypto.PrivateKey, queue *ibftevent.Queue) (*LocalMulticaster, error) {
	id, err := network.PeerIDFromNodeKey(key)
	if err != nil {
		return nil, err
	}
	address := crypto.PubkeyToAddress(key)

	n.mu.Lock()
	defer n.mu.Unlock()
	n.nodes[address] = localNode{id: id, queue: queue}

	return &LocalMulticaster{net: n, self: address, id: id}, nil
}

// Leave stops delivering messages to the validator.
func (n *LocalNetwork) Leave(address common.Address) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.nodes, address)
}

type LocalMulticaster struct {
	net  *LocalNetwork
	self common.Address
	id   network.PeerID
}

var _ Multicaster = (*LocalMulticaster)(nil)

func (m *LocalMulticaster) Multicast(_ context.Context, msg *messages.Message, exclude ...common.Address) error {
	m.net.mu.RLock()
	defer m.net.mu.RUnlock()

	for address, node := range m.net.nodes {
		if address == m.self || slices.Contains(exclude, address) {
			continue
		}
		node.queue.Add(ibftevent.MessageReceived{Message: msg, From: m.id})
	}
	return nil
}

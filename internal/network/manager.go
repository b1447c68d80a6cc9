package network

import (
	"context"
	"slices"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/rs/zerolog"
)

// Manager owns the libp2p host with its pubsub router and optional DHT.
type Manager struct {
	ctx context.Context

	host   Host
	pubSub *PubSub
	dht    *DHT

	logger zerolog.Logger
}

// NewManager starts the host and connects to the configured peers. The
// manager must be closed after use.
func NewManager(ctx context.Context, conf *Config) (*Manager, error) {
	if !conf.Enabled() {
		return nil, ErrNetworkDisabled
	}

	logger := logging.NewLogger("network")

	h, err := newHost(ctx, conf)
	if err != nil {
		return nil, err
	}
	logger = logger.With().Stringer(logging.FieldP2PIdentity, h.ID()).Logger()
	for _, addr := range h.Addrs() {
		logger.Info().Stringer("addr", addr).Msg("Listening")
	}

	m := &Manager{ctx: ctx, host: h, logger: logger}

	m.connectToPeers(ctx, slices.Concat(conf.DHTBootstrapPeers, conf.Peers))

	if m.dht, err = newDHT(ctx, h, conf, logger); err != nil {
		m.Close()
		return nil, err
	}
	if m.pubSub, err = newPubSub(ctx, h, conf, logger); err != nil {
		m.Close()
		return nil, err
	}
	return m, nil
}

func (m *Manager) connectToPeers(ctx context.Context, peers AddrInfoSlice) {
	for _, p := range peers {
		if p.ID == m.host.ID() {
			continue
		}
		m.host.Peerstore().AddAddrs(p.ID, p.Addrs, peerstore.PermanentAddrTTL)
		if err := m.host.Connect(ctx, peer.AddrInfo(p)); err != nil {
			m.logger.Warn().Err(err).Stringer(logging.FieldPeerId, p.ID).Msg("Failed to connect to peer")
		}
	}
}

func (m *Manager) PubSub() *PubSub {
	return m.pubSub
}

func (m *Manager) ID() PeerID {
	return m.host.ID()
}

// AddrInfo returns the addresses other nodes can dial.
func (m *Manager) AddrInfo() AddrInfo {
	return AddrInfo{ID: m.host.ID(), Addrs: m.host.Addrs()}
}

func (m *Manager) Connect(ctx context.Context, addr AddrInfo) (PeerID, error) {
	m.logger.Debug().Stringer(logging.FieldPeerId, addr.ID).Msg("Connecting")

	if err := m.host.Connect(ctx, peer.AddrInfo(addr)); err != nil {
		return "", err
	}
	return addr.ID, nil
}

func (m *Manager) ConnectedPeers() []PeerID {
	return m.host.Network().Peers()
}

func (m *Manager) Close() {
	if m.dht != nil {
		if err := m.dht.Close(); err != nil {
			m.logError(err, "Error closing DHT")
		}
	}
	if m.pubSub != nil {
		if err := m.pubSub.Close(); err != nil {
			m.logError(err, "Error closing pubsub")
		}
	}
	if err := m.host.Close(); err != nil {
		m.logError(err, "Error closing host")
	}
}

func (m *Manager) logError(err error, msg string) {
	if m.ctx.Err() != nil {
		// Errors are expected while shutting down.
		return
	}
	m.logger.Error().Err(err).Msg(msg)
}

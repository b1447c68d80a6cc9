package network

import (
	"context"
	"fmt"
	"time"

	"github.com/NilFoundation/ibft/common/concurrent"
	"github.com/NilFoundation/ibft/common/logging"
	dht "github.com/libp2p/go-libp2p-kad-dht"
	"github.com/libp2p/go-libp2p/core/peerstore"
	"github.com/libp2p/go-libp2p/core/protocol"
	"github.com/libp2p/go-libp2p/p2p/discovery/routing"
	"github.com/rs/zerolog"
)

type DHT = dht.IpfsDHT

const (
	tryAdvertiseTimeout   = 30 * time.Second
	connectToPeersTimeout = time.Minute
	findPeersTimeout      = 5 * time.Second
	maxDiscoveredPeers    = 50
)

func discoveryProtocol(conf *Config) protocol.ID {
	return protocol.ID(conf.Prefix + "/kad")
}

// newDHT starts a Kademlia DHT and a background discovery loop bound to ctx.
// It returns nil if the DHT is disabled.
func newDHT(ctx context.Context, h Host, conf *Config, logger zerolog.Logger) (*DHT, error) {
	if !conf.DHTEnabled {
		return nil, nil
	}

	if len(conf.DHTBootstrapPeers) == 0 && conf.DHTMode == dht.ModeClient {
		logger.Warn().Msg("No bootstrap peers provided for DHT in client mode")
	}

	pid := discoveryProtocol(conf)
	res, err := dht.New(
		ctx,
		h,
		dht.Mode(conf.DHTMode),
		dht.BootstrapPeers(conf.DHTBootstrapPeers.ToLibP2p()...),
		dht.RoutingTableRefreshPeriod(time.Minute),
		dht.V1ProtocolOverride(pid),
	)
	if err != nil {
		return nil, err
	}
	if err := res.Bootstrap(ctx); err != nil {
		_ = res.Close()
		return nil, fmt.Errorf("failed to bootstrap DHT: %w", err)
	}

	rd := routing.NewRoutingDiscovery(res)
	go advertise(ctx, rd, string(pid), logger)
	go discoverPeers(ctx, rd, h, string(pid), logger)

	logger.Info().Int(logging.FieldCount, len(conf.DHTBootstrapPeers)).Msg("DHT bootstrapped")
	return res, nil
}

func advertise(ctx context.Context, rd *routing.RoutingDiscovery, ns string, logger zerolog.Logger) {
	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			ttl, err := rd.Advertise(ctx, ns)
			if err != nil {
				logger.Debug().Err(err).Msg("Failed to advertise in the DHT")
				ttl = tryAdvertiseTimeout
			}
			timer.Reset(ttl)
		}
	}
}

func discoverPeers(ctx context.Context, rd *routing.RoutingDiscovery, h Host, ns string, logger zerolog.Logger) {
	concurrent.RunTickerLoop(ctx, connectToPeersTimeout, func(ctx context.Context) {
		if len(h.Network().Peers()) < maxDiscoveredPeers {
			findPeers(ctx, rd, h, ns, logger)
		}
	})
}

func findPeers(ctx context.Context, rd *routing.RoutingDiscovery, h Host, ns string, logger zerolog.Logger) {
	ctx, cancel := context.WithTimeout(ctx, findPeersTimeout)
	defer cancel()

	peers, err := rd.FindPeers(ctx, ns)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to begin finding peers via DHT")
		return
	}

	for p := range peers {
		if p.ID == h.ID() || p.ID == "" {
			continue
		}
		logger.Debug().Stringer(logging.FieldPeerId, p.ID).Msg("Found peer via DHT")
		h.Peerstore().AddAddrs(p.ID, p.Addrs, peerstore.PermanentAddrTTL)
	}
}

package network

import (
	"context"
	"fmt"
	"time"

	"github.com/NilFoundation/ibft/internal/network/internal"
	"github.com/libp2p/go-libp2p"
	"github.com/libp2p/go-libp2p/core/host"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/net/connmgr"
	"github.com/libp2p/go-libp2p/p2p/security/noise"
	quic "github.com/libp2p/go-libp2p/p2p/transport/quic"
	"github.com/libp2p/go-libp2p/p2p/transport/tcp"
)

type Host = host.Host

const (
	lowConnections  = 50
	highConnections = 200
)

// newHost creates a new libp2p host. It must be closed after use.
func newHost(ctx context.Context, conf *Config) (Host, error) {
	if conf.PrivateKey == nil {
		return nil, ErrPrivateKeyMissing
	}

	cm, err := connmgr.NewConnManager(lowConnections, highConnections, connmgr.WithGracePeriod(time.Minute))
	if err != nil {
		return nil, err
	}

	id, err := peer.IDFromPrivateKey(conf.PrivateKey)
	if err != nil {
		return nil, err
	}
	reporter, err := internal.NewBandwidthReporter(ctx, id)
	if err != nil {
		return nil, err
	}

	addr := conf.IPV4Address
	if addr == "" {
		addr = "0.0.0.0"
	}

	options := []libp2p.Option{
		libp2p.Security(noise.ID, noise.New),
		libp2p.ConnectionManager(cm),
		libp2p.Identity(conf.PrivateKey),
		libp2p.BandwidthReporter(reporter),
	}
	if conf.TcpPort != 0 {
		options = append(options,
			libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/%s/tcp/%d", addr, conf.TcpPort)),
			libp2p.Transport(tcp.NewTCPTransport),
		)
	}
	if conf.QuicPort != 0 {
		options = append(options,
			libp2p.ListenAddrStrings(fmt.Sprintf("/ip4/%s/udp/%d/quic-v1", addr, conf.QuicPort)),
			libp2p.Transport(quic.NewTransport),
		)
	}

	return libp2p.New(options...)
}

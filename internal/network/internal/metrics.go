package internal

import (
	"context"

	"github.com/NilFoundation/ibft/internal/telemetry"
	"github.com/NilFoundation/ibft/internal/telemetry/telattr"
	"github.com/libp2p/go-libp2p/core/metrics"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/core/protocol"
	"go.opentelemetry.io/otel/attribute"
)

// BandwidthReporter exports libp2p stream traffic as counters and keeps the
// in-memory statistics libp2p queries.
type BandwidthReporter struct {
	*metrics.BandwidthCounter

	ctx context.Context
	id  peer.ID

	sentSize telemetry.Counter
	recvSize telemetry.Counter
}

var _ metrics.Reporter = (*BandwidthReporter)(nil)

func NewBandwidthReporter(ctx context.Context, id peer.ID) (*BandwidthReporter, error) {
	meter := telemetry.NewMeter("github.com/NilFoundation/ibft/internal/network")

	sentSize, err := meter.Int64Counter("network.sent_size")
	if err != nil {
		return nil, err
	}
	recvSize, err := meter.Int64Counter("network.recv_size")
	if err != nil {
		return nil, err
	}
	return &BandwidthReporter{
		BandwidthCounter: metrics.NewBandwidthCounter(),
		ctx:              ctx,
		id:               id,
		sentSize:         sentSize,
		recvSize:         recvSize,
	}, nil
}

func (r *BandwidthReporter) attributes(protocol protocol.ID, peer peer.ID) telattr.MetricOption {
	return telattr.With(
		telattr.P2PIdentity(r.id),
		telattr.PeerId(peer),
		attribute.String("protocolId", string(protocol)),
	)
}

func (r *BandwidthReporter) LogSentMessageStream(size int64, protocol protocol.ID, peer peer.ID) {
	r.BandwidthCounter.LogSentMessageStream(size, protocol, peer)
	r.sentSize.Add(r.ctx, size, r.attributes(protocol, peer))
}

func (r *BandwidthReporter) LogRecvMessageStream(size int64, protocol protocol.ID, peer peer.ID) {
	r.BandwidthCounter.LogRecvMessageStream(size, protocol, peer)
	r.recvSize.Add(r.ctx, size, r.attributes(protocol, peer))
}

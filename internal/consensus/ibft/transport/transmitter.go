package transport

import (
	"context"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/rs/zerolog"
)

// Transmitter multicasts the messages created by the local validator.
// Send failures are logged: retransmission happens through round changes.
type Transmitter struct {
	multicaster Multicaster
	gossiper    *Gossiper
	logger      zerolog.Logger
}

func NewTransmitter(multicaster Multicaster, gossiper *Gossiper) *Transmitter {
	return &Transmitter{
		multicaster: multicaster,
		gossiper:    gossiper,
		logger:      logging.NewLogger("ibft-transmitter"),
	}
}

func (t *Transmitter) MulticastProposal(ctx context.Context, msg *messages.Proposal) {
	transmit(ctx, t, msg)
}

func (t *Transmitter) MulticastPrepare(ctx context.Context, msg *messages.Prepare) {
	transmit(ctx, t, msg)
}

func (t *Transmitter) MulticastCommit(ctx context.Context, msg *messages.Commit) {
	transmit(ctx, t, msg)
}

func (t *Transmitter) MulticastRoundChange(ctx context.Context, msg *messages.RoundChange) {
	transmit(ctx, t, msg)
}

func (t *Transmitter) MulticastNewRound(ctx context.Context, msg *messages.NewRound) {
	transmit(ctx, t, msg)
}

func transmit[P messages.Payload](ctx context.Context, t *Transmitter, signed *messages.SignedData[P]) {
	msg, err := messages.NewMessage(signed)
	if err != nil {
		t.logger.Error().Err(err).Stringer(logging.FieldType, signed.MessageCode()).Msg("Failed to encode message")
		return
	}

	t.gossiper.MarkSeen(msg)
	if err := t.multicaster.Multicast(ctx, msg); err != nil {
		t.logger.Warn().
			Err(err).
			Stringer(logging.FieldType, signed.MessageCode()).
			Stringer(logging.FieldRound, signed.RoundIdentifier()).
			Msg("Failed to multicast message")
		return
	}

	t.logger.Trace().
		Stringer(logging.FieldType, signed.MessageCode()).
		Stringer(logging.FieldRound, signed.RoundIdentifier()).
		Msg("Message sent")
}

package ibft

import (
	"context"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/telemetry"
	"github.com/NilFoundation/ibft/internal/telemetry/telattr"
	"github.com/jonboulle/clockwork"
)

type MetricsHandler struct {
	heightMeasurer *telemetry.Measurer

	roundsStarted    telemetry.Counter
	roundChanges     telemetry.Counter
	blocksCommitted  telemetry.Counter
	messagesReceived telemetry.Counter
	messagesInvalid  telemetry.Counter
	messagesStale    telemetry.Counter
	validatorsCount  telemetry.Gauge
}

func NewMetricsHandler(name string, clock clockwork.Clock) (*MetricsHandler, error) {
	meter := telemetry.NewMeter(name)

	heightMeasurer, err := telemetry.NewMeasurer(meter, clock, "ibft.heights")
	if err != nil {
		return nil, err
	}
	mh := &MetricsHandler{heightMeasurer: heightMeasurer}

	if mh.roundsStarted, err = meter.Int64Counter("ibft.rounds_started"); err != nil {
		return nil, err
	}
	if mh.roundChanges, err = meter.Int64Counter("ibft.round_changes"); err != nil {
		return nil, err
	}
	if mh.blocksCommitted, err = meter.Int64Counter("ibft.blocks_committed"); err != nil {
		return nil, err
	}
	if mh.messagesReceived, err = meter.Int64Counter("ibft.messages_received"); err != nil {
		return nil, err
	}
	if mh.messagesInvalid, err = meter.Int64Counter("ibft.messages_invalid"); err != nil {
		return nil, err
	}
	if mh.messagesStale, err = meter.Int64Counter("ibft.messages_stale"); err != nil {
		return nil, err
	}
	if mh.validatorsCount, err = meter.Int64Gauge("ibft.validators_count"); err != nil {
		return nil, err
	}
	return mh, nil
}

func (mh *MetricsHandler) StartHeight(ctx context.Context, height uint64, validators int) {
	mh.heightMeasurer.Restart()
	mh.validatorsCount.Record(ctx, int64(validators), telattr.With(telattr.Height(height)))
}

func (mh *MetricsHandler) RoundStarted(ctx context.Context, round messages.ConsensusRoundIdentifier) {
	mh.roundsStarted.Add(ctx, 1, telattr.With(telattr.Round(round.Round)))
	if round.Round > 0 {
		mh.roundChanges.Add(ctx, 1)
	}
}

func (mh *MetricsHandler) BlockCommitted(ctx context.Context, round messages.ConsensusRoundIdentifier) {
	mh.blocksCommitted.Add(ctx, 1, telattr.With(telattr.Round(round.Round)))
	mh.heightMeasurer.Measure(ctx)
}

func (mh *MetricsHandler) MessageReceived(ctx context.Context, code messages.MessageCode) {
	mh.messagesReceived.Add(ctx, 1, telattr.With(telattr.Type(code.String())))
}

func (mh *MetricsHandler) MessageInvalid(ctx context.Context, code messages.MessageCode) {
	mh.messagesInvalid.Add(ctx, 1, telattr.With(telattr.Type(code.String())))
}

func (mh *MetricsHandler) MessageStale(ctx context.Context, code messages.MessageCode) {
	mh.messagesStale.Add(ctx, 1, telattr.With(telattr.Type(code.String())))
}

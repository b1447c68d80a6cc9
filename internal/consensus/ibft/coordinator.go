package ibft

import (
	"context"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/rs/zerolog"
)

type ObservableChain interface {
	Observe(observer blockchain.BlockAddedObserver) func()
}

// Coordinator runs the consensus processor and feeds it the blocks appended to the chain.
type Coordinator struct {
	processor *Processor
	queue     *ibftevent.Queue
	chain     ObservableChain
	updater   *VoteTallyUpdater
	tally     *VoteTally
	logger    zerolog.Logger
}

func NewCoordinator(
	processor *Processor,
	queue *ibftevent.Queue,
	chain ObservableChain,
	updater *VoteTallyUpdater,
	tally *VoteTally,
) *Coordinator {
	return &Coordinator{
		processor: processor,
		queue:     queue,
		chain:     chain,
		updater:   updater,
		tally:     tally,
		logger:    logging.NewLogger("ibft-coordinator"),
	}
}

// Run blocks until the processor stops.
func (c *Coordinator) Run(ctx context.Context) error {
	unsubscribe := c.chain.Observe(c.onBlockAdded)
	defer unsubscribe()

	c.logger.Info().Msg("Starting IBFT")
	return c.processor.Run(ctx)
}

func (c *Coordinator) Stop() {
	c.processor.Stop()
}

func (c *Coordinator) onBlockAdded(event blockchain.BlockAddedEvent) {
	header := event.Block.Header
	if err := c.updater.UpdateForBlock(header, c.tally); err != nil {
		c.logger.Error().Err(err).
			Uint64(logging.FieldBlockNumber, header.Number).
			Msg("Failed to update vote tally")
	}
	c.queue.Add(ibftevent.NewChainHead{Header: header})
}

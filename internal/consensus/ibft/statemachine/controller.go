package statemachine

import (
	"context"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/ibftevent"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/rs/zerolog"
)

type ChainHeadReader interface {
	ChainHeadHeader() *types.Header
}

// Controller routes consensus events to the height manager of the current height.
// Messages for the next few heights are kept until that height starts.
type Controller struct {
	final *FinalState
	chain ChainHeadReader

	heightManager *BlockHeightManager

	futureMessages      map[uint64][]ibftevent.MessageReceived
	futureMessagesCount int

	logger zerolog.Logger
}

var _ ibft.Controller = (*Controller)(nil)

func NewController(final *FinalState, chain ChainHeadReader) *Controller {
	return &Controller{
		final:          final,
		chain:          chain,
		futureMessages: make(map[uint64][]ibftevent.MessageReceived),
		logger:         logging.NewLogger("ibft-controller"),
	}
}

// Start begins consensus on top of the current chain head.
func (c *Controller) Start(ctx context.Context) error {
	return c.startNewHeightManager(ctx, c.chain.ChainHeadHeader())
}

func (c *Controller) HandleNewBlockEvent(ctx context.Context, event ibftevent.NewChainHead) error {
	header := event.Header
	parent := c.heightManager.Parent()
	if header.Number <= parent.Number {
		c.logger.Trace().
			Uint64(logging.FieldBlockNumber, header.Number).
			Uint64(logging.FieldHeight, c.heightManager.Height()).
			Msg("Ignoring new chain head which does not advance the chain")
		return nil
	}
	if header.Number > parent.Number+1 {
		c.logger.Warn().
			Uint64(logging.FieldBlockNumber, header.Number).
			Uint64(logging.FieldHeight, c.heightManager.Height()).
			Msg("New chain head skips heights")
	}
	return c.startNewHeightManager(ctx, header)
}

func (c *Controller) HandleRoundExpiry(ctx context.Context, event ibftevent.RoundExpiry) error {
	if event.Round.Height != c.heightManager.Height() {
		c.logger.Trace().Stringer(logging.FieldRound, event.Round).Msg("Ignoring round expiry of another height")
		return nil
	}
	return c.heightManager.RoundExpired(ctx, event.Round)
}

func (c *Controller) HandleBlockTimerExpiry(ctx context.Context, event ibftevent.BlockTimerExpiry) error {
	if event.Round.Height != c.heightManager.Height() {
		c.logger.Trace().Stringer(logging.FieldRound, event.Round).Msg("Ignoring block timer of another height")
		return nil
	}
	return c.heightManager.HandleBlockTimerExpiry(ctx, event.Round)
}

func (c *Controller) HandleMessageEvent(ctx context.Context, event ibftevent.MessageReceived) error {
	c.final.Metrics.MessageReceived(ctx, event.Message.Code)

	hm := c.heightManager
	switch event.Message.Code {
	case messages.ProposalCode:
		return processMessage(ctx, c, event, hm.HandleProposal)
	case messages.PrepareCode:
		return processMessage(ctx, c, event, hm.HandlePrepare)
	case messages.CommitCode:
		return processMessage(ctx, c, event, hm.HandleCommit)
	case messages.RoundChangeCode:
		return processMessage(ctx, c, event, hm.HandleRoundChange)
	case messages.NewRoundCode:
		return processMessage(ctx, c, event, hm.HandleNewRound)
	}

	c.final.Metrics.MessageInvalid(ctx, event.Message.Code)
	c.logger.Debug().Stringer(logging.FieldType, event.Message.Code).Msg("Received message with unknown code")
	return nil
}

func processMessage[P messages.Payload](
	ctx context.Context,
	c *Controller,
	event ibftevent.MessageReceived,
	handler func(context.Context, *messages.SignedData[P]) error,
) error {
	msg, err := messages.Decode[P](event.Message)
	if err != nil {
		c.final.Metrics.MessageInvalid(ctx, event.Message.Code)
		c.logger.Debug().Err(err).Stringer(logging.FieldPeerId, event.From).Msg("Failed to decode message")
		return nil
	}

	height := c.heightManager.Height()
	round := msg.RoundIdentifier()
	switch {
	case round.Height > height:
		c.bufferFutureMessage(event, round.Height)
		return nil
	case round.Height < height:
		c.final.Metrics.MessageStale(ctx, msg.MessageCode())
		c.logger.Trace().
			Stringer(logging.FieldType, msg.MessageCode()).
			Stringer(logging.FieldRound, round).
			Msg("Dropping message for a prior height")
		return nil
	}

	if !c.heightManager.IsValidator(msg.Author()) {
		c.final.Metrics.MessageInvalid(ctx, msg.MessageCode())
		c.logger.Debug().
			Stringer(logging.FieldType, msg.MessageCode()).
			Stringer(logging.FieldAuthor, msg.Author()).
			Msg("Dropping message from a non-validator")
		return nil
	}

	if err := c.final.Gossiper.Gossip(ctx, event.Message, msg.Author(), event.From); err != nil {
		c.logger.Debug().Err(err).Stringer(logging.FieldType, msg.MessageCode()).Msg("Failed to gossip message")
	}
	return handler(ctx, msg)
}

func (c *Controller) bufferFutureMessage(event ibftevent.MessageReceived, height uint64) {
	cfg := c.final.Config
	if height > c.heightManager.Height()+cfg.FutureHeightDistance {
		c.logger.Debug().Uint64(logging.FieldHeight, height).Msg("Dropping message for a height too far ahead")
		return
	}
	if c.futureMessagesCount >= cfg.FutureMessagesLimit {
		c.logger.Debug().Uint64(logging.FieldHeight, height).Msg("Future messages buffer is full")
		return
	}
	c.futureMessages[height] = append(c.futureMessages[height], event)
	c.futureMessagesCount++
}

func (c *Controller) startNewHeightManager(ctx context.Context, parent *types.Header) error {
	c.final.BlockTimer.CancelTimer()
	c.final.RoundTimer.CancelTimer()

	c.heightManager = NewBlockHeightManager(c.final, parent)
	c.heightManager.Start(ctx)

	height := c.heightManager.Height()
	for h, events := range c.futureMessages {
		if h < height {
			c.futureMessagesCount -= len(events)
			delete(c.futureMessages, h)
		}
	}

	events := c.futureMessages[height]
	delete(c.futureMessages, height)
	c.futureMessagesCount -= len(events)

	for _, event := range events {
		if err := c.HandleMessageEvent(ctx, event); err != nil {
			return err
		}
	}
	return nil
}

// HeightManager returns the manager of the current height. It is nil before Start.
func (c *Controller) HeightManager() *BlockHeightManager {
	return c.heightManager
}

func (c *Controller) FutureMessagesCount() int {
	return c.futureMessagesCount
}

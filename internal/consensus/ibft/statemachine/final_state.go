package statemachine

import (
	"context"

	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/transport"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/validation"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
)

type BlockCreator interface {
	CreateBlock(parent *types.Header, round messages.ConsensusRoundIdentifier, timestamp uint64) (*types.Block, error)
}

type BlockImporter interface {
	AppendBlock(ctx context.Context, block *types.Block, receipts types.Receipts) error
}

// MinedBlockObserver is notified after a block committed by consensus is imported.
type MinedBlockObserver = blockchain.BlockAddedObserver

// FinalState is what the height managers of the local validator share.
type FinalState struct {
	Config         *ibft.Config
	Validators     ibft.ValidatorProvider
	MessageFactory *messages.MessageFactory
	Transmitter    *transport.Transmitter
	Gossiper       *transport.Gossiper
	RoundTimer     *ibft.RoundTimer
	BlockTimer     *ibft.BlockTimer
	BlockCreator   BlockCreator
	BlockImporter  BlockImporter
	Observers      []MinedBlockObserver
	Clock          clockwork.Clock
	Metrics        *ibft.MetricsHandler
}

func (s *FinalState) LocalAddress() common.Address {
	return s.MessageFactory.Address()
}

// heightContext pins the validator set of one height.
type heightContext struct {
	parent           *types.Header
	validators       ibft.ValidatorList
	quorum           int
	selector         *ibft.ProposerSelector
	validatorFactory *validation.MessageValidatorFactory
	isValidator      bool
}

func newHeightContext(state *FinalState, parent *types.Header) *heightContext {
	validators := ibft.ValidatorList(state.Validators.Validators())
	selector := ibft.NewProposerSelector(validators)
	blockValidator := validation.NewHeaderValidator(
		validators, state.Config.BlockPeriodSeconds, state.Config.EpochLength)

	return &heightContext{
		parent:           parent,
		validators:       validators,
		quorum:           ibft.CalculateRequiredValidatorQuorum(len(validators)),
		selector:         selector,
		validatorFactory: validation.NewMessageValidatorFactory(selector, validators, blockValidator),
		isValidator:      validators.Contains(state.LocalAddress()),
	}
}

func (h *heightContext) height() uint64 {
	return h.parent.Number + 1
}

func (h *heightContext) isLocalProposer(state *FinalState, round messages.ConsensusRoundIdentifier) bool {
	return h.isValidator && h.selector.SelectProposerForRound(round) == state.LocalAddress()
}

// blockTimestamp is the timestamp of a block proposed now. It never precedes
// the earliest timestamp the header rules accept.
func (h *heightContext) blockTimestamp(state *FinalState) uint64 {
	return max(uint64(state.Clock.Now().Unix()), h.parent.Timestamp+state.Config.BlockPeriodSeconds)
}

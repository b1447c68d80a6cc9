package blockcreation

import (
	"fmt"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

type TxSource interface {
	Peek(limit int) types.Transactions
}

// BlockCreator builds the blocks the local validator proposes.
type BlockCreator struct {
	local       common.Address
	tally       *ibft.VoteTally
	votes       *VoteProposer
	txs         TxSource
	epochLength uint64
	vanity      [types.ExtraVanityLength]byte
	logger      zerolog.Logger
}

func NewBlockCreator(
	local common.Address,
	tally *ibft.VoteTally,
	votes *VoteProposer,
	txs TxSource,
	epochLength uint64,
	vanity []byte,
) *BlockCreator {
	c := &BlockCreator{
		local:       local,
		tally:       tally,
		votes:       votes,
		txs:         txs,
		epochLength: epochLength,
		logger:      logging.NewLogger("block-creator"),
	}
	copy(c.vanity[:], vanity)
	return c
}

func (c *BlockCreator) CreateBlock(
	parent *types.Header, round messages.ConsensusRoundIdentifier, timestamp uint64,
) (*types.Block, error) {
	number := parent.Number + 1
	if round.Height != number {
		return nil, fmt.Errorf("cannot create block %d for round %s", number, round)
	}

	extra := &types.ExtraData{
		Vanity:     c.vanity,
		Validators: c.tally.Validators(),
		Round:      round.Round,
	}
	if number%c.epochLength != 0 {
		extra.Vote = c.votes.GetVote(c.local, c.tally)
	}
	encodedExtra, err := extra.Encode()
	if err != nil {
		return nil, err
	}

	txs, _, gasUsed := ApplyTransactions(c.txs.Peek(0), parent.GasLimit)
	header := &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   c.local,
		Number:     number,
		GasLimit:   parent.GasLimit,
		GasUsed:    gasUsed,
		Timestamp:  timestamp,
		TxHash:     txs.Hash(),
		Extra:      encodedExtra,
	}
	block := types.NewBlock(header, &types.Body{Transactions: txs})

	c.logger.Debug().
		Uint64(logging.FieldBlockNumber, number).
		Uint32(logging.FieldRound, round.Round).
		Int(logging.FieldCount, len(txs)).
		Stringer(logging.FieldBlockHash, block.Hash()).
		Msg("Created block")
	return block, nil
}

package ibft

import (
	"context"
	"errors"
	"fmt"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/rs/zerolog"
)

var ErrNoValidators = errors.New("no validators")

type ChainReader interface {
	ChainHeight() uint64
	GetHeaderByNumber(ctx context.Context, number uint64) (*types.Header, error)
}

// VoteTallyUpdater keeps a VoteTally in sync with the chain.
// Epoch blocks reset the validator set to the one they list and drop all votes.
type VoteTallyUpdater struct {
	epochLength uint64
	logger      zerolog.Logger
}

func NewVoteTallyUpdater(epochLength uint64) *VoteTallyUpdater {
	return &VoteTallyUpdater{
		epochLength: epochLength,
		logger:      logging.NewLogger("vote-tally"),
	}
}

func (u *VoteTallyUpdater) IsEpochBlock(number uint64) bool {
	return number%u.epochLength == 0
}

// BuildVoteTallyFromChain replays the chain from the latest epoch block.
func (u *VoteTallyUpdater) BuildVoteTallyFromChain(ctx context.Context, chain ChainReader) (*VoteTally, error) {
	height := chain.ChainHeight()
	epochStart := height - height%u.epochLength

	tally := NewVoteTally(nil)
	for number := epochStart; number <= height; number++ {
		header, err := chain.GetHeaderByNumber(ctx, number)
		if err != nil {
			return nil, fmt.Errorf("failed to read header %d: %w", number, err)
		}
		if err := u.UpdateForBlock(header, tally); err != nil {
			return nil, err
		}
	}

	if len(tally.Validators()) == 0 {
		return nil, fmt.Errorf("%w at height %d", ErrNoValidators, height)
	}

	u.logger.Info().
		Uint64(logging.FieldHeight, height).
		Int(logging.FieldCount, len(tally.Validators())).
		Msg("Built vote tally from chain")
	return tally, nil
}

func (u *VoteTallyUpdater) UpdateForBlock(header *types.Header, tally *VoteTally) error {
	extra, err := header.ExtraData()
	if err != nil {
		return fmt.Errorf("block %d: %w", header.Number, err)
	}

	if u.IsEpochBlock(header.Number) {
		tally.SetValidators(extra.Validators)
		return nil
	}

	if extra.Vote == nil {
		return nil
	}
	if tally.AddVote(header.Coinbase, *extra.Vote) {
		u.logger.Info().
			Uint64(logging.FieldBlockNumber, header.Number).
			Stringer(logging.FieldAddress, extra.Vote.Recipient).
			Stringer(logging.FieldType, extra.Vote.Type).
			Msg("Validator set changed by vote")
	}
	return nil
}

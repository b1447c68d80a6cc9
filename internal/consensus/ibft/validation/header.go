package validation

import (
	"errors"
	"fmt"
	"slices"

	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/types"
)

var (
	ErrParentMismatch       = errors.New("block does not extend the parent")
	ErrNumberMismatch       = errors.New("block number does not follow the parent")
	ErrTimestampTooEarly    = errors.New("block timestamp is earlier than the block period allows")
	ErrValidatorsMismatch   = errors.New("block lists unexpected validators")
	ErrCoinbaseNotValidator = errors.New("block coinbase is not a validator")
	ErrTxHashMismatch       = errors.New("block transaction hash does not match its body")
	ErrUnexpectedSeals      = errors.New("proposed block carries commit seals")
	ErrVoteInEpochBlock     = errors.New("epoch block carries a vote")
)

// BlockValidator checks a proposed block before it may be prepared.
type BlockValidator interface {
	ValidateBlock(block *types.Block, parent *types.Header) error
}

// HeaderValidator applies the consensus header rules to blocks proposed on top of the chain head.
type HeaderValidator struct {
	validators         ibft.ValidatorProvider
	blockPeriodSeconds uint64
	epochLength        uint64
}

var _ BlockValidator = (*HeaderValidator)(nil)

func NewHeaderValidator(validators ibft.ValidatorProvider, blockPeriodSeconds, epochLength uint64) *HeaderValidator {
	return &HeaderValidator{
		validators:         validators,
		blockPeriodSeconds: blockPeriodSeconds,
		epochLength:        epochLength,
	}
}

func (v *HeaderValidator) ValidateBlock(block *types.Block, parent *types.Header) error {
	header := block.Header

	if header.ParentHash != parent.Hash() {
		return fmt.Errorf("%w: parent %s, expected %s", ErrParentMismatch, header.ParentHash, parent.Hash())
	}
	if header.Number != parent.Number+1 {
		return fmt.Errorf("%w: %d after %d", ErrNumberMismatch, header.Number, parent.Number)
	}
	if header.Timestamp < parent.Timestamp+v.blockPeriodSeconds {
		return fmt.Errorf("%w: %d after %d", ErrTimestampTooEarly, header.Timestamp, parent.Timestamp)
	}
	if txHash := block.Body.Transactions.Hash(); header.TxHash != txHash {
		return fmt.Errorf("%w: %s, body %s", ErrTxHashMismatch, header.TxHash, txHash)
	}

	extra, err := header.ExtraData()
	if err != nil {
		return err
	}
	if len(extra.Seals) != 0 {
		return ErrUnexpectedSeals
	}
	if extra.Vote != nil && header.Number%v.epochLength == 0 {
		return ErrVoteInEpochBlock
	}

	validators := v.validators.Validators()
	if !slices.Equal(extra.Validators, validators) {
		return fmt.Errorf("%w: %d listed, %d expected", ErrValidatorsMismatch, len(extra.Validators), len(validators))
	}
	if !slices.Contains(validators, header.Coinbase) {
		return fmt.Errorf("%w: %s", ErrCoinbaseNotValidator, header.Coinbase)
	}
	return nil
}

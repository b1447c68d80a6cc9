package validation

import (
	"slices"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

// MessageValidator checks the Proposal, Prepare and Commit messages of one round.
// It remembers the accepted proposal: Prepares and Commits are only valid for its digest.
type MessageValidator struct {
	round            messages.ConsensusRoundIdentifier
	validators       []common.Address
	expectedProposer common.Address
	parent           *types.Header
	blockValidator   BlockValidator

	proposal *messages.Proposal

	logger zerolog.Logger
}

func NewMessageValidator(
	round messages.ConsensusRoundIdentifier,
	validators []common.Address,
	expectedProposer common.Address,
	parent *types.Header,
	blockValidator BlockValidator,
	logger zerolog.Logger,
) *MessageValidator {
	return &MessageValidator{
		round:            round,
		validators:       validators,
		expectedProposer: expectedProposer,
		parent:           parent,
		blockValidator:   blockValidator,
		logger:           logger,
	}
}

func (v *MessageValidator) invalid(code messages.MessageCode, author common.Address, reason string) bool {
	v.logger.Info().
		Stringer(logging.FieldType, code).
		Stringer(logging.FieldAuthor, author).
		Uint64(logging.FieldHeight, v.round.Height).
		Uint32(logging.FieldRound, v.round.Round).
		Msgf("Invalid message: %s", reason)
	return false
}

// AddSignedProposalPayload validates the proposal of the round. Once a proposal
// is accepted only an identical one is accepted again.
func (v *MessageValidator) AddSignedProposalPayload(msg *messages.Proposal) bool {
	if v.proposal != nil {
		return v.handleSubsequentProposal(msg)
	}

	payload := msg.Payload()
	if payload.Round != v.round {
		return v.invalid(messages.ProposalCode, msg.Author(), "not for the current round")
	}
	if msg.Author() != v.expectedProposer {
		return v.invalid(messages.ProposalCode, msg.Author(), "not from the round's proposer")
	}
	if payload.Block == nil {
		return v.invalid(messages.ProposalCode, msg.Author(), "no block")
	}
	if err := v.blockValidator.ValidateBlock(payload.Block, v.parent); err != nil {
		return v.invalid(messages.ProposalCode, msg.Author(), "invalid block: "+err.Error())
	}

	extra, err := payload.Block.Header.ExtraData()
	if err != nil {
		return v.invalid(messages.ProposalCode, msg.Author(), err.Error())
	}
	if extra.Round != payload.Round.Round {
		return v.invalid(messages.ProposalCode, msg.Author(), "block round differs from the proposal round")
	}

	v.proposal = msg
	return true
}

func (v *MessageValidator) handleSubsequentProposal(msg *messages.Proposal) bool {
	if msg.Author() != v.proposal.Author() {
		return v.invalid(messages.ProposalCode, msg.Author(), "sender differs from the accepted proposal")
	}
	if msg.Identity() != v.proposal.Identity() {
		return v.invalid(messages.ProposalCode, msg.Author(), "differs from the accepted proposal")
	}
	return true
}

func (v *MessageValidator) ValidatePrepareMessage(msg *messages.Prepare) bool {
	if !v.isForCurrentRoundFromValidator(messages.PrepareCode, msg.Author(), msg.RoundIdentifier()) {
		return false
	}
	if msg.Author() == v.expectedProposer {
		return v.invalid(messages.PrepareCode, msg.Author(), "prepares are not sent by the proposer")
	}
	return v.digestMatchesProposal(messages.PrepareCode, msg.Author(), msg.Payload().Digest)
}

func (v *MessageValidator) ValidateCommitMessage(msg *messages.Commit) bool {
	if !v.isForCurrentRoundFromValidator(messages.CommitCode, msg.Author(), msg.RoundIdentifier()) {
		return false
	}

	payload := msg.Payload()
	sealer, err := crypto.RecoverAddress(v.proposal.Payload().Block.SealHash(), payload.CommitSeal)
	if err != nil {
		return v.invalid(messages.CommitCode, msg.Author(), "unrecoverable commit seal")
	}
	if sealer != msg.Author() {
		return v.invalid(messages.CommitCode, msg.Author(), "commit seal is not signed by the sender")
	}
	return v.digestMatchesProposal(messages.CommitCode, msg.Author(), payload.Digest)
}

func (v *MessageValidator) isForCurrentRoundFromValidator(
	code messages.MessageCode, author common.Address, round messages.ConsensusRoundIdentifier,
) bool {
	if !slices.Contains(v.validators, author) {
		return v.invalid(code, author, "sender is not a validator")
	}
	if round != v.round {
		return v.invalid(code, author, "not for the current round")
	}
	if v.proposal == nil {
		return v.invalid(code, author, "proposal not yet received")
	}
	return true
}

func (v *MessageValidator) digestMatchesProposal(code messages.MessageCode, author common.Address, digest common.Hash) bool {
	if digest != v.proposal.Payload().Block.SealHash() {
		return v.invalid(code, author, "digest does not match the proposal")
	}
	return true
}

package statemachine

import (
	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/consensus/ibft/validation"
	"github.com/NilFoundation/ibft/internal/types"
)

// RoundState collects the proposal and the votes of one round.
// Votes arriving before the proposal are kept and checked once it is accepted.
type RoundState struct {
	round     messages.ConsensusRoundIdentifier
	quorum    int
	validator *validation.MessageValidator

	proposal *messages.Proposal
	prepares *authoredMessages[messages.PreparePayload]
	commits  *authoredMessages[messages.CommitPayload]

	prepared  bool
	committed bool
}

func NewRoundState(
	round messages.ConsensusRoundIdentifier, quorum int, validator *validation.MessageValidator,
) *RoundState {
	return &RoundState{
		round:     round,
		quorum:    quorum,
		validator: validator,
		prepares:  newAuthoredMessages[messages.PreparePayload](),
		commits:   newAuthoredMessages[messages.CommitPayload](),
	}
}

func (s *RoundState) RoundIdentifier() messages.ConsensusRoundIdentifier {
	return s.round
}

// SetProposal accepts the first valid proposal of the round.
func (s *RoundState) SetProposal(msg *messages.Proposal) bool {
	if s.proposal != nil {
		return false
	}
	if !s.validator.AddSignedProposalPayload(msg) {
		return false
	}

	s.proposal = msg
	s.prepares.retain(s.validator.ValidatePrepareMessage)
	s.commits.retain(s.validator.ValidateCommitMessage)
	s.updateState()
	return true
}

// AddPrepare records the prepare of its author. A second prepare of the same author is ignored.
func (s *RoundState) AddPrepare(msg *messages.Prepare) {
	if s.proposal == nil || s.validator.ValidatePrepareMessage(msg) {
		s.prepares.add(msg)
	}
	s.updateState()
}

// AddCommit records the commit of its author. A second commit of the same author is ignored.
func (s *RoundState) AddCommit(msg *messages.Commit) {
	if s.proposal == nil || s.validator.ValidateCommitMessage(msg) {
		s.commits.add(msg)
	}
	s.updateState()
}

// The proposal counts as the proposer's prepare.
func (s *RoundState) updateState() {
	s.prepared = s.proposal != nil &&
		s.prepares.len() >= ibft.PrepareMessageCountForQuorum(s.quorum)
	s.committed = s.prepared && s.commits.len() >= s.quorum
}

func (s *RoundState) Proposal() *messages.Proposal {
	return s.proposal
}

func (s *RoundState) ProposedBlock() *types.Block {
	if s.proposal == nil {
		return nil
	}
	return s.proposal.Payload().Block
}

func (s *RoundState) IsPrepared() bool {
	return s.prepared
}

func (s *RoundState) IsCommitted() bool {
	return s.committed
}

func (s *RoundState) PrepareCount() int {
	return s.prepares.len()
}

func (s *RoundState) CommitCount() int {
	return s.commits.len()
}

func (s *RoundState) CommitSeals() [][]byte {
	seals := make([][]byte, 0, s.commits.len())
	for _, commit := range s.commits.list {
		seals = append(seals, commit.Payload().CommitSeal)
	}
	return seals
}

// ConstructPreparedCertificate snapshots the proposal and its prepares.
// It returns nil unless the round is prepared.
func (s *RoundState) ConstructPreparedCertificate() *messages.PreparedCertificate {
	if !s.prepared {
		return nil
	}
	return messages.NewPreparedCertificate(s.proposal, s.prepares.all())
}

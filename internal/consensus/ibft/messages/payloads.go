package messages

import (
	"fmt"

	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
)

type MessageCode uint64

const (
	ProposalCode MessageCode = iota
	PrepareCode
	CommitCode
	RoundChangeCode
	NewRoundCode
)

func (c MessageCode) String() string {
	switch c {
	case ProposalCode:
		return "Proposal"
	case PrepareCode:
		return "Prepare"
	case CommitCode:
		return "Commit"
	case RoundChangeCode:
		return "RoundChange"
	case NewRoundCode:
		return "NewRound"
	}
	return fmt.Sprintf("Unknown(%d)", uint64(c))
}

// Payload is the signed content of a consensus message.
type Payload interface {
	RoundIdentifier() ConsensusRoundIdentifier
	MessageCode() MessageCode
}

type ProposalPayload struct {
	Round ConsensusRoundIdentifier
	Block *types.Block
}

func (p ProposalPayload) RoundIdentifier() ConsensusRoundIdentifier { return p.Round }
func (p ProposalPayload) MessageCode() MessageCode                  { return ProposalCode }

type PreparePayload struct {
	Round  ConsensusRoundIdentifier
	Digest common.Hash
}

func (p PreparePayload) RoundIdentifier() ConsensusRoundIdentifier { return p.Round }
func (p PreparePayload) MessageCode() MessageCode                  { return PrepareCode }

type CommitPayload struct {
	Round      ConsensusRoundIdentifier
	Digest     common.Hash
	CommitSeal []byte
}

func (p CommitPayload) RoundIdentifier() ConsensusRoundIdentifier { return p.Round }
func (p CommitPayload) MessageCode() MessageCode                  { return CommitCode }

// RoundChangePayload asks to move to Round, carrying the sender's latest prepared certificate if any.
type RoundChangePayload struct {
	Round               ConsensusRoundIdentifier
	PreparedCertificate *PreparedCertificate `rlp:"nil"`
}

func (p RoundChangePayload) RoundIdentifier() ConsensusRoundIdentifier { return p.Round }
func (p RoundChangePayload) MessageCode() MessageCode                  { return RoundChangeCode }

// NewRoundPayload is sent by the proposer of Round to justify its proposal.
type NewRoundPayload struct {
	Round                  ConsensusRoundIdentifier
	RoundChangeCertificate *RoundChangeCertificate
	Proposal               *SignedData[ProposalPayload]
}

func (p NewRoundPayload) RoundIdentifier() ConsensusRoundIdentifier { return p.Round }
func (p NewRoundPayload) MessageCode() MessageCode                  { return NewRoundCode }

type (
	Proposal    = SignedData[ProposalPayload]
	Prepare     = SignedData[PreparePayload]
	Commit      = SignedData[CommitPayload]
	RoundChange = SignedData[RoundChangePayload]
	NewRound    = SignedData[NewRoundPayload]
)

package messages

import (
	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
)

// MessageFactory creates messages signed by the local node.
type MessageFactory struct {
	key     crypto.PrivateKey
	address common.Address
}

func NewMessageFactory(key crypto.PrivateKey) *MessageFactory {
	return &MessageFactory{key: key, address: crypto.PubkeyToAddress(key)}
}

func (f *MessageFactory) Address() common.Address {
	return f.address
}

func (f *MessageFactory) CreateProposal(round ConsensusRoundIdentifier, block *types.Block) (*Proposal, error) {
	return Sign(ProposalPayload{Round: round, Block: block}, f.key)
}

func (f *MessageFactory) CreatePrepare(round ConsensusRoundIdentifier, digest common.Hash) (*Prepare, error) {
	return Sign(PreparePayload{Round: round, Digest: digest}, f.key)
}

func (f *MessageFactory) CreateCommit(round ConsensusRoundIdentifier, digest common.Hash, commitSeal []byte) (*Commit, error) {
	return Sign(CommitPayload{Round: round, Digest: digest, CommitSeal: commitSeal}, f.key)
}

func (f *MessageFactory) CreateRoundChange(round ConsensusRoundIdentifier, pc *PreparedCertificate) (*RoundChange, error) {
	return Sign(RoundChangePayload{Round: round, PreparedCertificate: pc}, f.key)
}

func (f *MessageFactory) CreateNewRound(
	round ConsensusRoundIdentifier, rcc *RoundChangeCertificate, proposal *Proposal,
) (*NewRound, error) {
	return Sign(NewRoundPayload{Round: round, RoundChangeCertificate: rcc, Proposal: proposal}, f.key)
}

// CreateCommitSeal signs the digest of a proposed block.
func (f *MessageFactory) CreateCommitSeal(digest common.Hash) ([]byte, error) {
	return crypto.Sign(digest, f.key)
}

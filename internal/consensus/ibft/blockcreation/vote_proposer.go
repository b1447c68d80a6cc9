package blockcreation

import (
	"bytes"
	"slices"
	"sync"

	"github.com/NilFoundation/ibft/internal/consensus/ibft"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
)

// VoteProposer holds the votes the local validator wants to cast. Each proposed
// block carries at most one of them, taken in turns.
type VoteProposer struct {
	mu        sync.Mutex
	proposals map[common.Address]types.VoteType // +checklocks:mu
	position  int                               // +checklocks:mu
}

func NewVoteProposer() *VoteProposer {
	return &VoteProposer{
		proposals: make(map[common.Address]types.VoteType),
	}
}

func (p *VoteProposer) Auth(address common.Address) {
	p.set(address, types.VoteAdd)
}

func (p *VoteProposer) Drop(address common.Address) {
	p.set(address, types.VoteDrop)
}

func (p *VoteProposer) set(address common.Address, voteType types.VoteType) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.proposals[address] = voteType
}

func (p *VoteProposer) Discard(address common.Address) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.proposals, address)
}

func (p *VoteProposer) Proposals() map[common.Address]types.VoteType {
	p.mu.Lock()
	defer p.mu.Unlock()

	result := make(map[common.Address]types.VoteType, len(p.proposals))
	for address, voteType := range p.proposals {
		result[address] = voteType
	}
	return result
}

// GetVote returns the next vote that would still change something: adding a
// non-validator or dropping a validator, not already cast by the local node.
func (p *VoteProposer) GetVote(local common.Address, tally *ibft.VoteTally) *types.Vote {
	p.mu.Lock()
	defer p.mu.Unlock()

	candidates := make([]types.Vote, 0, len(p.proposals))
	for address, voteType := range p.proposals {
		vote := types.Vote{Recipient: address, Type: voteType}
		if tally.IsValidator(address) == (voteType == types.VoteAdd) {
			continue
		}
		if tally.HasVoted(local, vote) {
			continue
		}
		candidates = append(candidates, vote)
	}
	if len(candidates) == 0 {
		return nil
	}

	slices.SortFunc(candidates, func(a, b types.Vote) int {
		return bytes.Compare(a.Recipient[:], b.Recipient[:])
	})
	vote := candidates[p.position%len(candidates)]
	p.position++
	return &vote
}

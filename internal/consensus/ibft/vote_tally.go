package ibft

import (
	"bytes"
	"slices"
	"sync"

	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
)

type voterSet = map[common.Address]struct{}

// VoteTally tracks the validator set and the outstanding votes to change it.
// A candidate is added or dropped as soon as more than half of the validators voted for it.
type VoteTally struct {
	mu          sync.RWMutex
	validators  voterSet                    // +checklocks:mu
	addVotes    map[common.Address]voterSet // +checklocks:mu
	removeVotes map[common.Address]voterSet // +checklocks:mu
}

var _ ValidatorProvider = (*VoteTally)(nil)

func NewVoteTally(validators []common.Address) *VoteTally {
	t := &VoteTally{}
	t.SetValidators(validators)
	return t
}

// Validators returns the current validators sorted by address.
func (t *VoteTally) Validators() []common.Address {
	t.mu.RLock()
	defer t.mu.RUnlock()

	result := make([]common.Address, 0, len(t.validators))
	for v := range t.validators {
		result = append(result, v)
	}
	slices.SortFunc(result, func(a, b common.Address) int {
		return bytes.Compare(a[:], b[:])
	})
	return result
}

func (t *VoteTally) IsValidator(address common.Address) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.validators[address]
	return ok
}

// SetValidators replaces the validator set and discards all outstanding votes.
func (t *VoteTally) SetValidators(validators []common.Address) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.validators = make(voterSet, len(validators))
	for _, v := range validators {
		t.validators[v] = struct{}{}
	}
	t.discardVotesLocked()
}

func (t *VoteTally) DiscardOutstandingVotes() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.discardVotesLocked()
}

// +checklocks:t.mu
func (t *VoteTally) discardVotesLocked() {
	t.addVotes = make(map[common.Address]voterSet)
	t.removeVotes = make(map[common.Address]voterSet)
}

// AddVote records the vote of a block proposer. It reports whether the vote
// changed the validator set.
func (t *VoteTally) AddVote(proposer common.Address, vote types.Vote) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	candidate := vote.Recipient
	adds := votersOf(t.addVotes, candidate)
	removes := votersOf(t.removeVotes, candidate)

	if vote.Type == types.VoteAdd {
		adds[proposer] = struct{}{}
		delete(removes, proposer)
	} else {
		removes[proposer] = struct{}{}
		delete(adds, proposer)
	}

	threshold := len(t.validators)/2 + 1
	switch {
	case len(adds) >= threshold:
		t.validators[candidate] = struct{}{}
		delete(t.addVotes, candidate)
		delete(t.removeVotes, candidate)
		return true
	case len(removes) >= threshold:
		delete(t.validators, candidate)
		delete(t.addVotes, candidate)
		delete(t.removeVotes, candidate)
		for _, voters := range t.addVotes {
			delete(voters, candidate)
		}
		for _, voters := range t.removeVotes {
			delete(voters, candidate)
		}
		return true
	}
	return false
}

// HasVoted reports whether the voter's outstanding vote for the candidate is of the given type.
func (t *VoteTally) HasVoted(voter common.Address, vote types.Vote) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	votes := t.removeVotes
	if vote.Type == types.VoteAdd {
		votes = t.addVotes
	}
	_, ok := votes[vote.Recipient][voter]
	return ok
}

func votersOf(votes map[common.Address]voterSet, candidate common.Address) voterSet {
	voters, ok := votes[candidate]
	if !ok {
		voters = make(voterSet)
		votes[candidate] = voters
	}
	return voters
}

func (t *VoteTally) Copy() *VoteTally {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cpy := &VoteTally{
		validators:  copyVoters(t.validators),
		addVotes:    make(map[common.Address]voterSet, len(t.addVotes)),
		removeVotes: make(map[common.Address]voterSet, len(t.removeVotes)),
	}
	for candidate, voters := range t.addVotes {
		cpy.addVotes[candidate] = copyVoters(voters)
	}
	for candidate, voters := range t.removeVotes {
		cpy.removeVotes[candidate] = copyVoters(voters)
	}
	return cpy
}

func copyVoters(voters voterSet) voterSet {
	cpy := make(voterSet, len(voters))
	for v := range voters {
		cpy[v] = struct{}{}
	}
	return cpy
}

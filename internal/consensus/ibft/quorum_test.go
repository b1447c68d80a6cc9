package ibft

import (
	"testing"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestQuorum(t *testing.T) {
	t.Parallel()

	for n, quorum := range map[int]int{1: 1, 2: 2, 3: 3, 4: 3, 5: 4, 6: 5, 7: 5, 10: 7} {
		assert.Equal(t, quorum, CalculateRequiredValidatorQuorum(n), "validators: %d", n)
	}
	assert.Equal(t, 2, PrepareMessageCountForQuorum(3))
}

func TestQuorumToleratesFaults(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 1000).Draw(t, "validators")
		quorum := CalculateRequiredValidatorQuorum(n)
		faulty := n - quorum

		if quorum > n {
			t.Fatalf("quorum %d exceeds validators %d", quorum, n)
		}
		// Any two quorums intersect in more than the faulty validators.
		if 2*quorum-n <= faulty {
			t.Fatalf("quorums of %d among %d do not overlap in an honest validator", quorum, n)
		}
	})
}

func addresses(n int) []common.Address {
	result := make([]common.Address, n)
	for i := range result {
		result[i] = common.BytesToAddress([]byte{byte(i + 1)})
	}
	return result
}

func TestProposerRotation(t *testing.T) {
	t.Parallel()

	rapid.Check(t, func(t *rapid.T) {
		validators := addresses(rapid.IntRange(1, 20).Draw(t, "validators"))
		height := rapid.Uint64Range(0, 1<<40).Draw(t, "height")
		round := rapid.Uint32Range(0, 1000).Draw(t, "round")

		id := messages.NewRoundIdentifier(height, round)
		proposer := SelectProposer(id, validators)
		expected := validators[(height+uint64(round))%uint64(len(validators))]
		if proposer != expected {
			t.Fatalf("unexpected proposer for %s: %s", id, proposer)
		}

		// Consecutive rounds of a height visit every validator.
		seen := make(map[common.Address]bool)
		for r := range uint32(len(validators)) {
			seen[SelectProposer(messages.NewRoundIdentifier(height, round+r), validators)] = true
		}
		if len(seen) != len(validators) {
			t.Fatalf("only %d of %d validators propose", len(seen), len(validators))
		}
	})
}

func TestProposerSelector(t *testing.T) {
	t.Parallel()

	validators := addresses(4)
	selector := NewProposerSelector(NewVoteTally([]common.Address{validators[3], validators[1], validators[0], validators[2]}))

	assert.Equal(t, validators[1], selector.SelectProposerForRound(messages.NewRoundIdentifier(1, 0)))
	assert.Equal(t, validators[2], selector.SelectProposerForRound(messages.NewRoundIdentifier(1, 1)))
	assert.Equal(t, validators[0], selector.SelectProposerForRound(messages.NewRoundIdentifier(2, 2)))
}

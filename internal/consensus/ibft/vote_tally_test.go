package ibft

import (
	"context"
	"fmt"
	"testing"

	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVoteTallyAddValidator(t *testing.T) {
	t.Parallel()

	validators := addresses(4)
	candidate := common.HexToAddress("0xcafe")
	tally := NewVoteTally(validators)

	vote := types.Vote{Recipient: candidate, Type: types.VoteAdd}
	assert.False(t, tally.AddVote(validators[0], vote))
	assert.False(t, tally.AddVote(validators[0], vote), "repeated vote must not count twice")
	assert.False(t, tally.AddVote(validators[1], vote))
	assert.False(t, tally.IsValidator(candidate))

	assert.True(t, tally.AddVote(validators[2], vote))
	assert.True(t, tally.IsValidator(candidate))
	assert.Len(t, tally.Validators(), 5)
}

func TestVoteTallyDropValidator(t *testing.T) {
	t.Parallel()

	validators := addresses(3)
	tally := NewVoteTally(validators)
	candidate := common.HexToAddress("0xcafe")

	// validators[2] voted for a candidate before being dropped; its vote goes away with it.
	tally.AddVote(validators[2], types.Vote{Recipient: candidate, Type: types.VoteAdd})

	drop := types.Vote{Recipient: validators[2], Type: types.VoteDrop}
	assert.False(t, tally.AddVote(validators[0], drop))
	assert.True(t, tally.AddVote(validators[1], drop))
	assert.Equal(t, validators[:2], tally.Validators())

	add := types.Vote{Recipient: candidate, Type: types.VoteAdd}
	assert.False(t, tally.AddVote(validators[0], add))
	assert.True(t, tally.AddVote(validators[1], add))
}

func TestVoteTallyChangedMind(t *testing.T) {
	t.Parallel()

	validators := addresses(4)
	tally := NewVoteTally(validators)
	candidate := common.HexToAddress("0xcafe")

	tally.AddVote(validators[0], types.Vote{Recipient: candidate, Type: types.VoteAdd})
	tally.AddVote(validators[1], types.Vote{Recipient: candidate, Type: types.VoteAdd})
	tally.AddVote(validators[1], types.Vote{Recipient: candidate, Type: types.VoteDrop})
	assert.False(t, tally.AddVote(validators[2], types.Vote{Recipient: candidate, Type: types.VoteAdd}))

	cpy := tally.Copy()
	tally.DiscardOutstandingVotes()
	assert.False(t, tally.AddVote(validators[3], types.Vote{Recipient: candidate, Type: types.VoteAdd}))
	assert.True(t, cpy.AddVote(validators[3], types.Vote{Recipient: candidate, Type: types.VoteAdd}))
}

type memoryChain []*types.Header

func (c memoryChain) ChainHeight() uint64 {
	return uint64(len(c) - 1)
}

func (c memoryChain) GetHeaderByNumber(_ context.Context, number uint64) (*types.Header, error) {
	if number >= uint64(len(c)) {
		return nil, fmt.Errorf("no header %d", number)
	}
	return c[number], nil
}

func makeHeader(t *testing.T, number uint64, coinbase common.Address, validators []common.Address, vote *types.Vote) *types.Header {
	t.Helper()
	extra, err := (&types.ExtraData{Validators: validators, Vote: vote}).Encode()
	require.NoError(t, err)
	return &types.Header{Number: number, Coinbase: coinbase, Extra: extra}
}

func TestVoteTallyUpdater(t *testing.T) {
	t.Parallel()

	validators := addresses(2)
	candidate := common.HexToAddress("0xcafe")
	add := &types.Vote{Recipient: candidate, Type: types.VoteAdd}

	chain := memoryChain{
		makeHeader(t, 0, common.Address{}, validators, nil),
		makeHeader(t, 1, validators[0], validators, add),
		makeHeader(t, 2, validators[1], validators, add),
	}

	updater := NewVoteTallyUpdater(100)
	tally, err := updater.BuildVoteTallyFromChain(context.Background(), chain)
	require.NoError(t, err)
	assert.True(t, tally.IsValidator(candidate))

	// An epoch block resets the set to the one it lists.
	require.NoError(t, updater.UpdateForBlock(makeHeader(t, 100, validators[0], validators, add), tally))
	assert.Equal(t, validators, tally.Validators())

	assert.Error(t, updater.UpdateForBlock(&types.Header{Number: 101, Extra: []byte{0x01}}, tally))
}

func TestVoteTallyUpdaterStartsAtEpoch(t *testing.T) {
	t.Parallel()

	old := addresses(2)
	current := addresses(3)
	chain := memoryChain{
		makeHeader(t, 0, common.Address{}, old, nil),
		makeHeader(t, 1, old[0], old, nil),
		makeHeader(t, 2, old[1], current, nil),
		makeHeader(t, 3, current[2], current, nil),
	}

	tally, err := NewVoteTallyUpdater(2).BuildVoteTallyFromChain(context.Background(), chain)
	require.NoError(t, err)
	assert.Equal(t, current, tally.Validators())
}

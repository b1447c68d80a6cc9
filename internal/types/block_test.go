package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testValidators = []common.Address{
	common.HexToAddress("0x1111111111111111111111111111111111111111"),
	common.HexToAddress("0x2222222222222222222222222222222222222222"),
	common.HexToAddress("0x3333333333333333333333333333333333333333"),
}

func newTestBlock(t *testing.T, round uint32, vote *Vote) *Block {
	t.Helper()

	extra := &ExtraData{
		Validators: testValidators,
		Vote:       vote,
		Round:      round,
	}
	copy(extra.Vanity[:], "vanity")
	encoded, err := extra.Encode()
	require.NoError(t, err)

	txs := Transactions{{
		From:  testValidators[0],
		Nonce: 1,
		To:    testValidators[1],
		Value: uint256.NewInt(10),
	}}
	return NewBlock(&Header{
		ParentHash: common.HexToHash("0x01"),
		Coinbase:   testValidators[0],
		Number:     1,
		GasLimit:   5000,
		Timestamp:  100,
		TxHash:     txs.Hash(),
		Extra:      encoded,
	}, &Body{Transactions: txs})
}

func TestExtraDataRoundTrip(t *testing.T) {
	t.Parallel()

	vote := &Vote{Recipient: common.HexToAddress("0x4444444444444444444444444444444444444444"), Type: VoteAdd}
	block := newTestBlock(t, 3, vote)

	extra, err := block.Header.ExtraData()
	require.NoError(t, err)
	assert.Equal(t, testValidators, extra.Validators)
	assert.Equal(t, uint32(3), extra.Round)
	require.NotNil(t, extra.Vote)
	assert.Equal(t, *vote, *extra.Vote)
	assert.Equal(t, "vanity", string(extra.Vanity[:6]))

	noVote := newTestBlock(t, 0, nil)
	extra, err = noVote.Header.ExtraData()
	require.NoError(t, err)
	assert.Nil(t, extra.Vote)
}

func TestDecodeExtraDataRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := DecodeExtraData([]byte{0x01, 0x02})
	require.ErrorIs(t, err, ErrInvalidExtraData)

	bad, err := (&ExtraData{Vote: &Vote{Type: VoteType(7)}}).Encode()
	require.NoError(t, err)
	_, err = DecodeExtraData(bad)
	require.ErrorIs(t, err, ErrInvalidExtraData)
}

func TestHashIgnoresRoundAndSeals(t *testing.T) {
	t.Parallel()

	block := newTestBlock(t, 0, nil)

	reproposed, err := ReplaceRound(block, 2)
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), reproposed.Hash())
	assert.NotEqual(t, block.SealHash(), reproposed.SealHash())

	back, err := ReplaceRound(reproposed, 0)
	require.NoError(t, err)
	assert.Equal(t, block.SealHash(), back.SealHash())

	sealed, err := SealBlock(block, [][]byte{{1, 2, 3}, {4, 5, 6}})
	require.NoError(t, err)
	assert.Equal(t, block.Hash(), sealed.Hash())
	assert.Equal(t, block.SealHash(), sealed.SealHash())

	extra, err := sealed.Header.ExtraData()
	require.NoError(t, err)
	assert.Len(t, extra.Seals, 2)

	original, err := block.Header.ExtraData()
	require.NoError(t, err)
	assert.Empty(t, original.Seals)
}

func TestHashDependsOnContent(t *testing.T) {
	t.Parallel()

	block := newTestBlock(t, 0, nil)
	other := NewBlock(block.Header.Copy(), block.Body)
	other.Header.Timestamp++

	assert.NotEqual(t, block.Hash(), other.Hash())
	assert.NotEqual(t, block.SealHash(), other.SealHash())
}

func TestBlockRLP(t *testing.T) {
	t.Parallel()

	block := newTestBlock(t, 1, &Vote{Recipient: testValidators[2], Type: VoteDrop})
	data, err := rlp.EncodeToBytes(block)
	require.NoError(t, err)

	var decoded Block
	require.NoError(t, rlp.DecodeBytes(data, &decoded))
	assert.Equal(t, block.Hash(), decoded.Hash())
	assert.Equal(t, block.SealHash(), decoded.SealHash())
	require.Len(t, decoded.Body.Transactions, 1)
	assert.Equal(t, block.Body.Transactions.Hash(), decoded.Body.Transactions.Hash())
	assert.Equal(t, uint64(10), decoded.Body.Transactions[0].Value.Uint64())
}

func TestGenesisBlock(t *testing.T) {
	t.Parallel()

	genesis, err := NewGenesisBlock(testValidators, 1000, 8000, []byte("ibft"))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), genesis.Number())

	extra, err := genesis.Header.ExtraData()
	require.NoError(t, err)
	assert.Equal(t, testValidators, extra.Validators)
	assert.Equal(t, Transactions(nil).Hash(), genesis.Header.TxHash)

	again, err := NewGenesisBlock(testValidators, 1000, 8000, []byte("ibft"))
	require.NoError(t, err)
	assert.Equal(t, genesis.Hash(), again.Hash())
}

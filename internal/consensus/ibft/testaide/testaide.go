// Package testaide builds validator keys, chains and blocks for consensus tests.
package testaide

import (
	"bytes"
	"slices"
	"testing"

	"github.com/NilFoundation/ibft/internal/consensus/ibft/messages"
	"github.com/NilFoundation/ibft/internal/crypto"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

const (
	GenesisTimestamp   = 1_000
	BlockPeriodSeconds = 3
	GasLimit           = 30_000_000
)

type Validator struct {
	Key     crypto.PrivateKey
	Address common.Address
	Factory *messages.MessageFactory
}

// NewValidators generates n validators ordered by address.
func NewValidators(t *testing.T, n int) []*Validator {
	t.Helper()

	validators := make([]*Validator, n)
	for i := range validators {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		validators[i] = &Validator{
			Key:     key,
			Address: crypto.PubkeyToAddress(key),
			Factory: messages.NewMessageFactory(key),
		}
	}
	slices.SortFunc(validators, func(a, b *Validator) int {
		return bytes.Compare(a.Address[:], b.Address[:])
	})
	return validators
}

func Addresses(validators []*Validator) []common.Address {
	result := make([]common.Address, len(validators))
	for i, v := range validators {
		result[i] = v.Address
	}
	return result
}

// Find returns the validator with the given address.
func Find(t *testing.T, validators []*Validator, address common.Address) *Validator {
	t.Helper()

	i := slices.IndexFunc(validators, func(v *Validator) bool {
		return v.Address == address
	})
	require.GreaterOrEqual(t, i, 0, "unknown validator %s", address)
	return validators[i]
}

func NewGenesis(t *testing.T, validators []common.Address) *types.Block {
	t.Helper()

	genesis, err := types.NewGenesisBlock(validators, GenesisTimestamp, GasLimit, []byte("test"))
	require.NoError(t, err)
	return genesis
}

// NewBlock builds a block on top of parent that passes the header rules.
func NewBlock(
	t *testing.T,
	parent *types.Header,
	proposer common.Address,
	validators []common.Address,
	round uint32,
	txs types.Transactions,
) *types.Block {
	t.Helper()

	extra, err := (&types.ExtraData{Validators: validators, Round: round}).Encode()
	require.NoError(t, err)

	header := &types.Header{
		ParentHash: parent.Hash(),
		Coinbase:   proposer,
		Number:     parent.Number + 1,
		GasLimit:   parent.GasLimit,
		Timestamp:  parent.Timestamp + BlockPeriodSeconds,
		TxHash:     txs.Hash(),
		Extra:      extra,
	}
	return types.NewBlock(header, &types.Body{Transactions: txs})
}

// CommitSeals signs the block's seal hash by each of the validators.
func CommitSeals(t *testing.T, block *types.Block, validators []*Validator) [][]byte {
	t.Helper()

	seals := make([][]byte, len(validators))
	for i, v := range validators {
		seal, err := v.Factory.CreateCommitSeal(block.SealHash())
		require.NoError(t, err)
		seals[i] = seal
	}
	return seals
}

package types

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

type Header struct {
	ParentHash common.Hash
	Coinbase   common.Address
	Number     uint64
	GasLimit   uint64
	GasUsed    uint64
	Timestamp  uint64
	TxHash     common.Hash
	Extra      []byte
}

// Hash returns the on-chain identity of the block. Commit seals and the
// proposal round are excluded, so a block re-proposed in a later round and
// later sealed keeps the same hash.
func (h *Header) Hash() common.Hash {
	return h.hashWithExtra(func(extra *ExtraData) {
		extra.Seals = nil
		extra.Round = 0
	})
}

// SealHash returns the digest validators prepare, commit and seal.
// Only the commit seals are excluded.
func (h *Header) SealHash() common.Hash {
	return h.hashWithExtra(func(extra *ExtraData) {
		extra.Seals = nil
	})
}

func (h *Header) hashWithExtra(mutate func(*ExtraData)) common.Hash {
	cpy := *h
	if extra, err := DecodeExtraData(h.Extra); err == nil {
		mutate(extra)
		if encoded, err := extra.Encode(); err == nil {
			cpy.Extra = encoded
		}
	}
	return rlpHash(&cpy)
}

func (h *Header) Copy() *Header {
	cpy := *h
	cpy.Extra = common.CopyBytes(h.Extra)
	return &cpy
}

func (h *Header) ExtraData() (*ExtraData, error) {
	return DecodeExtraData(h.Extra)
}

func (h *Header) String() string {
	return fmt.Sprintf("Header{number: %d, hash: %s, parent: %s, coinbase: %s, timestamp: %d}",
		h.Number, h.Hash().Hex(), h.ParentHash.Hex(), h.Coinbase.Hex(), h.Timestamp)
}

type Body struct {
	Transactions Transactions
}

type Block struct {
	Header *Header
	Body   *Body
}

func NewBlock(header *Header, body *Body) *Block {
	if body == nil {
		body = &Body{}
	}
	return &Block{Header: header, Body: body}
}

func (b *Block) Hash() common.Hash {
	return b.Header.Hash()
}

func (b *Block) SealHash() common.Hash {
	return b.Header.SealHash()
}

func (b *Block) Number() uint64 {
	return b.Header.Number
}

func (b *Block) String() string {
	return fmt.Sprintf("Block{%s, txs: %d}", b.Header, len(b.Body.Transactions))
}

// ReplaceRound returns a copy of the block whose extra data carries the given round.
func ReplaceRound(block *Block, round uint32) (*Block, error) {
	return replaceExtra(block, func(extra *ExtraData) {
		extra.Round = round
	})
}

// SealBlock returns a copy of the block with the commit seals stored in its extra data.
func SealBlock(block *Block, seals [][]byte) (*Block, error) {
	return replaceExtra(block, func(extra *ExtraData) {
		extra.Seals = seals
	})
}

func replaceExtra(block *Block, mutate func(*ExtraData)) (*Block, error) {
	extra, err := block.Header.ExtraData()
	if err != nil {
		return nil, err
	}
	extra = extra.Copy()
	mutate(extra)

	header := block.Header.Copy()
	if header.Extra, err = extra.Encode(); err != nil {
		return nil, err
	}
	return NewBlock(header, block.Body), nil
}

// NewGenesisBlock builds the block at height 0 listing the initial validators.
func NewGenesisBlock(validators []common.Address, timestamp, gasLimit uint64, vanity []byte) (*Block, error) {
	extra := &ExtraData{Validators: validators}
	copy(extra.Vanity[:], vanity)

	encoded, err := extra.Encode()
	if err != nil {
		return nil, err
	}
	header := &Header{
		Number:    0,
		GasLimit:  gasLimit,
		Timestamp: timestamp,
		TxHash:    Transactions(nil).Hash(),
		Extra:     encoded,
	}
	return NewBlock(header, &Body{}), nil
}

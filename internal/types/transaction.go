package types

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Transaction is an opaque value transfer carried in block bodies.
// Execution is performed by an external processor.
type Transaction struct {
	From  common.Address
	Nonce uint64
	To    common.Address
	Value *uint256.Int
	Data  []byte
}

func (tx *Transaction) Hash() common.Hash {
	return rlpHash(tx)
}

type Transactions []*Transaction

// Hash returns the commitment to the ordered transaction list stored in Header.TxHash.
func (txs Transactions) Hash() common.Hash {
	hashes := make([]common.Hash, len(txs))
	for i, tx := range txs {
		hashes[i] = tx.Hash()
	}
	return rlpHash(hashes)
}

type ReceiptStatus uint64

const (
	ReceiptStatusFailed ReceiptStatus = iota
	ReceiptStatusSuccessful
)

type Receipt struct {
	TxHash  common.Hash
	Status  ReceiptStatus
	GasUsed uint64
}

type Receipts []*Receipt

package blockcreation

import (
	"github.com/NilFoundation/ibft/internal/types"
)

const (
	txGas         = 21_000
	txDataByteGas = 16
)

// IntrinsicGas is the gas charged for including the transaction in a block.
func IntrinsicGas(tx *types.Transaction) uint64 {
	return txGas + uint64(len(tx.Data))*txDataByteGas
}

// ApplyTransactions selects the prefix of txs that fits into gasLimit and
// returns it with the receipts of its transactions.
func ApplyTransactions(txs types.Transactions, gasLimit uint64) (types.Transactions, types.Receipts, uint64) {
	var (
		applied  = make(types.Transactions, 0, len(txs))
		receipts = make(types.Receipts, 0, len(txs))
		gasUsed  uint64
	)
	for _, tx := range txs {
		gas := IntrinsicGas(tx)
		if gasUsed+gas > gasLimit {
			break
		}
		gasUsed += gas
		applied = append(applied, tx)
		receipts = append(receipts, &types.Receipt{
			TxHash:  tx.Hash(),
			Status:  types.ReceiptStatusSuccessful,
			GasUsed: gas,
		})
	}
	return applied, receipts, gasUsed
}

// ReceiptsFor rebuilds the receipts of a block's transactions.
func ReceiptsFor(block *types.Block) types.Receipts {
	_, receipts, _ := ApplyTransactions(block.Body.Transactions, ^uint64(0))
	return receipts
}

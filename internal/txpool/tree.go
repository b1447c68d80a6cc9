package txpool

import (
	"bytes"
	"math"

	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/btree"
)

// bySenderAndNonce keeps pending transactions ordered by sender, then nonce,
// so block bodies list each sender's transactions in nonce order.
type bySenderAndNonce struct {
	tree   *btree.BTreeG[*types.Transaction]
	search *types.Transaction
}

func sortByNonceLess(a, b *types.Transaction) bool {
	if fromCmp := bytes.Compare(a.From.Bytes(), b.From.Bytes()); fromCmp != 0 {
		return fromCmp == -1
	}
	return a.Nonce < b.Nonce
}

func newBySenderAndNonce() *bySenderAndNonce {
	return &bySenderAndNonce{
		tree:   btree.NewG(32, sortByNonceLess),
		search: &types.Transaction{},
	}
}

func (b *bySenderAndNonce) get(from common.Address, nonce uint64) (*types.Transaction, bool) {
	s := b.search
	s.From = from
	s.Nonce = nonce
	return b.tree.Get(s)
}

// maxNonce returns the highest pending nonce of the sender.
func (b *bySenderAndNonce) maxNonce(from common.Address) (nonce uint64, ok bool) {
	s := b.search
	s.From = from
	s.Nonce = math.MaxUint64

	b.tree.DescendLessOrEqual(s, func(tx *types.Transaction) bool {
		if tx.From == from {
			nonce = tx.Nonce
			ok = true
		}
		return false
	})
	return nonce, ok
}

func (b *bySenderAndNonce) replaceOrInsert(tx *types.Transaction) (*types.Transaction, bool) {
	return b.tree.ReplaceOrInsert(tx)
}

func (b *bySenderAndNonce) delete(tx *types.Transaction) bool {
	_, ok := b.tree.Delete(tx)
	return ok
}

func (b *bySenderAndNonce) ascend(f func(*types.Transaction) bool) {
	b.tree.Ascend(f)
}

func (b *bySenderAndNonce) len() int {
	return b.tree.Len()
}

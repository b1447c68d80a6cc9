package txpool

import (
	"errors"
	"sync"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/blockchain"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
)

var (
	ErrPoolFull     = errors.New("transaction pool is full")
	ErrAlreadyKnown = errors.New("transaction already known")
	ErrNonceTaken   = errors.New("sender already has a pending transaction with this nonce")
	ErrMissingValue = errors.New("transaction value is missing")
)

// TxPool holds transactions waiting to be included in a proposed block.
type TxPool struct {
	cfg Config

	mu     sync.Mutex
	byHash map[common.Hash]*types.Transaction // +checklocks:mu
	all    *bySenderAndNonce                  // +checklocks:mu

	logger zerolog.Logger
}

func New(cfg Config) *TxPool {
	return &TxPool{
		cfg:    cfg,
		byHash: make(map[common.Hash]*types.Transaction),
		all:    newBySenderAndNonce(),
		logger: logging.NewLogger("txpool"),
	}
}

func (p *TxPool) Add(txs ...*types.Transaction) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for _, tx := range txs {
		if err := p.addLocked(tx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// +checklocks:p.mu
func (p *TxPool) addLocked(tx *types.Transaction) error {
	if tx.Value == nil {
		return ErrMissingValue
	}
	hash := tx.Hash()
	if _, ok := p.byHash[hash]; ok {
		return ErrAlreadyKnown
	}
	if _, ok := p.all.get(tx.From, tx.Nonce); ok {
		return ErrNonceTaken
	}
	if p.cfg.Size > 0 && p.all.len() >= p.cfg.Size {
		return ErrPoolFull
	}

	p.all.replaceOrInsert(tx)
	p.byHash[hash] = tx

	p.logger.Trace().
		Stringer(logging.FieldTransactionHash, hash).
		Stringer(logging.FieldTransactionFrom, tx.From).
		Uint64(logging.FieldTransactionNonce, tx.Nonce).
		Msg("Added transaction to pool")
	return nil
}

// Peek returns up to limit pending transactions ordered by sender and nonce.
func (p *TxPool) Peek(limit int) types.Transactions {
	if p.cfg.MaxTxsPerBlock > 0 && (limit <= 0 || limit > p.cfg.MaxTxsPerBlock) {
		limit = p.cfg.MaxTxsPerBlock
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	res := make(types.Transactions, 0, min(limit, p.all.len()))
	p.all.ascend(func(tx *types.Transaction) bool {
		if limit > 0 && len(res) >= limit {
			return false
		}
		res = append(res, tx)
		return true
	})
	return res
}

// NextNonce returns the nonce following the sender's highest pending transaction.
func (p *TxPool) NextNonce(from common.Address) (uint64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	nonce, ok := p.all.maxNonce(from)
	if !ok {
		return 0, false
	}
	return nonce + 1, true
}

func (p *TxPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.all.len()
}

// Remove drops transactions that were included in a block.
func (p *TxPool) Remove(txs types.Transactions) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	removed := 0
	for _, tx := range txs {
		hash := tx.Hash()
		pending, ok := p.byHash[hash]
		if !ok {
			continue
		}
		delete(p.byHash, hash)
		if p.all.delete(pending) {
			removed++
		}
	}
	return removed
}

// OnBlockAdded is a blockchain observer pruning included transactions.
func (p *TxPool) OnBlockAdded(event blockchain.BlockAddedEvent) {
	if removed := p.Remove(event.Block.Body.Transactions); removed > 0 {
		p.logger.Debug().
			Uint64(logging.FieldBlockNumber, event.Block.Number()).
			Int(logging.FieldCount, removed).
			Msg("Removed included transactions")
	}
}

package blockchain

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/NilFoundation/ibft/internal/db"
	"github.com/NilFoundation/ibft/internal/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog"
)

const headerCacheSize = 256

var (
	ErrUnknownParent    = errors.New("block parent is not the chain head")
	ErrInvalidNumber    = errors.New("block number does not follow the chain head")
	ErrGenesisMismatch  = errors.New("stored genesis does not match the configured one")
	ErrBlockNotFound    = errors.New("block not found")
	ErrReceiptsMismatch = errors.New("receipts do not match block transactions")
)

// BlockAddedEvent is delivered to observers after a block became the new chain head.
type BlockAddedEvent struct {
	Block    *types.Block
	Receipts types.Receipts
}

type BlockAddedObserver func(event BlockAddedEvent)

// Blockchain is a linear chain of blocks persisted in the database.
// Blocks are only ever appended on top of the current head.
type Blockchain struct {
	db db.DB

	mu   sync.RWMutex
	head *types.Header // +checklocks:mu

	headers *lru.Cache[common.Hash, *types.Header]

	observersMu    sync.Mutex
	observers      map[uint64]BlockAddedObserver // +checklocks:observersMu
	nextObserverId uint64                        // +checklocks:observersMu

	logger zerolog.Logger
}

// NewBlockchain opens the chain stored in the database, initializing it with
// the genesis block if the database is empty.
func NewBlockchain(ctx context.Context, database db.DB, genesis *types.Block) (*Blockchain, error) {
	headers, err := lru.New[common.Hash, *types.Header](headerCacheSize)
	if err != nil {
		return nil, err
	}

	bc := &Blockchain{
		db:        database,
		headers:   headers,
		observers: make(map[uint64]BlockAddedObserver),
		logger:    logging.NewLogger("blockchain"),
	}

	head, err := bc.readHead(ctx)
	switch {
	case errors.Is(err, db.ErrKeyNotFound):
		if err := bc.writeBlock(ctx, genesis, nil); err != nil {
			return nil, fmt.Errorf("failed to store genesis: %w", err)
		}
		head = genesis.Header
		bc.logger.Info().
			Stringer(logging.FieldBlockHash, genesis.Hash()).
			Msg("Initialized chain with genesis block")
	case err != nil:
		return nil, err
	default:
		stored, err := bc.GetHeaderByNumber(ctx, 0)
		if err != nil {
			return nil, err
		}
		if stored.Hash() != genesis.Hash() {
			return nil, fmt.Errorf("%w: stored %s, configured %s", ErrGenesisMismatch, stored.Hash(), genesis.Hash())
		}
	}

	bc.head = head
	return bc, nil
}

func (bc *Blockchain) ChainHeadHeader() *types.Header {
	bc.mu.RLock()
	defer bc.mu.RUnlock()
	return bc.head
}

func (bc *Blockchain) ChainHeight() uint64 {
	return bc.ChainHeadHeader().Number
}

// AppendBlock stores the block as the new chain head and notifies observers.
func (bc *Blockchain) AppendBlock(ctx context.Context, block *types.Block, receipts types.Receipts) error {
	if receipts != nil && len(receipts) != len(block.Body.Transactions) {
		return fmt.Errorf("%w: %d receipts for %d transactions",
			ErrReceiptsMismatch, len(receipts), len(block.Body.Transactions))
	}

	bc.mu.Lock()
	head := bc.head
	if block.Header.ParentHash != head.Hash() {
		bc.mu.Unlock()
		return fmt.Errorf("%w: parent %s, head %s", ErrUnknownParent, block.Header.ParentHash, head.Hash())
	}
	if block.Number() != head.Number+1 {
		bc.mu.Unlock()
		return fmt.Errorf("%w: number %d, head %d", ErrInvalidNumber, block.Number(), head.Number)
	}
	if err := bc.writeBlock(ctx, block, receipts); err != nil {
		bc.mu.Unlock()
		return err
	}
	bc.head = block.Header
	bc.mu.Unlock()

	bc.logger.Debug().
		Uint64(logging.FieldBlockNumber, block.Number()).
		Stringer(logging.FieldBlockHash, block.Hash()).
		Msg("Appended block")

	bc.notify(BlockAddedEvent{Block: block, Receipts: receipts})
	return nil
}

// Observe registers an observer of appended blocks. The returned function unsubscribes it.
// Observers run synchronously on the appending goroutine and must not block.
func (bc *Blockchain) Observe(observer BlockAddedObserver) func() {
	bc.observersMu.Lock()
	defer bc.observersMu.Unlock()

	id := bc.nextObserverId
	bc.nextObserverId++
	bc.observers[id] = observer

	return func() {
		bc.observersMu.Lock()
		defer bc.observersMu.Unlock()
		delete(bc.observers, id)
	}
}

func (bc *Blockchain) notify(event BlockAddedEvent) {
	bc.observersMu.Lock()
	observers := make([]BlockAddedObserver, 0, len(bc.observers))
	for _, o := range bc.observers {
		observers = append(observers, o)
	}
	bc.observersMu.Unlock()

	for _, o := range observers {
		o(event)
	}
}

func (bc *Blockchain) GetHeaderByHash(ctx context.Context, hash common.Hash) (*types.Header, error) {
	if header, ok := bc.headers.Get(hash); ok {
		return header, nil
	}

	tx, err := bc.db.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	header, err := readRlp[types.Header](tx, db.HeaderTable, hash.Bytes())
	if err != nil {
		return nil, err
	}
	bc.headers.Add(hash, header)
	return header, nil
}

func (bc *Blockchain) GetHeaderByNumber(ctx context.Context, number uint64) (*types.Header, error) {
	hash, err := bc.getHashByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return bc.GetHeaderByHash(ctx, hash)
}

func (bc *Blockchain) GetBlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	hash, err := bc.getHashByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	header, err := bc.GetHeaderByHash(ctx, hash)
	if err != nil {
		return nil, err
	}

	tx, err := bc.db.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	body, err := readRlp[types.Body](tx, db.BodyTable, hash.Bytes())
	if err != nil {
		return nil, err
	}
	return types.NewBlock(header, body), nil
}

func (bc *Blockchain) GetReceipts(ctx context.Context, hash common.Hash) (types.Receipts, error) {
	tx, err := bc.db.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	receipts, err := readRlp[types.Receipts](tx, db.ReceiptsTable, hash.Bytes())
	if err != nil {
		return nil, err
	}
	return *receipts, nil
}

func (bc *Blockchain) getHashByNumber(ctx context.Context, number uint64) (common.Hash, error) {
	tx, err := bc.db.CreateRoTx(ctx)
	if err != nil {
		return common.Hash{}, err
	}
	defer tx.Rollback()

	value, err := tx.Get(db.BlockHashByNumberIndex, numberKey(number))
	if errors.Is(err, db.ErrKeyNotFound) {
		return common.Hash{}, fmt.Errorf("%w: number %d", ErrBlockNotFound, number)
	}
	if err != nil {
		return common.Hash{}, err
	}
	return common.BytesToHash(value), nil
}

func (bc *Blockchain) readHead(ctx context.Context) (*types.Header, error) {
	tx, err := bc.db.CreateRoTx(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	hash, err := tx.Get(db.LastBlockTable, []byte(db.LastBlockTable))
	if err != nil {
		return nil, err
	}
	return readRlp[types.Header](tx, db.HeaderTable, hash)
}

func (bc *Blockchain) writeBlock(ctx context.Context, block *types.Block, receipts types.Receipts) error {
	tx, err := bc.db.CreateRwTx(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	hash := block.Hash()
	if err := writeRlp(tx, db.HeaderTable, hash.Bytes(), block.Header); err != nil {
		return err
	}
	if err := writeRlp(tx, db.BodyTable, hash.Bytes(), block.Body); err != nil {
		return err
	}
	if err := writeRlp(tx, db.ReceiptsTable, hash.Bytes(), receipts); err != nil {
		return err
	}
	if err := tx.Put(db.BlockHashByNumberIndex, numberKey(block.Number()), hash.Bytes()); err != nil {
		return err
	}
	if err := tx.Put(db.LastBlockTable, []byte(db.LastBlockTable), hash.Bytes()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	bc.headers.Add(hash, block.Header)
	return nil
}

func numberKey(number uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, number)
}

func writeRlp(tx db.RwTx, table db.TableName, key []byte, value any) error {
	data, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.Put(table, key, data)
}

func readRlp[T any](tx db.RoTx, table db.TableName, key []byte) (*T, error) {
	data, err := tx.Get(table, key)
	if err != nil {
		return nil, err
	}
	var value T
	if err := rlp.DecodeBytes(data, &value); err != nil {
		return nil, fmt.Errorf("corrupted %s record: %w", table, err)
	}
	return &value, nil
}

package db

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/NilFoundation/ibft/common/logging"
	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

type badgerDB struct {
	db     *badger.DB
	logger zerolog.Logger
}

type BadgerDBOptions struct {
	Path         string        `yaml:"path"`
	DiscardRatio float64       `yaml:"gcDiscardRatio,omitempty"`
	GcFrequency  time.Duration `yaml:"gcFrequency,omitempty"`
}

func NewDefaultBadgerDBOptions() *BadgerDBOptions {
	return &BadgerDBOptions{
		Path:         "ibft.db",
		DiscardRatio: 0.5,
		GcFrequency:  time.Hour,
	}
}

type BadgerRoTx struct {
	tx *badger.Txn
}

type BadgerRwTx struct {
	*BadgerRoTx
}

type BadgerIter struct {
	iter        *badger.Iterator
	tablePrefix []byte
	toPrefix    []byte
}

// interfaces
var (
	_ RoTx = new(BadgerRoTx)
	_ RwTx = new(BadgerRwTx)
	_ DB   = new(badgerDB)
	_ Iter = new(BadgerIter)
)

func MakeKey(table TableName, key []byte) []byte {
	return append([]byte(table+":"), key...)
}

func NewBadgerDb(pathToDb string) (DB, error) {
	opts := badger.DefaultOptions(pathToDb).WithLogger(nil)
	return newBadgerDb(&opts)
}

func NewBadgerDbInMemory() (DB, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	return newBadgerDb(&opts)
}

func newBadgerDb(opts *badger.Options) (*badgerDB, error) {
	badgerInstance, err := badger.Open(*opts)
	if err != nil {
		return nil, err
	}

	return &badgerDB{db: badgerInstance, logger: logging.NewLogger("db")}, nil
}

func (db *badgerDB) Close() {
	if err := db.db.Close(); err != nil {
		db.logger.Error().Err(err).Msg("Failed to close badger")
	}
}

func (db *badgerDB) DropAll() error {
	return db.db.DropAll()
}

func (db *badgerDB) CreateRoTx(context.Context) (RoTx, error) {
	return &BadgerRoTx{tx: db.db.NewTransaction(false)}, nil
}

func (db *badgerDB) CreateRwTx(context.Context) (RwTx, error) {
	return &BadgerRwTx{&BadgerRoTx{tx: db.db.NewTransaction(true)}}, nil
}

func (db *badgerDB) LogGC(ctx context.Context, discardRatio float64, gcFrequency time.Duration) error {
	db.logger.Info().Msg("Starting badger log garbage collection...")
	ticker := time.NewTicker(gcFrequency)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			db.logger.Debug().Msg("Execute badger LogGC")
			var err error
			for ; err == nil; err = db.db.RunValueLogGC(discardRatio) {
			}
			if !errors.Is(err, badger.ErrNoRewrite) {
				db.logger.Error().Err(err).Msg("Error during badger LogGC")
				return err
			}
		case <-ctx.Done():
			db.logger.Info().Msg("Stopping badger log garbage collection...")
			return nil
		}
	}
}

func (tx *BadgerRwTx) Commit() error {
	return tx.tx.Commit()
}

func (tx *BadgerRoTx) Rollback() {
	tx.tx.Discard()
}

func (tx *BadgerRwTx) Put(tableName TableName, key, value []byte) error {
	return tx.tx.Set(MakeKey(tableName, key), value)
}

func (tx *BadgerRoTx) Get(tableName TableName, key []byte) ([]byte, error) {
	item, err := tx.tx.Get(MakeKey(tableName, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}

	return item.ValueCopy(nil)
}

func (tx *BadgerRoTx) Exists(tableName TableName, key []byte) (bool, error) {
	_, err := tx.tx.Get(MakeKey(tableName, key))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (tx *BadgerRwTx) Delete(tableName TableName, key []byte) error {
	return tx.tx.Delete(MakeKey(tableName, key))
}

func (tx *BadgerRoTx) Range(tableName TableName, from []byte, to []byte) (Iter, error) {
	var iter BadgerIter
	iter.iter = tx.tx.NewIterator(badger.DefaultIteratorOptions)

	iter.iter.Seek(MakeKey(tableName, from))
	iter.tablePrefix = []byte(tableName + ":")
	if to != nil {
		iter.toPrefix = MakeKey(tableName, to)
	}

	return &iter, nil
}

func (it *BadgerIter) HasNext() bool {
	if !it.iter.ValidForPrefix(it.tablePrefix) {
		return false
	}

	if it.toPrefix == nil {
		return true
	}

	if k := it.iter.Item().Key(); bytes.Compare(k, it.toPrefix) > 0 {
		return false
	}
	return true
}

func (it *BadgerIter) Next() ([]byte, []byte, error) {
	defer it.iter.Next() // Item() result is only valid until it.Next() gets called
	item := it.iter.Item()
	key := item.KeyCopy(nil)
	value, err := item.ValueCopy(nil)
	if err != nil {
		return nil, nil, err
	}
	return key[len(it.tablePrefix):], value, nil
}

func (it *BadgerIter) Close() {
	it.iter.Close()
}

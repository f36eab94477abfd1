// Package ledgerdb is the wallet's local mirror of the chain: blocks in
// order plus indexes over key images and output public keys.
package ledgerdb

import (
	"encoding/binary"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/pkg/errors"
	"go.etcd.io/bbolt"
	"os"
	"path/filepath"
)

var (
	bucketBlocks    = []byte("blocks")
	bucketKeyImages = []byte("key_images")
	bucketTxOuts    = []byte("txouts")
)

var (
	ErrNotFound      = errors.New("not found")
	ErrDiscontinuous = errors.New("block does not extend the ledger")
)

type DB struct {
	db *bbolt.DB
}

// TxOutLocation places an output within the ledger.
type TxOutLocation struct {
	BlockIndex  uint64
	OutputIndex uint64
	TxOut       *chain.TxOut
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o700); err != nil {
		return nil, errors.Wrap(err, "error creating ledger directory")
	}
	db, err := bbolt.Open(dbPath, 0o600, nil)
	if err != nil {
		return nil, errors.Wrap(err, "error opening ledger db")
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketBlocks, bucketKeyImages, bucketTxOuts} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return errors.Wrapf(err, "error creating bucket %s", name)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return errors.WithStack(d.db.Close())
}

// NumBlocks returns the ledger height, which is also the index of the next
// block to append.
func (d *DB) NumBlocks() (uint64, error) {
	var n uint64
	err := d.db.View(func(tx *bbolt.Tx) error {
		k, _ := tx.Bucket(bucketBlocks).Cursor().Last()
		if k != nil {
			n = binary.BigEndian.Uint64(k) + 1
		}
		return nil
	})
	return n, errors.WithStack(err)
}

func (d *DB) LastBlockID() (ucrypto.Hash, error) {
	var id ucrypto.Hash
	err := d.db.View(func(tx *bbolt.Tx) error {
		_, v := tx.Bucket(bucketBlocks).Cursor().Last()
		if v == nil {
			return nil
		}
		block, err := chain.NewBlockFromBytes(v)
		if err != nil {
			return err
		}
		id = block.ID
		return nil
	})
	return id, err
}

// AppendBlocks appends blocks in a single write. Each block must carry the
// next index and name the previous block as its parent.
func (d *DB) AppendBlocks(blocks []*chain.Block) error {
	if len(blocks) == 0 {
		return nil
	}
	return d.db.Update(func(tx *bbolt.Tx) error {
		bb := tx.Bucket(bucketBlocks)
		kb := tx.Bucket(bucketKeyImages)
		ob := tx.Bucket(bucketTxOuts)

		var next uint64
		var lastID ucrypto.Hash
		k, v := bb.Cursor().Last()
		if k != nil {
			next = binary.BigEndian.Uint64(k) + 1
			last, err := chain.NewBlockFromBytes(v)
			if err != nil {
				return err
			}
			lastID = last.ID
		}

		for _, block := range blocks {
			if block.Index != next {
				return errors.Wrapf(ErrDiscontinuous, "expected index %d, got %d", next, block.Index)
			}
			if next > 0 && !block.ParentID.Equal(lastID) {
				return errors.Wrapf(ErrDiscontinuous, "parent mismatch at index %d", block.Index)
			}
			if err := bb.Put(indexKey(block.Index), block.Bytes()); err != nil {
				return errors.WithStack(err)
			}
			for _, ki := range block.KeyImages {
				if err := kb.Put(ki[:], indexKey(block.Index)); err != nil {
					return errors.WithStack(err)
				}
			}
			for i, out := range block.Outputs {
				loc := make([]byte, 16)
				binary.BigEndian.PutUint64(loc[:8], block.Index)
				binary.BigEndian.PutUint64(loc[8:], uint64(i))
				if err := ob.Put(out.PublicKey[:], loc); err != nil {
					return errors.WithStack(err)
				}
			}
			lastID = block.ID
			next++
		}
		return nil
	})
}

func (d *DB) Block(index uint64) (*chain.Block, error) {
	var block *chain.Block
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketBlocks).Get(indexKey(index))
		if v == nil {
			return ErrNotFound
		}
		var err error
		block, err = chain.NewBlockFromBytes(v)
		return err
	})
	return block, err
}

// Blocks returns up to count blocks starting at start.
func (d *DB) Blocks(start uint64, count int) ([]*chain.Block, error) {
	var blocks []*chain.Block
	err := d.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketBlocks).Cursor()
		for k, v := c.Seek(indexKey(start)); k != nil && len(blocks) < count; k, v = c.Next() {
			block, err := chain.NewBlockFromBytes(v)
			if err != nil {
				return err
			}
			blocks = append(blocks, block)
		}
		return nil
	})
	return blocks, err
}

// KeyImageBlockIndex returns the block that published ki. The bool is false
// when the ledger has not seen it.
func (d *DB) KeyImageBlockIndex(ki ucrypto.KeyImage) (uint64, bool, error) {
	var idx uint64
	var found bool
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketKeyImages).Get(ki[:])
		if v != nil {
			idx = binary.BigEndian.Uint64(v)
			found = true
		}
		return nil
	})
	return idx, found, errors.WithStack(err)
}

func (d *DB) TxOutByPublicKey(pub ucrypto.PublicKey) (*TxOutLocation, error) {
	var loc *TxOutLocation
	err := d.db.View(func(tx *bbolt.Tx) error {
		v := tx.Bucket(bucketTxOuts).Get(pub[:])
		if v == nil {
			return ErrNotFound
		}
		blockIdx := binary.BigEndian.Uint64(v[:8])
		outIdx := binary.BigEndian.Uint64(v[8:])
		raw := tx.Bucket(bucketBlocks).Get(indexKey(blockIdx))
		if raw == nil {
			return errors.Wrap(ErrNotFound, "indexed block missing")
		}
		block, err := chain.NewBlockFromBytes(raw)
		if err != nil {
			return err
		}
		if outIdx >= uint64(len(block.Outputs)) {
			return errors.Wrap(ErrNotFound, "indexed output missing")
		}
		loc = &TxOutLocation{
			BlockIndex:  blockIdx,
			OutputIndex: outIdx,
			TxOut:       block.Outputs[outIdx],
		}
		return nil
	})
	return loc, err
}

func indexKey(index uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, index)
	return k
}

package ledgerdb

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/chain/chaintest"
	"github.com/stretchr/testify/require"
	"path/filepath"
	"testing"
)

func setupLedger(t *testing.T) *DB {
	db, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

func TestAppendAndQuery(t *testing.T) {
	db := setupLedger(t)
	net := chaintest.NewMockNetwork()
	addr := chain.NewRandomAccountKey().DefaultAddress()
	minted := net.MintTo(addr, 1000)
	net.MineBlock()
	net.MineTo(5)

	height, err := db.NumBlocks()
	require.NoError(t, err)
	require.EqualValues(t, 0, height)

	blocks, err := net.GetBlocks(0, 10)
	require.NoError(t, err)
	require.NoError(t, db.AppendBlocks(blocks[:2]))
	require.NoError(t, db.AppendBlocks(blocks[2:]))

	height, err = db.NumBlocks()
	require.NoError(t, err)
	require.EqualValues(t, 5, height)

	lastID, err := db.LastBlockID()
	require.NoError(t, err)
	require.Equal(t, blocks[4].ID, lastID)

	got, err := db.Blocks(1, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.EqualValues(t, 1, got[0].Index)
	require.Equal(t, blocks[1].ID, got[0].ID)

	loc, err := db.TxOutByPublicKey(minted.PublicKey)
	require.NoError(t, err)
	require.EqualValues(t, 1, loc.BlockIndex)
	require.EqualValues(t, 0, loc.OutputIndex)
	require.Equal(t, minted, loc.TxOut)

	_, err = db.Block(99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAppendRejectsDiscontinuousBlocks(t *testing.T) {
	db := setupLedger(t)
	net := chaintest.NewMockNetwork()
	net.MineTo(3)
	blocks, err := net.GetBlocks(0, 3)
	require.NoError(t, err)

	require.ErrorIs(t, db.AppendBlocks(blocks[1:]), ErrDiscontinuous)
	require.NoError(t, db.AppendBlocks(blocks[:1]))

	forged := chain.NewBlock(1, blocks[2].ID, nil, nil)
	require.ErrorIs(t, db.AppendBlocks([]*chain.Block{forged}), ErrDiscontinuous)

	height, err := db.NumBlocks()
	require.NoError(t, err)
	require.EqualValues(t, 1, height)
}

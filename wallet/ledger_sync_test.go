package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/chain/chaintest"
	"github.com/stretchr/testify/require"
	"gopkg.in/tomb.v2"
	"testing"
)

func TestLedgerSync_Poll(t *testing.T) {
	net := chaintest.NewMockNetwork()
	ledger := setupLedger(t)
	ls := NewLedgerSync(new(tomb.Tomb), chain.NetworkRegtest, net, ledger)
	sub := ls.Subscribe()

	net.MintTo(chain.NewRandomAccountKey().DefaultAddress(), 1000)
	for i := 0; i < LedgerFetchBatch+20; i++ {
		net.MineBlock()
	}
	height, err := net.NetworkHeight()
	require.NoError(t, err)

	require.NoError(t, ls.Poll())
	require.Equal(t, height, ls.NetworkHeight())
	require.Equal(t, height, ls.LocalHeight())
	numBlocks, err := ledger.NumBlocks()
	require.NoError(t, err)
	require.Equal(t, height, numBlocks)

	notif := <-sub
	require.Equal(t, height, notif.LocalHeight)
	require.Equal(t, height, notif.NetworkHeight)

	t.Run("no notification without growth", func(t *testing.T) {
		require.NoError(t, ls.Poll())
		select {
		case <-sub:
			t.Fatal("unexpected notification")
		default:
		}
	})

	t.Run("keeps only the latest notification", func(t *testing.T) {
		net.MineBlock()
		require.NoError(t, ls.Poll())
		net.MineBlock()
		require.NoError(t, ls.Poll())
		notif := <-sub
		require.Equal(t, height+2, notif.LocalHeight)
	})
}

func TestLedgerSync_SafetyStop(t *testing.T) {
	t.Run("local ledger ahead of the network", func(t *testing.T) {
		ahead := chaintest.NewMockNetwork()
		ahead.MineTo(5)
		ledger := setupLedger(t)
		require.NoError(t, NewLedgerSync(new(tomb.Tomb), chain.NetworkRegtest, ahead, ledger).Poll())

		behind := chaintest.NewMockNetwork()
		behind.MineTo(3)
		err := NewLedgerSync(new(tomb.Tomb), chain.NetworkRegtest, behind, ledger).Poll()
		require.ErrorIs(t, err, ErrLedgerSafetyStop)
	})

	t.Run("discontinuous block feed", func(t *testing.T) {
		first := chaintest.NewMockNetwork()
		first.MintTo(chain.NewRandomAccountKey().DefaultAddress(), 1000)
		first.MineBlock()
		ledger := setupLedger(t)
		require.NoError(t, NewLedgerSync(new(tomb.Tomb), chain.NetworkRegtest, first, ledger).Poll())

		fork := chaintest.NewMockNetwork()
		fork.MineTo(4)
		err := NewLedgerSync(new(tomb.Tomb), chain.NetworkRegtest, fork, ledger).Poll()
		require.ErrorIs(t, err, ErrLedgerSafetyStop)
	})
}

package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/chain/chaintest"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/stretchr/testify/require"
	"gopkg.in/tomb.v2"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
)

func setupEngine(t *testing.T) (*walletdb.Engine, func()) {
	dirName, err := ioutil.TempDir("", "walletdb_*")
	require.NoError(t, err)

	engine, err := walletdb.NewEngine(dirName)
	require.NoError(t, err)
	require.NoError(t, walletdb.MigrateDB(engine))
	return engine, func() {
		require.NoError(t, engine.Close())
		require.NoError(t, os.RemoveAll(dirName))
	}
}

func setupLedger(t *testing.T) *ledgerdb.DB {
	db, err := ledgerdb.Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, db.Close())
	})
	return db
}

// setupNode returns a loaded node fed by net. Background sync is not
// started; tests drive it with Node.Sync.
func setupNode(t *testing.T, net *chaintest.MockNetwork) (*Node, func()) {
	engine, cleanup := setupEngine(t)
	node := NewNode(new(tomb.Tomb), chain.NetworkRegtest, engine, setupLedger(t), net, net)
	require.NoError(t, node.Load())
	return node, cleanup
}

func createAccount(t *testing.T, node *Node, name string) *Account {
	acc, _, err := node.CreateAccount(name)
	require.NoError(t, err)
	return acc
}

// fund mints value to the account's main address in a new block and
// syncs the node.
func fund(t *testing.T, net *chaintest.MockNetwork, node *Node, acc *Account, value uint64) *chain.Block {
	net.MintTo(acc.view.DefaultAddress(), value)
	block := net.MineBlock()
	require.NoError(t, node.Sync())
	return block
}

func mineAndSync(t *testing.T, net *chaintest.MockNetwork, node *Node) *chain.Block {
	block := net.MineBlock()
	require.NoError(t, node.Sync())
	return block
}

func pay(addr *chain.PublicAddress, value uint64) []*Payment {
	return []*Payment{{
		Address: addr,
		Value:   value,
	}}
}

func requireBalance(t *testing.T, acc *Account, unspent, pending, spent uint64) *walletdb.Balance {
	bal, err := acc.Balance()
	require.NoError(t, err)
	require.EqualValues(t, unspent, bal.Unspent, "unspent")
	require.EqualValues(t, pending, bal.Pending, "pending")
	require.EqualValues(t, spent, bal.Spent, "spent")
	return bal
}

func requireLogStatus(t *testing.T, acc *Account, id string, status walletdb.TransactionLogStatus) *walletdb.TransactionLog {
	txLog, err := acc.TransactionLog(id)
	require.NoError(t, err)
	require.Equal(t, status, walletdb.DeriveTransactionLogStatus(txLog))
	return txLog
}

// signUnsigned does what an offline signer does for an unsigned
// transaction.
func signUnsigned(t *testing.T, key *chain.AccountKey, unsigned *UnsignedTransaction) *chain.Tx {
	msg := unsigned.Tx.PrefixHash()
	for i, in := range unsigned.Inputs {
		ss, err := key.SharedSecret(in.PublicKey)
		require.NoError(t, err)
		x := key.OnetimePrivateKey(ss, in.SubaddressIndex)
		require.Equal(t, in.TargetKey, x.PublicKey())
		unsigned.Tx.Inputs[i].Signature, unsigned.Tx.Inputs[i].KeyImage = ucrypto.Sign(msg, x)
	}
	return unsigned.Tx
}

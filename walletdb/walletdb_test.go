package walletdb

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/stretchr/testify/require"
	"io/ioutil"
	"os"
	"testing"
)

func setupEngine(t *testing.T) (*Engine, func()) {
	dirName, err := ioutil.TempDir("", "walletdb_*")
	require.NoError(t, err)

	engine, err := NewEngine(dirName)
	require.NoError(t, err)
	require.NoError(t, MigrateDB(engine))
	return engine, func() {
		require.NoError(t, engine.Close())
		require.NoError(t, os.RemoveAll(dirName))
	}
}

type fixture struct {
	key     *chain.AccountKey
	account *Account
}

func createAccount(t *testing.T, engine *Engine, first uint64) *fixture {
	key := chain.NewRandomAccountKey()
	var acc *Account
	require.NoError(t, engine.Transaction(func(tx Transactor) error {
		var err error
		acc, err = CreateAccount(tx, &CreateAccountOpts{
			ID:                   key.ID(),
			Name:                 "test",
			AccountKey:           key.Bytes(),
			KeyDerivationVersion: chain.KeyDerivationVersion,
			FirstBlockIndex:      first,
			NextSubaddressIndex:  chain.ReservedSubaddresses,
			KeyImageBloom:        []byte{},
		})
		if err != nil {
			return err
		}
		for i := uint64(0); i < chain.ReservedSubaddresses; i++ {
			addr := key.Subaddress(i)
			err := CreateSubaddress(tx, &Subaddress{
				PublicAddressB58: addr.B58(chain.NetworkRegtest),
				AccountID:        acc.ID,
				SubaddressIndex:  i,
				SpendPublicKey:   addr.SpendPublicKey,
			})
			if err != nil {
				return err
			}
		}
		return nil
	}))
	return &fixture{key: key, account: acc}
}

func receive(t *testing.T, engine *Engine, f *fixture, value uint64, block uint64, sub *uint64) *Txo {
	out, err := chain.NewTxOut(value, f.key.DefaultAddress(), ucrypto.NewPrivateKey(), nil)
	require.NoError(t, err)
	ss, err := f.key.SharedSecret(out.PublicKey)
	require.NoError(t, err)
	var ki *ucrypto.KeyImage
	if sub != nil {
		k := f.key.KeyImage(ss, *sub)
		ki = &k
	}
	var txo *Txo
	require.NoError(t, engine.Transaction(func(tx Transactor) error {
		var err error
		txo, err = UpsertReceivedTxo(tx, &ReceivedTxoOpts{
			AccountID:          f.account.ID,
			TxOut:              out,
			Value:              value,
			SubaddressIndex:    sub,
			KeyImage:           ki,
			SharedSecret:       ss,
			ReceivedBlockIndex: block,
		})
		return err
	}))
	return txo
}

func spendTx(t *testing.T, inputs []*Txo, payTo *chain.PublicAddress, value uint64, tombstone uint64) *chain.Tx {
	out, err := chain.NewTxOut(value, payTo, ucrypto.NewPrivateKey(), nil)
	require.NoError(t, err)
	tx := &chain.Tx{
		Outputs:        []*chain.TxOut{out},
		Fee:            10_000,
		TombstoneBlock: tombstone,
	}
	for _, in := range inputs {
		tx.Inputs = append(tx.Inputs, &chain.TxIn{TargetKey: in.TargetKey, PublicKey: in.PublicKey})
	}
	return tx
}

func TestAccountLifecycle(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 5)

	require.NoError(t, engine.Transaction(func(tx Transactor) error {
		acc, err := GetAccount(tx, f.account.ID)
		require.NoError(t, err)
		require.EqualValues(t, 5, acc.FirstBlockIndex)
		require.EqualValues(t, 5, acc.NextBlockIndex)
		require.EqualValues(t, 2, acc.NextSubaddressIndex)

		require.NoError(t, UpdateNextBlockIndex(tx, acc.ID, 9))
		require.NoError(t, UpdateNextBlockIndex(tx, acc.ID, 9))
		require.ErrorIs(t, UpdateNextBlockIndex(tx, acc.ID, 8), ErrIntegrityViolation)
		require.ErrorIs(t, UpdateNextBlockIndex(tx, "missing", 8), ErrNotFound)

		require.NoError(t, ResetNextBlockIndex(tx, acc.ID))
		acc, err = GetAccount(tx, f.account.ID)
		require.NoError(t, err)
		require.EqualValues(t, 5, acc.NextBlockIndex)

		accounts, err := ListAccounts(tx, false)
		require.NoError(t, err)
		require.Len(t, accounts, 1)

		sub, err := GetSubaddressBySpendKey(tx, acc.ID, f.key.ChangeAddress().SpendPublicKey)
		require.NoError(t, err)
		require.EqualValues(t, chain.ChangeSubaddressIndex, sub.SubaddressIndex)

		_, err = GetSubaddressBySpendKey(tx, acc.ID, ucrypto.NewPrivateKey().PublicKey())
		require.ErrorIs(t, err, ErrNotFound)

		_, err = GetAccount(tx, "missing")
		require.ErrorIs(t, err, ErrNotFound)
		return nil
	}))
}

func TestUpsertReceivedTxoIsIdempotent(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	sub := uint64(0)
	txo := receive(t, engine, f, 100, 10, &sub)

	require.NoError(t, engine.Transaction(func(tx Transactor) error {
		again, err := UpsertReceivedTxo(tx, &ReceivedTxoOpts{
			AccountID:          f.account.ID,
			TxOut:              txo.TxOut,
			Value:              txo.Value,
			SubaddressIndex:    txo.SubaddressIndex,
			KeyImage:           txo.KeyImage,
			SharedSecret:       *txo.SharedSecret,
			ReceivedBlockIndex: 10,
		})
		require.NoError(t, err)
		require.Equal(t, txo, again)

		txos, err := ListTxos(tx, f.account.ID, 100, 0)
		require.NoError(t, err)
		require.Len(t, txos, 1)
		require.Equal(t, TxoStatusUnspent, DeriveTxoStatus(txos[0], f.account.ID))
		return nil
	}))
}

func TestTxoSpentNeverReverts(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	sub := uint64(0)
	txo := receive(t, engine, f, 100, 10, &sub)

	require.NoError(t, engine.Transaction(func(tx Transactor) error {
		require.NoError(t, SetTxoSpent(tx, txo.ID, 15))
		require.NoError(t, SetTxoSpent(tx, txo.ID, 15))
		require.ErrorIs(t, SetTxoSpent(tx, txo.ID, 16), ErrIntegrityViolation)

		got, err := GetTxo(tx, txo.ID)
		require.NoError(t, err)
		require.Equal(t, TxoStatusSpent, DeriveTxoStatus(got, f.account.ID))
		return nil
	}))
}

func TestTransactionLogLifecycle(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	other := createAccount(t, engine, 0)
	sub := uint64(0)
	txo := receive(t, engine, f, 100_000_000, 10, &sub)

	tx := spendTx(t, []*Txo{txo}, other.key.DefaultAddress(), 50_000_000, 20)
	var log *TransactionLog
	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		var err error
		log, err = CreateTransactionLog(dbTx, &CreateTransactionLogOpts{
			AccountID:   f.account.ID,
			Value:       50_000_000,
			Fee:         10_000,
			Tx:          tx,
			InputTxoIDs: []string{txo.ID},
			Outputs: []*LogOutputOpts{{
				TxOut:        tx.Outputs[0],
				Value:        50_000_000,
				RecipientB58: other.key.DefaultAddress().B58(chain.NetworkRegtest),
			}},
		})
		return err
	}))
	require.Equal(t, TransactionLogStatusBuilt, DeriveTransactionLogStatus(log))
	require.Equal(t, []string{txo.ID}, log.InputTxoIDs)
	require.Len(t, log.Outputs, 1)

	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		got, err := GetTxo(dbTx, txo.ID)
		require.NoError(t, err)
		require.Equal(t, TxoStatusPending, DeriveTxoStatus(got, f.account.ID))
		require.EqualValues(t, 20, *got.PendingTombstone)

		minted, err := GetTxo(dbTx, log.Outputs[0].TxoID)
		require.NoError(t, err)
		require.Equal(t, TxoStatusSecreted, DeriveTxoStatus(minted, f.account.ID))
		require.Equal(t, TxoStatusUnrelated, DeriveTxoStatus(minted, other.account.ID))

		spendable, err := ListSpendableTxos(dbTx, f.account.ID)
		require.NoError(t, err)
		require.Empty(t, spendable)

		_, err = CreateTransactionLog(dbTx, &CreateTransactionLogOpts{
			AccountID:   f.account.ID,
			Tx:          spendTx(t, []*Txo{txo}, other.key.DefaultAddress(), 1, 20),
			InputTxoIDs: []string{txo.ID},
		})
		require.ErrorIs(t, err, ErrTxoUnavailable)

		require.NoError(t, MarkTransactionLogSubmitted(dbTx, log.ID, 11))
		log, err = GetTransactionLog(dbTx, log.ID)
		require.NoError(t, err)
		require.Equal(t, TransactionLogStatusSubmitted, DeriveTransactionLogStatus(log))

		n, err := FailExpiredTransactionLogs(dbTx, f.account.ID, 19)
		require.NoError(t, err)
		require.EqualValues(t, 0, n)
		n, err = FailExpiredTransactionLogs(dbTx, f.account.ID, 20)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		log, err = GetTransactionLog(dbTx, log.ID)
		require.NoError(t, err)
		require.Equal(t, TransactionLogStatusFailed, DeriveTransactionLogStatus(log))

		got, err = GetTxo(dbTx, txo.ID)
		require.NoError(t, err)
		require.Equal(t, TxoStatusUnspent, DeriveTxoStatus(got, f.account.ID))

		minted, err = GetTxo(dbTx, log.Outputs[0].TxoID)
		require.NoError(t, err)
		require.Equal(t, TxoStatusUnrelated, DeriveTxoStatus(minted, f.account.ID))
		return nil
	}))
}

func TestFinalizeLogsForInput(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	sub := uint64(0)
	txo := receive(t, engine, f, 1000, 10, &sub)
	tx := spendTx(t, []*Txo{txo}, f.key.DefaultAddress(), 900, 20)

	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		log, err := CreateTransactionLog(dbTx, &CreateTransactionLogOpts{
			AccountID:   f.account.ID,
			Value:       900,
			Fee:         100,
			Tx:          tx,
			InputTxoIDs: []string{txo.ID},
		})
		require.NoError(t, err)
		require.NoError(t, SetTxoSpent(dbTx, txo.ID, 15))
		n, err := FinalizeLogsForInput(dbTx, txo.ID, 15)
		require.NoError(t, err)
		require.EqualValues(t, 1, n)

		n, err = FailExpiredTransactionLogs(dbTx, f.account.ID, 30)
		require.NoError(t, err)
		require.EqualValues(t, 0, n)

		log, err = GetTransactionLog(dbTx, log.ID)
		require.NoError(t, err)
		require.Equal(t, TransactionLogStatusFinalized, DeriveTransactionLogStatus(log))
		require.EqualValues(t, 15, *log.FinalizedBlockIndex)
		return nil
	}))
}

func TestBalanceIdentity(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	sub0 := uint64(0)
	a := receive(t, engine, f, 100, 1, &sub0)
	b := receive(t, engine, f, 200, 2, &sub0)
	receive(t, engine, f, 400, 3, &sub0)
	receive(t, engine, f, 800, 4, nil)

	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		require.NoError(t, SetTxoSpent(dbTx, a.ID, 5))
		spend := spendTx(t, []*Txo{b}, chain.NewRandomAccountKey().DefaultAddress(), 150, 50)
		_, err := CreateTransactionLog(dbTx, &CreateTransactionLogOpts{
			AccountID:   f.account.ID,
			Value:       150,
			Fee:         50,
			Tx:          spend,
			InputTxoIDs: []string{b.ID},
			Outputs:     []*LogOutputOpts{{TxOut: spend.Outputs[0], Value: 150}},
		})
		require.NoError(t, err)

		bal, err := GetBalance(dbTx, f.account.ID)
		require.NoError(t, err)
		require.EqualValues(t, 400, bal.Unspent)
		require.EqualValues(t, 200, bal.Pending)
		require.EqualValues(t, 100, bal.Spent)
		require.EqualValues(t, 800, bal.Orphaned)
		require.EqualValues(t, 150, bal.Secreted)
		require.EqualValues(t, 1500, bal.TotalReceived)
		require.Equal(t, bal.TotalReceived, bal.Unspent+bal.Pending+bal.Spent+bal.Orphaned)
		return nil
	}))
}

func TestOrphanResolution(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	txo := receive(t, engine, f, 100, 1, nil)

	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		orphans, err := ListOrphanedTxos(dbTx, f.account.ID)
		require.NoError(t, err)
		require.Len(t, orphans, 1)

		ki := f.key.KeyImage(*txo.SharedSecret, 0)
		require.NoError(t, ResolveOrphanedTxo(dbTx, txo.ID, 0, &ki))
		got, err := GetTxo(dbTx, txo.ID)
		require.NoError(t, err)
		require.Equal(t, TxoStatusUnspent, DeriveTxoStatus(got, f.account.ID))
		require.Equal(t, ki, *got.KeyImage)

		byKI, err := ListTxosByKeyImage(dbTx, ki)
		require.NoError(t, err)
		require.Len(t, byKI, 1)
		return nil
	}))
}

func TestDeleteAccountKeepsOtherAccountsMints(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	sender := createAccount(t, engine, 0)
	recv := createAccount(t, engine, 0)
	sub := uint64(0)
	funding := receive(t, engine, sender, 1000, 1, &sub)
	tx := spendTx(t, []*Txo{funding}, recv.key.DefaultAddress(), 900, 20)

	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		log, err := CreateTransactionLog(dbTx, &CreateTransactionLogOpts{
			AccountID:   sender.account.ID,
			Value:       900,
			Fee:         100,
			Tx:          tx,
			InputTxoIDs: []string{funding.ID},
			Outputs:     []*LogOutputOpts{{TxOut: tx.Outputs[0], Value: 900}},
		})
		require.NoError(t, err)
		ss, err := recv.key.SharedSecret(tx.Outputs[0].PublicKey)
		require.NoError(t, err)
		ki := recv.key.KeyImage(ss, sub)
		_, err = UpsertReceivedTxo(dbTx, &ReceivedTxoOpts{
			AccountID:          recv.account.ID,
			TxOut:              tx.Outputs[0],
			Value:              900,
			SubaddressIndex:    &sub,
			KeyImage:           &ki,
			SharedSecret:       ss,
			ReceivedBlockIndex: 12,
		})
		require.NoError(t, err)

		require.NoError(t, DeleteAccount(dbTx, recv.account.ID))
		minted, err := GetTxo(dbTx, log.Outputs[0].TxoID)
		require.NoError(t, err)
		require.Empty(t, minted.AccountID)
		require.Nil(t, minted.SubaddressIndex)
		require.Nil(t, minted.KeyImage)
		require.Nil(t, minted.SharedSecret)
		require.Nil(t, minted.ReceivedBlockIndex)
		require.Nil(t, minted.SpentBlockIndex)
		require.Equal(t, TxoStatusSecreted, DeriveTxoStatus(minted, sender.account.ID))

		require.NoError(t, DeleteAccount(dbTx, sender.account.ID))
		_, err = GetTxo(dbTx, log.Outputs[0].TxoID)
		require.ErrorIs(t, err, ErrNotFound)
		_, err = GetTxo(dbTx, funding.ID)
		require.ErrorIs(t, err, ErrNotFound)
		require.ErrorIs(t, DeleteAccount(dbTx, sender.account.ID), ErrNotFound)
		return nil
	}))
}

func TestMemosAndGiftCodes(t *testing.T) {
	engine, cleanup := setupEngine(t)
	defer cleanup()
	f := createAccount(t, engine, 0)
	sub := uint64(1)
	txo := receive(t, engine, f, 100, 1, &sub)
	dest, err := chain.NewDestinationMemo(chain.MemoTypeDestinationWithPaymentRequest, f.key.DefaultAddress(), 1, 10_000, 60_000, 42)
	require.NoError(t, err)

	require.NoError(t, engine.Transaction(func(dbTx Transactor) error {
		memo, err := GetTxoMemo(dbTx, txo.ID)
		require.NoError(t, err)
		require.Nil(t, memo)

		payload := dest.Payload()
		ss := *txo.SharedSecret
		_, err = UpsertReceivedTxo(dbTx, &ReceivedTxoOpts{
			AccountID:          f.account.ID,
			TxOut:              txo.TxOut,
			Value:              txo.Value,
			SubaddressIndex:    &sub,
			SharedSecret:       ss,
			ReceivedBlockIndex: 1,
			MemoPayload:        payload,
		})
		require.NoError(t, err)
		require.NoError(t, CreateDestinationMemo(dbTx, txo.ID, dest))
		memo, err = GetTxoMemo(dbTx, txo.ID)
		require.NoError(t, err)
		require.Equal(t, dest, memo.Destination)

		gc, err := CreateGiftCode(dbTx, &GiftCode{
			GiftCodeB58:        "code",
			Value:              500,
			Memo:               "happy birthday",
			FundingAccountID:   f.account.ID,
			TxoPublicKey:       txo.PublicKey,
			EphemeralAccountID: "eph",
		})
		require.NoError(t, err)
		require.EqualValues(t, 500, gc.Value)
		codes, err := ListGiftCodes(dbTx, 10, 0)
		require.NoError(t, err)
		require.Len(t, codes, 1)
		require.NoError(t, DeleteGiftCode(dbTx, "code"))
		require.ErrorIs(t, DeleteGiftCode(dbTx, "code"), ErrNotFound)
		return nil
	}))
}

package wallet

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/chain/chaintest"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"sync"
	"testing"
)

type AccountSuite struct {
	suite.Suite
	net       *chaintest.MockNetwork
	node      *Node
	cleanup   func()
	sender    *Account
	recipient *Account
}

func (s *AccountSuite) SetupTest() {
	t := s.T()
	s.net = chaintest.NewMockNetwork()
	s.node, s.cleanup = setupNode(t, s.net)
	s.sender = createAccount(t, s.node, "sender")
	s.recipient = createAccount(t, s.node, "recipient")
}

func (s *AccountSuite) TearDownTest() {
	s.cleanup()
}

// fundSender mints 100M to the sender in block 10.
func (s *AccountSuite) fundSender() {
	t := s.T()
	s.net.MineTo(10)
	block := fund(t, s.net, s.node, s.sender, 100_000_000)
	require.EqualValues(t, 10, block.Index)
	requireBalance(t, s.sender, 100_000_000, 0, 0)
}

func (s *AccountSuite) TestSendFinalizes() {
	t := s.T()
	s.fundSender()

	txLog, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments:  pay(s.recipient.view.DefaultAddress(), 10_000_000),
		Tombstone: 20,
		Comment:   "rent",
	})
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusSubmitted, walletdb.DeriveTransactionLogStatus(txLog))
	require.EqualValues(t, 20, txLog.TombstoneBlockIndex)
	require.EqualValues(t, 10_000_000, txLog.Value)
	require.EqualValues(t, chain.NetworkRegtest.MinimumFee, txLog.Fee)
	require.Equal(t, "rent", txLog.Comment)
	require.Len(t, txLog.InputTxoIDs, 1)
	require.Len(t, txLog.Outputs, 2)
	requireBalance(t, s.sender, 0, 100_000_000, 0)

	s.net.MineTo(15)
	block := mineAndSync(t, s.net, s.node)
	require.EqualValues(t, 15, block.Index)

	finalized := requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFinalized)
	require.EqualValues(t, 15, *finalized.FinalizedBlockIndex)
	bal := requireBalance(t, s.sender, 89_990_000, 0, 100_000_000)
	require.EqualValues(t, 10_000_000, bal.Secreted)
	requireBalance(t, s.recipient, 10_000_000, 0, 0)

	txos, err := s.recipient.Txos(10, 0)
	require.NoError(t, err)
	require.Len(t, txos, 1)
	require.EqualValues(t, 15, *txos[0].ReceivedBlockIndex)
}

func (s *AccountSuite) TestSendExpires() {
	t := s.T()
	s.fundSender()

	txLog, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments:  pay(s.recipient.view.DefaultAddress(), 10_000_000),
		Tombstone: 20,
	})
	require.NoError(t, err)

	// the validator holds the transaction until its tombstone passes
	s.net.MineTo(25)
	require.NoError(t, s.node.Sync())
	require.Len(t, s.net.Mempool(), 1)

	requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFailed)
	requireBalance(t, s.sender, 100_000_000, 0, 0)
	requireBalance(t, s.recipient, 0, 0, 0)

	// a stale mempool entry is never mined after its tombstone
	mineAndSync(t, s.net, s.node)
	requireBalance(t, s.recipient, 0, 0, 0)
}

func (s *AccountSuite) TestMemos() {
	t := s.T()
	s.fundSender()

	_, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments:         pay(s.recipient.view.DefaultAddress(), 1_000_000),
		PaymentRequestID: 7,
	})
	require.NoError(t, err)
	mineAndSync(t, s.net, s.node)

	t.Run("recipient stores the sender memo", func(t *testing.T) {
		txos, err := s.recipient.Txos(10, 0)
		require.NoError(t, err)
		require.Len(t, txos, 1)
		_, memo, err := s.recipient.Txo(txos[0].ID)
		require.NoError(t, err)
		require.NotNil(t, memo)
		require.NotNil(t, memo.Sender)
		require.Nil(t, memo.Destination)
		require.Equal(t, s.sender.view.DefaultAddress().ShortHash(), memo.Sender.SenderHash)
		require.EqualValues(t, 7, memo.Sender.PaymentRequestID)

		ok, err := s.recipient.ValidateSenderMemo(txos[0].ID, s.sender.MainAddress())
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.recipient.ValidateSenderMemo(txos[0].ID, s.recipient.MainAddress())
		require.NoError(t, err)
		require.False(t, ok)
	})

	t.Run("sender stores the destination memo on change", func(t *testing.T) {
		txos, err := s.sender.Txos(10, 0)
		require.NoError(t, err)
		var change *walletdb.Txo
		for _, txo := range txos {
			if txo.SubaddressIndex != nil && *txo.SubaddressIndex == chain.ChangeSubaddressIndex {
				change = txo
			}
		}
		require.NotNil(t, change)
		_, memo, err := s.sender.Txo(change.ID)
		require.NoError(t, err)
		require.NotNil(t, memo.Destination)
		require.Equal(t, s.recipient.view.DefaultAddress().ShortHash(), memo.Destination.RecipientHash)
		require.EqualValues(t, 1, memo.Destination.NumRecipients)
		require.EqualValues(t, chain.NetworkRegtest.MinimumFee, memo.Destination.Fee)
		require.EqualValues(t, 1_000_000+chain.NetworkRegtest.MinimumFee, memo.Destination.TotalOutlay)
		require.EqualValues(t, 7, memo.Destination.PaymentRequestID)
	})

	t.Run("unrelated txos are not found", func(t *testing.T) {
		other := createAccount(t, s.node, "other")
		txos, err := s.recipient.Txos(10, 0)
		require.NoError(t, err)
		_, _, err = other.Txo(txos[0].ID)
		require.ErrorIs(t, err, walletdb.ErrNotFound)
	})
}

func (s *AccountSuite) TestBuildErrors() {
	t := s.T()
	s.fundSender()
	to := s.recipient.view.DefaultAddress()

	tests := []struct {
		name string
		opts *SendOpts
		err  error
	}{
		{
			name: "insufficient funds",
			opts: &SendOpts{Payments: pay(to, 100_000_000)},
			err:  ErrInsufficientFunds,
		},
		{
			name: "fee too low",
			opts: &SendOpts{Payments: pay(to, 1000), Fee: 1},
			err:  ErrFeeTooLow,
		},
		{
			name: "no payments",
			opts: &SendOpts{},
			err:  ErrNoPayments,
		},
		{
			name: "tombstone in the past",
			opts: &SendOpts{Payments: pay(to, 1000), Tombstone: 5},
			err:  ErrInvalidTombstone,
		},
		{
			name: "tombstone beyond the horizon",
			opts: &SendOpts{Payments: pay(to, 1000), Tombstone: 10_000},
			err:  ErrInvalidTombstone,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.sender.BuildTransaction(tt.opts)
			require.ErrorIs(t, err, tt.err)
			requireBalance(t, s.sender, 100_000_000, 0, 0)
			logs, err := s.sender.TransactionLogs(10, 0)
			require.NoError(t, err)
			require.Empty(t, logs)
		})
	}
}

func (s *AccountSuite) TestFragmentedFunds() {
	t := s.T()
	for i := 0; i < 20; i++ {
		s.net.MintTo(s.sender.view.DefaultAddress(), 100_000)
	}
	mineAndSync(t, s.net, s.node)
	bal := requireBalance(t, s.sender, 2_000_000, 0, 0)
	require.Equal(t, 20, bal.UnspentCount)

	_, err := s.sender.BuildTransaction(&SendOpts{
		Payments: pay(s.recipient.view.DefaultAddress(), 1_600_000),
	})
	require.ErrorIs(t, err, ErrFragmentedFunds)
	requireBalance(t, s.sender, 2_000_000, 0, 0)
}

func (s *AccountSuite) TestSpendsAreExclusive() {
	t := s.T()
	s.fundSender()

	first, err := s.sender.BuildTransaction(&SendOpts{
		Payments: pay(s.recipient.view.DefaultAddress(), 1_000_000),
	})
	require.NoError(t, err)
	requireBalance(t, s.sender, 0, 100_000_000, 0)

	_, err = s.sender.BuildTransaction(&SendOpts{
		Payments: pay(s.recipient.view.DefaultAddress(), 1_000_000),
	})
	require.ErrorIs(t, err, ErrInsufficientFunds)

	submitted, err := s.sender.SubmitTransaction(first.ID)
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusSubmitted, walletdb.DeriveTransactionLogStatus(submitted))

	_, err = s.sender.SubmitTransaction(first.ID)
	require.ErrorIs(t, err, ErrInvalidLogState)
}

func (s *AccountSuite) TestSubmissionFailures() {
	t := s.T()
	s.fundSender()
	opts := &SendOpts{Payments: pay(s.recipient.view.DefaultAddress(), 1_000_000)}

	t.Run("transport errors keep the log built", func(t *testing.T) {
		s.net.TransportErr = errors.New("connection refused")
		defer func() { s.net.TransportErr = nil }()

		txLog, err := s.sender.BuildTransaction(opts)
		require.NoError(t, err)
		_, err = s.sender.SubmitTransaction(txLog.ID)
		require.Error(t, err)
		require.NotErrorIs(t, err, ErrSubmissionRejected)
		requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusBuilt)
		requireBalance(t, s.sender, 0, 100_000_000, 0)

		s.net.TransportErr = nil
		_, err = s.sender.SubmitTransaction(txLog.ID)
		require.NoError(t, err)
		requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusSubmitted)

		s.net.DropMempool()
		s.net.MineTo(txLog.TombstoneBlockIndex + 1)
		require.NoError(t, s.node.Sync())
		requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFailed)
	})

	t.Run("rejections fail the log", func(t *testing.T) {
		s.net.Reject = true
		defer func() { s.net.Reject = false }()

		txLog, err := s.sender.BuildTransaction(opts)
		require.NoError(t, err)
		_, err = s.sender.SubmitTransaction(txLog.ID)
		require.ErrorIs(t, err, ErrSubmissionRejected)
		requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFailed)
		requireBalance(t, s.sender, 100_000_000, 0, 0)
	})
}

// lossySubmitter delivers every transaction but reports a transport failure
// while drop is set, as when the acknowledgement is lost.
type lossySubmitter struct {
	net  *chaintest.MockNetwork
	drop bool
}

func (l *lossySubmitter) SubmitTx(tx *chain.Tx) error {
	if err := l.net.SubmitTx(tx); err != nil {
		return err
	}
	if l.drop {
		return errors.New("connection reset")
	}
	return nil
}

func (s *AccountSuite) TestLostAcknowledgement() {
	t := s.T()
	s.fundSender()
	lossy := &lossySubmitter{net: s.net, drop: true}
	s.sender.submitter = lossy

	txLog, err := s.sender.BuildTransaction(&SendOpts{
		Payments:  pay(s.recipient.view.DefaultAddress(), 50_000_000),
		Tombstone: 20,
	})
	require.NoError(t, err)
	_, err = s.sender.SubmitTransaction(txLog.ID)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrSubmissionRejected)
	attempted := requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusBuilt)
	require.True(t, attempted.SubmitAttempted)
	require.Len(t, s.net.Mempool(), 1)

	lossy.drop = false
	retried, err := s.sender.SubmitTransaction(txLog.ID)
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusSubmitted, walletdb.DeriveTransactionLogStatus(retried))
	requireBalance(t, s.sender, 0, 100_000_000, 0)

	mineAndSync(t, s.net, s.node)
	requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFinalized)
	requireBalance(t, s.sender, 49_990_000, 0, 100_000_000)
	requireBalance(t, s.recipient, 50_000_000, 0, 0)
}

func (s *AccountSuite) TestAttemptedLogExpiresAfterRejection() {
	t := s.T()
	s.fundSender()
	s.net.TransportErr = errors.New("connection refused")
	txLog, err := s.sender.BuildTransaction(&SendOpts{
		Payments:  pay(s.recipient.view.DefaultAddress(), 1_000_000),
		Tombstone: 20,
	})
	require.NoError(t, err)
	_, err = s.sender.SubmitTransaction(txLog.ID)
	require.Error(t, err)

	s.net.TransportErr = nil
	s.net.Reject = true
	_, err = s.sender.SubmitTransaction(txLog.ID)
	require.NoError(t, err)
	s.net.Reject = false
	requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusSubmitted)
	requireBalance(t, s.sender, 0, 100_000_000, 0)

	s.net.MineTo(txLog.TombstoneBlockIndex + 1)
	require.NoError(t, s.node.Sync())
	requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFailed)
	requireBalance(t, s.sender, 100_000_000, 0, 0)
}

func (s *AccountSuite) TestConcurrentBuildsSelectDistinctTxos() {
	t := s.T()
	for i := 0; i < 4; i++ {
		s.net.MintTo(s.sender.view.DefaultAddress(), 1_000_000)
	}
	mineAndSync(t, s.net, s.node)
	requireBalance(t, s.sender, 4_000_000, 0, 0)

	const builders = 16
	logs := make(chan *walletdb.TransactionLog, builders)
	errs := make(chan error, builders)
	var wg sync.WaitGroup
	for i := 0; i < builders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			txLog, err := s.sender.BuildTransaction(&SendOpts{
				Payments: pay(s.recipient.view.DefaultAddress(), 500_000),
			})
			if err != nil {
				errs <- err
				return
			}
			logs <- txLog
		}()
	}
	wg.Wait()
	close(logs)
	close(errs)

	seen := make(map[string]bool)
	var built int
	for txLog := range logs {
		built++
		for _, id := range txLog.InputTxoIDs {
			require.False(t, seen[id], "input %s selected twice", id)
			seen[id] = true
		}
	}
	for err := range errs {
		require.ErrorIs(t, err, ErrInsufficientFunds)
	}
	require.Equal(t, 4, built)
	require.Len(t, seen, 4)
	requireBalance(t, s.sender, 0, 4_000_000, 0)
}

func (s *AccountSuite) TestBalanceConsistentDuringSync() {
	t := s.T()
	s.fundSender()
	_, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments: pay(s.recipient.view.DefaultAddress(), 10_000_000),
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() {
		for i := 0; i < 20; i++ {
			s.net.MintTo(s.sender.view.DefaultAddress(), 1_000_000)
			s.net.MineBlock()
			if err := s.node.Sync(); err != nil {
				done <- err
				return
			}
		}
		done <- nil
	}()

	check := func() {
		bal, err := s.sender.Balance()
		require.NoError(t, err)
		require.Equal(t, bal.TotalReceived, bal.Unspent+bal.Pending+bal.Spent+bal.Orphaned)
	}
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			check()
			requireBalance(t, s.sender, 89_990_000+20_000_000, 0, 100_000_000)
			return
		default:
			check()
		}
	}
}

func (s *AccountSuite) TestResyncIsIdempotent() {
	t := s.T()
	s.fundSender()
	txLog, err := s.sender.BuildAndSubmit(&SendOpts{
		Payments: pay(s.recipient.view.DefaultAddress(), 5_000_000),
	})
	require.NoError(t, err)
	mineAndSync(t, s.net, s.node)
	before := requireBalance(t, s.sender, 94_990_000, 0, 100_000_000)

	require.NoError(t, s.sender.Resync())
	dbAcc, err := s.sender.DBAccount()
	require.NoError(t, err)
	require.Equal(t, dbAcc.FirstBlockIndex, dbAcc.NextBlockIndex)

	require.NoError(t, s.node.Sync())
	after := requireBalance(t, s.sender, 94_990_000, 0, 100_000_000)
	require.Equal(t, before, after)
	requireLogStatus(t, s.sender, txLog.ID, walletdb.TransactionLogStatusFinalized)

	// funding input, change, and the secreted payment
	txos, err := s.sender.Txos(10, 0)
	require.NoError(t, err)
	require.Len(t, txos, 3)
}

func (s *AccountSuite) TestSyncStatus() {
	t := s.T()
	s.net.MineTo(8)
	require.NoError(t, s.node.Sync())
	status, err := s.sender.SyncStatus()
	require.NoError(t, err)
	require.EqualValues(t, 8, status.NetworkBlockHeight)
	require.EqualValues(t, 8, status.LocalBlockHeight)
	require.EqualValues(t, 8, status.AccountBlockHeight)
	require.True(t, status.IsSynced)

	require.NoError(t, s.sender.Resync())
	status, err = s.sender.SyncStatus()
	require.NoError(t, err)
	require.False(t, status.IsSynced)
}

func (s *AccountSuite) TestOrphanBackfill() {
	t := s.T()
	s.net.MintTo(s.sender.view.Subaddress(5), 3_000_000)
	mineAndSync(t, s.net, s.node)

	bal, err := s.sender.Balance()
	require.NoError(t, err)
	require.EqualValues(t, 3_000_000, bal.Orphaned)
	require.EqualValues(t, 0, bal.Unspent)

	txos, err := s.sender.Txos(10, 0)
	require.NoError(t, err)
	require.Len(t, txos, 1)
	require.Equal(t, walletdb.TxoStatusOrphaned, walletdb.DeriveTxoStatus(txos[0], s.sender.ID()))

	subs, err := s.sender.AssignSubaddressBatch(4, "backfill")
	require.NoError(t, err)
	require.Len(t, subs, 4)
	require.EqualValues(t, 2, subs[0].SubaddressIndex)
	require.EqualValues(t, 5, subs[3].SubaddressIndex)

	bal = requireBalance(t, s.sender, 3_000_000, 0, 0)
	require.EqualValues(t, 0, bal.Orphaned)

	txo, _, err := s.sender.Txo(txos[0].ID)
	require.NoError(t, err)
	require.EqualValues(t, 5, *txo.SubaddressIndex)
	require.NotNil(t, txo.KeyImage)

	t.Run("backfilled outputs are spendable", func(t *testing.T) {
		_, err := s.sender.BuildAndSubmit(&SendOpts{
			Payments: pay(s.recipient.view.DefaultAddress(), 1_000_000),
		})
		require.NoError(t, err)
		mineAndSync(t, s.net, s.node)
		requireBalance(t, s.sender, 1_990_000, 0, 3_000_000)
	})
}

func (s *AccountSuite) TestSubaddresses() {
	t := s.T()
	subs, err := s.sender.Subaddresses(10, 0)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, "Main", subs[0].Comment)
	require.Equal(t, s.sender.MainAddress(), subs[0].PublicAddressB58)
	require.Equal(t, "Change", subs[1].Comment)

	sub, err := s.sender.AssignSubaddress("invoice 12")
	require.NoError(t, err)
	require.EqualValues(t, 2, sub.SubaddressIndex)
	require.Equal(t, s.sender.view.Subaddress(2).B58(chain.NetworkRegtest), sub.PublicAddressB58)

	s.net.MintTo(s.sender.view.Subaddress(2), 1234)
	mineAndSync(t, s.net, s.node)
	requireBalance(t, s.sender, 1234, 0, 0)

	t.Run("rejects foreign subaddresses", func(t *testing.T) {
		req, err := s.sender.CreateSubaddressesRequest(1)
		require.NoError(t, err)
		foreign := chain.NewRandomAccountKey().Subaddress(req.NextSubaddressIndex)
		_, err = s.sender.ImportSubaddresses(&SubaddressesResponse{
			AccountID:           s.sender.ID(),
			NextSubaddressIndex: req.NextSubaddressIndex + 1,
			Subaddresses: []*GeneratedSubaddress{{
				Index:          req.NextSubaddressIndex,
				ViewPublicKey:  foreign.ViewPublicKey,
				SpendPublicKey: foreign.SpendPublicKey,
			}},
		}, "")
		require.ErrorIs(t, err, ErrSubaddressMismatch)
	})

	t.Run("rejects out of order subaddresses", func(t *testing.T) {
		req, err := s.sender.CreateSubaddressesRequest(1)
		require.NoError(t, err)
		addr := s.sender.view.Subaddress(req.NextSubaddressIndex + 1)
		_, err = s.sender.ImportSubaddresses(&SubaddressesResponse{
			AccountID: s.sender.ID(),
			Subaddresses: []*GeneratedSubaddress{{
				Index:          req.NextSubaddressIndex + 1,
				ViewPublicKey:  addr.ViewPublicKey,
				SpendPublicKey: addr.SpendPublicKey,
			}},
		}, "")
		require.ErrorIs(t, err, ErrSubaddressMismatch)
	})
}

func TestAccountSuite(t *testing.T) {
	suite.Run(t, new(AccountSuite))
}

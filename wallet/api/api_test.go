package api

import (
	"bytes"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/chain/chaintest"
	"github.com/kurumiimari/umbra/ghttp"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/testutil"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gopkg.in/tomb.v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

const testAPIKey = "sekrit"

type APISuite struct {
	suite.Suite
	net    *chaintest.MockNetwork
	srv    *httptest.Server
	client *Client
}

func (s *APISuite) SetupTest() {
	t := s.T()
	s.net = chaintest.NewMockNetwork()
	s.srv, s.client = startAPI(t, s.net)
}

func (s *APISuite) TearDownTest() {
	s.srv.Close()
}

func startAPI(t *testing.T, net *chaintest.MockNetwork) (*httptest.Server, *Client) {
	dir := t.TempDir()
	engine, err := walletdb.NewEngine(dir)
	require.NoError(t, err)
	require.NoError(t, walletdb.MigrateDB(engine))
	ledger, err := ledgerdb.Open(filepath.Join(dir, "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, ledger.Close())
		require.NoError(t, engine.Close())
	})

	node := wallet.NewNode(new(tomb.Tomb), chain.NetworkRegtest, engine, ledger, net, net)
	require.NoError(t, node.Load())
	srv := httptest.NewServer(NewAPI(chain.NetworkRegtest, node, testAPIKey))
	return srv, NewClient(srv.URL, testAPIKey)
}

func (s *APISuite) createAccount(name string) *AccountRes {
	res, err := s.client.CreateAccount(&CreateAccountReq{Name: name})
	s.Require().NoError(err)
	s.Require().NotNil(res.Mnemonic)
	return res.Account
}

func (s *APISuite) mint(acc *AccountRes, value uint64) {
	addr, err := chain.PublicAddressFromB58(chain.NetworkRegtest, acc.MainAddress)
	s.Require().NoError(err)
	s.net.MintTo(addr, value)
	s.mineAndPoll()
}

func (s *APISuite) mineAndPoll() {
	s.net.MineBlock()
	s.Require().NoError(s.client.Poll())
}

func requireStatus(t *testing.T, err error, code int) {
	require.Error(t, err)
	require.Equal(t, code, ghttp.StatusCode(err))
}

func (s *APISuite) TestAuth() {
	t := s.T()
	_, err := NewClient(s.srv.URL, "wrong").Status()
	requireStatus(t, err, 401)

	status, err := s.client.Status()
	require.NoError(t, err)
	require.Equal(t, "regtest", status.Network)
}

func (s *APISuite) TestAccounts() {
	t := s.T()
	acc := s.createAccount("alice")
	require.Equal(t, "alice", acc.Name)
	require.False(t, acc.ViewOnly)

	res, err := s.client.GetAccounts()
	require.NoError(t, err)
	require.Len(t, res.Accounts, 1)
	require.Equal(t, acc.ID, res.Accounts[0].ID)

	got, err := s.client.GetAccount(acc.ID)
	require.NoError(t, err)
	require.Equal(t, acc.MainAddress, got.MainAddress)

	subs, err := s.client.AssignSubaddresses(acc.ID, &AssignSubaddressReq{Comment: "shop", Count: 2})
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.EqualValues(t, chain.ReservedSubaddresses, subs[0].Index)

	subs, err = s.client.GetSubaddresses(acc.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, subs, 4)

	t.Run("duplicate import conflicts", func(t *testing.T) {
		viewKey, err := s.client.GetViewKey(acc.ID)
		require.NoError(t, err)
		_, err = s.client.CreateAccount(&CreateAccountReq{Name: "watch", ViewKey: viewKey.ViewKey})
		requireStatus(t, err, 409)
	})

	t.Run("missing account", func(t *testing.T) {
		_, err := s.client.GetBalance("nope")
		requireStatus(t, err, 404)
	})

	t.Run("missing name", func(t *testing.T) {
		_, err := s.client.CreateAccount(&CreateAccountReq{})
		requireStatus(t, err, 400)
	})

	require.NoError(t, s.client.RemoveAccount(acc.ID))
	_, err = s.client.GetAccount(acc.ID)
	requireStatus(t, err, 404)
}

func (s *APISuite) TestSend() {
	t := s.T()
	alice := s.createAccount("alice")
	bob := s.createAccount("bob")
	s.mint(alice, 10_000_000)

	bal, err := s.client.GetBalance(alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 10_000_000, bal.Unspent)

	txLog, err := s.client.Send(alice.ID, &SendReq{
		Payments:         []*PaymentReq{{Address: bob.MainAddress, Value: 1_000_000}},
		PaymentRequestID: 9,
		Comment:          "lunch",
	})
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusSubmitted, txLog.Status)
	require.Equal(t, "lunch", txLog.Comment)
	require.EqualValues(t, chain.NetworkRegtest.MinimumFee, txLog.Fee)
	testutil.RequireJSONFields(t, map[string]interface{}{
		"account_id": alice.ID,
		"status":     "submitted",
		"value":      1_000_000,
		"comment":    "lunch",
	}, txLog)

	s.mineAndPoll()
	txLog, err = s.client.GetTransactionLog(alice.ID, txLog.ID)
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusFinalized, txLog.Status)

	bal, err = s.client.GetBalance(alice.ID)
	require.NoError(t, err)
	require.EqualValues(t, 8_990_000, bal.Unspent)

	txos, err := s.client.GetTxos(bob.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, txos, 1)
	require.Equal(t, walletdb.TxoStatusUnspent, txos[0].Status)
	require.EqualValues(t, 1_000_000, txos[0].Value)

	txo, err := s.client.GetTxo(bob.ID, txos[0].ID)
	require.NoError(t, err)
	require.NotNil(t, txo.Memo)
	require.EqualValues(t, 9, *txo.Memo.PaymentRequestID)

	valid, err := s.client.ValidateSenderMemo(bob.ID, txo.ID, alice.MainAddress)
	require.NoError(t, err)
	require.True(t, valid)

	logs, err := s.client.GetTransactionLogs(alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	status, err := s.client.WalletStatus()
	require.NoError(t, err)
	require.True(t, status.IsSynced)
	require.EqualValues(t, 8_990_000+1_000_000, status.Balance.Unspent)
}

func (s *APISuite) TestSendErrors() {
	alice := s.createAccount("alice")
	bob := s.createAccount("bob")
	s.mint(alice, 1_000_000)

	tests := []struct {
		name string
		req  *SendReq
		code int
	}{
		{"insufficient funds", &SendReq{Payments: []*PaymentReq{{Address: bob.MainAddress, Value: 5_000_000}}}, 409},
		{"bad address", &SendReq{Payments: []*PaymentReq{{Address: "garbage", Value: 1}}}, 400},
		{"no payments", &SendReq{}, 400},
		{"fee too low", &SendReq{Payments: []*PaymentReq{{Address: bob.MainAddress, Value: 1}}, Fee: 1}, 400},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.client.Send(alice.ID, tt.req)
			requireStatus(s.T(), err, tt.code)
		})
	}
}

func (s *APISuite) TestBuildAndSubmit() {
	t := s.T()
	alice := s.createAccount("alice")
	bob := s.createAccount("bob")
	s.mint(alice, 2_000_000)

	txLog, err := s.client.Send(alice.ID, &SendReq{
		Payments:  []*PaymentReq{{Address: bob.MainAddress, Value: 500_000}},
		BuildOnly: true,
	})
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusBuilt, txLog.Status)
	require.Empty(t, s.net.Mempool())

	txLog, err = s.client.SubmitTransaction(alice.ID, txLog.ID)
	require.NoError(t, err)
	require.Equal(t, walletdb.TransactionLogStatusSubmitted, txLog.Status)
	require.Len(t, s.net.Mempool(), 1)

	_, err = s.client.SubmitTransaction(alice.ID, txLog.ID)
	requireStatus(t, err, 409)
}

func (s *APISuite) TestReceipts() {
	t := s.T()
	alice := s.createAccount("alice")
	bob := s.createAccount("bob")
	s.mint(alice, 2_000_000)

	txLog, err := s.client.Send(alice.ID, &SendReq{
		Payments: []*PaymentReq{{Address: bob.MainAddress, Value: 500_000}},
	})
	require.NoError(t, err)

	receipts, err := s.client.GetReceipts(alice.ID, txLog.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)

	res, err := s.client.CheckReceiptStatus(bob.ID, receipts[0])
	require.NoError(t, err)
	require.Equal(t, wallet.ReceiptStatusPending, res.Status)
	require.Nil(t, res.Txo)

	_, err = s.client.CheckReceiptStatus(alice.ID, receipts[0])
	requireStatus(t, err, 400)

	s.mineAndPoll()
	res, err = s.client.CheckReceiptStatus(bob.ID, receipts[0])
	require.NoError(t, err)
	require.Equal(t, wallet.ReceiptStatusReceived, res.Status)
	require.NotNil(t, res.Txo)
	require.EqualValues(t, 500_000, res.Txo.Value)

	_, err = s.client.GetReceipts(alice.ID, "missing")
	requireStatus(t, err, 404)
}

func (s *APISuite) TestGiftCodes() {
	t := s.T()
	alice := s.createAccount("alice")
	bob := s.createAccount("bob")
	s.mint(alice, 5_000_000)

	gc, err := s.client.CreateGiftCode(&CreateGiftCodeReq{
		AccountID: alice.ID,
		Value:     1_000_000,
		Memo:      "thanks",
	})
	require.NoError(t, err)
	require.Equal(t, alice.ID, gc.FundingAccountID)

	info, err := s.client.GetGiftCodeStatus(gc.GiftCode)
	require.NoError(t, err)
	require.Equal(t, wallet.GiftCodeStatusFunding, info.Status)

	s.mineAndPoll()
	info, err = s.client.GetGiftCodeStatus(gc.GiftCode)
	require.NoError(t, err)
	require.Equal(t, wallet.GiftCodeStatusAvailable, info.Status)
	require.Equal(t, "thanks", info.Memo)

	claim, err := s.client.ClaimGiftCode(gc.GiftCode, bob.ID)
	require.NoError(t, err)
	require.EqualValues(t, 990_000, claim.Value)
	s.mineAndPoll()

	info, err = s.client.GetGiftCodeStatus(gc.GiftCode)
	require.NoError(t, err)
	require.Equal(t, wallet.GiftCodeStatusClaimed, info.Status)
	_, err = s.client.ClaimGiftCode(gc.GiftCode, bob.ID)
	requireStatus(t, err, 409)

	codes, err := s.client.GetGiftCodes(10, 0)
	require.NoError(t, err)
	require.Len(t, codes, 1)
	require.NoError(t, s.client.RemoveGiftCode(gc.GiftCode))

	_, err = s.client.GetGiftCodeStatus("not-a-code")
	requireStatus(t, err, 400)
}

func (s *APISuite) TestMalformedJSON() {
	t := s.T()
	req, err := http.NewRequest("POST", s.srv.URL+"/api/v1/accounts", bytes.NewReader([]byte("{")))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", testAPIKey)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()
	require.Equal(t, 400, res.StatusCode)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		code int
	}{
		{errors.Wrap(walletdb.ErrNotFound, "txo"), 404},
		{wallet.ErrAccountNotFound, 404},
		{wallet.ErrFragmentedFunds, 409},
		{wallet.ErrInvalidLogState, 409},
		{wallet.ErrSignedTxMismatch, 400},
		{errors.Wrap(wallet.ErrInvalidReceipt, "amount does not open"), 400},
		{chain.ErrInvalidAddress, 400},
		{errors.New("disk on fire"), 500},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			require.Equal(t, tt.code, StatusCode(tt.err))
		})
	}
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APISuite))
}

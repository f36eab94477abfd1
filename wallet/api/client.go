package api

import (
	"fmt"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ghttp"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/walletdb"
	"net/url"
	"strings"
)

type Client struct {
	url    string
	apiKey string
	http   *ghttp.HTTPClient
}

func NewClient(url string, apiKey string) *Client {
	return &Client{
		url:    strings.TrimSuffix(url, "/"),
		apiKey: apiKey,
		http:   ghttp.DefaultClient,
	}
}

func (c *Client) Status() (*wallet.NodeStatus, error) {
	res := new(wallet.NodeStatus)
	err := c.doGet("api/v1/status", res)
	return res, err
}

func (c *Client) WalletStatus() (*wallet.WalletStatus, error) {
	res := new(wallet.WalletStatus)
	err := c.doGet("api/v1/wallet_status", res)
	return res, err
}

func (c *Client) Poll() error {
	return c.doPost("api/v1/poll", nil, nil)
}

func (c *Client) CreateAccount(req *CreateAccountReq) (*CreateAccountRes, error) {
	res := new(CreateAccountRes)
	err := c.doPost("api/v1/accounts", req, res)
	return res, err
}

func (c *Client) GetAccounts() (*GetAccountsRes, error) {
	res := new(GetAccountsRes)
	err := c.doGet("api/v1/accounts", res)
	return res, err
}

func (c *Client) GetAccount(accountID string) (*AccountRes, error) {
	res := new(AccountRes)
	err := c.doGet(c.accountPath(accountID), res)
	return res, err
}

func (c *Client) RemoveAccount(accountID string) error {
	return c.doDelete(c.accountPath(accountID))
}

func (c *Client) Resync(accountID string) error {
	return c.doPost(c.accountPath(accountID, "resync"), nil, nil)
}

func (c *Client) GetViewKey(accountID string) (*ViewKeyRes, error) {
	res := new(ViewKeyRes)
	err := c.doGet(c.accountPath(accountID, "view_key"), res)
	return res, err
}

func (c *Client) GetBalance(accountID string) (*walletdb.Balance, error) {
	res := new(walletdb.Balance)
	err := c.doGet(c.accountPath(accountID, "balance"), res)
	return res, err
}

func (c *Client) GetSyncStatus(accountID string) (*wallet.SyncStatus, error) {
	res := new(wallet.SyncStatus)
	err := c.doGet(c.accountPath(accountID, "sync_status"), res)
	return res, err
}

func (c *Client) GetSubaddresses(accountID string, count, offset int) ([]*SubaddressRes, error) {
	var res []*SubaddressRes
	err := c.doGet(QueryStringPath(c.accountPath(accountID, "subaddresses"), PaginationQuery(count, offset)), &res)
	return res, err
}

func (c *Client) AssignSubaddresses(accountID string, req *AssignSubaddressReq) ([]*SubaddressRes, error) {
	var res []*SubaddressRes
	err := c.doPost(c.accountPath(accountID, "subaddresses"), req, &res)
	return res, err
}

func (c *Client) GetTxos(accountID string, count, offset int) ([]*TxoRes, error) {
	var res []*TxoRes
	err := c.doGet(QueryStringPath(c.accountPath(accountID, "txos"), PaginationQuery(count, offset)), &res)
	return res, err
}

func (c *Client) GetTxo(accountID, txoID string) (*TxoRes, error) {
	res := new(TxoRes)
	err := c.doGet(c.accountPath(accountID, "txos", txoID), res)
	return res, err
}

func (c *Client) ValidateSenderMemo(accountID, txoID, sender string) (bool, error) {
	res := new(ValidateSenderMemoRes)
	err := c.doPost(c.accountPath(accountID, "txos", txoID, "validate_sender_memo"), &ValidateSenderMemoReq{
		Sender: sender,
	}, res)
	return res.Valid, err
}

func (c *Client) GetTransactionLogs(accountID string, count, offset int) ([]*TransactionLogRes, error) {
	var res []*TransactionLogRes
	err := c.doGet(QueryStringPath(c.accountPath(accountID, "transaction_logs"), PaginationQuery(count, offset)), &res)
	return res, err
}

func (c *Client) GetTransactionLog(accountID, logID string) (*TransactionLogRes, error) {
	res := new(TransactionLogRes)
	err := c.doGet(c.accountPath(accountID, "transaction_logs", logID), res)
	return res, err
}

func (c *Client) SubmitTransaction(accountID, logID string) (*TransactionLogRes, error) {
	res := new(TransactionLogRes)
	err := c.doPost(c.accountPath(accountID, "transaction_logs", logID, "submit"), nil, res)
	return res, err
}

func (c *Client) GetReceipts(accountID, logID string) ([]*wallet.ReceiverReceipt, error) {
	var res []*wallet.ReceiverReceipt
	err := c.doGet(c.accountPath(accountID, "transaction_logs", logID, "receipts"), &res)
	return res, err
}

func (c *Client) CheckReceiptStatus(accountID string, receipt *wallet.ReceiverReceipt) (*ReceiptStatusRes, error) {
	res := new(ReceiptStatusRes)
	err := c.doPost(c.accountPath(accountID, "receipt_status"), &ReceiptStatusReq{
		Receipt: receipt,
	}, res)
	return res, err
}

func (c *Client) Send(accountID string, req *SendReq) (*TransactionLogRes, error) {
	res := new(TransactionLogRes)
	err := c.doPost(c.accountPath(accountID, "transactions"), req, res)
	return res, err
}

func (c *Client) BuildUnsignedTransaction(accountID string, req *SendReq) (*wallet.UnsignedTransaction, error) {
	res := new(wallet.UnsignedTransaction)
	err := c.doPost(c.accountPath(accountID, "unsigned_transactions"), req, res)
	return res, err
}

func (c *Client) SubmitSignedTransaction(accountID string, tx *chain.Tx) (*TransactionLogRes, error) {
	res := new(TransactionLogRes)
	err := c.doPost(c.accountPath(accountID, "signed_transactions"), &SignedTransactionReq{Tx: tx}, res)
	return res, err
}

func (c *Client) GetSyncRequest(accountID string) (*wallet.SyncRequest, error) {
	res := new(wallet.SyncRequest)
	err := c.doGet(c.accountPath(accountID, "sync_request"), res)
	return res, err
}

func (c *Client) SyncTxos(accountID string, req *wallet.SyncResponse) (int, error) {
	res := new(SyncedTxosRes)
	err := c.doPost(c.accountPath(accountID, "synced_txos"), req, res)
	return res.Count, err
}

func (c *Client) CreateSubaddressesRequest(accountID string, count int) (*wallet.SubaddressesRequest, error) {
	res := new(wallet.SubaddressesRequest)
	err := c.doPost(c.accountPath(accountID, "subaddress_requests"), &SubaddressRequestReq{Count: count}, res)
	return res, err
}

func (c *Client) ImportSubaddresses(accountID string, req *ImportSubaddressesReq) ([]*SubaddressRes, error) {
	var res []*SubaddressRes
	err := c.doPost(c.accountPath(accountID, "imported_subaddresses"), req, &res)
	return res, err
}

func (c *Client) CreateGiftCode(req *CreateGiftCodeReq) (*GiftCodeRes, error) {
	res := new(GiftCodeRes)
	err := c.doPost("api/v1/gift_codes", req, res)
	return res, err
}

func (c *Client) GetGiftCodes(count, offset int) ([]*GiftCodeRes, error) {
	var res []*GiftCodeRes
	err := c.doGet(QueryStringPath("api/v1/gift_codes", PaginationQuery(count, offset)), &res)
	return res, err
}

func (c *Client) GetGiftCodeStatus(code string) (*wallet.GiftCodeInfo, error) {
	res := new(wallet.GiftCodeInfo)
	err := c.doGet(c.giftCodePath(code), res)
	return res, err
}

func (c *Client) ClaimGiftCode(code, accountID string) (*TransactionLogRes, error) {
	res := new(TransactionLogRes)
	err := c.doPost(c.giftCodePath(code, "claim"), &ClaimGiftCodeReq{AccountID: accountID}, res)
	return res, err
}

func (c *Client) RemoveGiftCode(code string) error {
	return c.doDelete(c.giftCodePath(code))
}

func (c *Client) doGet(path string, resObj interface{}) error {
	return c.http.DoGetJSON(fmt.Sprintf("%s/%s", c.url, path), resObj, c.authHeader())
}

func (c *Client) doPost(path string, reqObj interface{}, resObj interface{}) error {
	return c.http.DoPostJSON(fmt.Sprintf("%s/%s", c.url, path), reqObj, resObj, c.authHeader())
}

func (c *Client) doDelete(path string) error {
	return c.http.DoDeleteJSON(fmt.Sprintf("%s/%s", c.url, path), nil, c.authHeader())
}

func (c *Client) authHeader() ghttp.RequestOption {
	return ghttp.WithHeader("X-API-Key", c.apiKey)
}

func (c *Client) accountPath(accountID string, parts ...string) string {
	return c.path(append([]string{"api/v1/accounts", accountID}, parts...)...)
}

func (c *Client) giftCodePath(code string, parts ...string) string {
	return c.path(append([]string{"api/v1/gift_codes", code}, parts...)...)
}

func (c *Client) path(parts ...string) string {
	escaped := make([]string, len(parts))
	for i, part := range parts {
		if i == 0 {
			escaped[i] = part
			continue
		}
		escaped[i] = url.PathEscape(part)
	}
	return strings.Join(escaped, "/")
}

func QueryStringPath(path string, query url.Values) string {
	return fmt.Sprintf("%s?%s", path, query.Encode())
}

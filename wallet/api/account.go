package api

import (
	"github.com/gorilla/mux"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/pkg/errors"
	"net/http"
)

func (a *API) HandleAccountsGET(w http.ResponseWriter, r *http.Request) {
	res := &GetAccountsRes{
		Accounts: make([]*AccountRes, 0),
	}
	for _, acc := range a.node.Accounts() {
		accRes, err := NewAccountRes(acc)
		if err != nil {
			MarshalError(w, err)
			return
		}
		res.Accounts = append(res.Accounts, accRes)
	}
	MarshalResponseJSON(w, res)
}

// HandleAccountsPOST creates an account. The request's key fields pick the
// import mode: a mnemonic, a raw key pair, a view-only key, or nothing for
// a fresh account.
func (a *API) HandleAccountsPOST(w http.ResponseWriter, r *http.Request) {
	req := new(CreateAccountReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.Name == "" {
		MarshalErrorJSON(w, errors.New("must define an account name"), 400)
		return
	}

	opts := &wallet.AccountOpts{
		Name:            req.Name,
		FirstBlockIndex: req.FirstBlockIndex,
	}
	res := new(CreateAccountRes)
	var acc *wallet.Account
	var err error
	switch {
	case req.Mnemonic != "":
		acc, err = a.node.ImportAccount(req.Mnemonic, opts)
	case req.ViewPrivateKey != nil || req.SpendPrivateKey != nil:
		if req.ViewPrivateKey == nil || req.SpendPrivateKey == nil {
			MarshalErrorJSON(w, errors.New("must define both view and spend private keys"), 400)
			return
		}
		acc, err = a.node.ImportAccountKey(*req.ViewPrivateKey, *req.SpendPrivateKey, opts)
	case req.ViewKey != "":
		view, decErr := DecodeViewKey(req.ViewKey)
		if decErr != nil {
			MarshalErrorJSON(w, errors.Wrap(decErr, "invalid view key"), 400)
			return
		}
		acc, err = a.node.ImportViewOnlyAccount(view, opts)
	default:
		var mnemonic string
		acc, mnemonic, err = a.node.CreateAccount(req.Name)
		res.Mnemonic = &mnemonic
	}
	if err != nil {
		MarshalError(w, err)
		return
	}

	res.Account, err = NewAccountRes(acc)
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, res)
}

func (a *API) HandleAccountGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	res, err := NewAccountRes(acc)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, res)
}

func (a *API) HandleAccountDELETE(w http.ResponseWriter, r *http.Request) {
	if err := a.node.RemoveAccount(mux.Vars(r)["accountID"]); err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(204)
}

func (a *API) HandleResyncPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	if err := acc.Resync(); err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(204)
}

func (a *API) HandleViewKeyGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	MarshalResponseJSON(w, &ViewKeyRes{
		AccountID: acc.ID(),
		ViewKey:   EncodeViewKey(acc.ViewKey()),
	})
}

func (a *API) HandleBalanceGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	bal, err := acc.Balance()
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, bal)
}

func (a *API) HandleSyncStatusGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	status, err := acc.SyncStatus()
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, status)
}

func (a *API) HandleSubaddressesGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	count, offset := pagination(r)
	subs, err := acc.Subaddresses(count, offset)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, NewSubaddressesRes(subs))
}

func (a *API) HandleSubaddressesPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(AssignSubaddressReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.Count == 0 {
		req.Count = 1
	}
	subs, err := acc.AssignSubaddressBatch(req.Count, req.Comment)
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, NewSubaddressesRes(subs))
}

func (a *API) HandleTxosGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	count, offset := pagination(r)
	txos, err := acc.Txos(count, offset)
	if err != nil {
		MarshalError(w, err)
		return
	}
	res := make([]*TxoRes, len(txos))
	for i, txo := range txos {
		res[i] = NewTxoRes(txo, acc.ID(), nil)
	}
	MarshalResponseJSON(w, res)
}

func (a *API) HandleTxoGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	txo, memo, err := acc.Txo(mux.Vars(r)["txoID"])
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, NewTxoRes(txo, acc.ID(), memo))
}

func (a *API) HandleValidateSenderMemoPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(ValidateSenderMemoReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	valid, err := acc.ValidateSenderMemo(mux.Vars(r)["txoID"], req.Sender)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, &ValidateSenderMemoRes{Valid: valid})
}

func (a *API) account(w http.ResponseWriter, r *http.Request) (*wallet.Account, bool) {
	acc, err := a.node.Account(mux.Vars(r)["accountID"])
	if err != nil {
		MarshalError(w, err)
		return nil, false
	}
	return acc, true
}

func pagination(r *http.Request) (int, int) {
	query := r.URL.Query()
	count := GetIntFromQuery(query, "count", 50)
	if count > 500 {
		count = 500
	}
	return count, GetIntFromQuery(query, "offset", 0)
}

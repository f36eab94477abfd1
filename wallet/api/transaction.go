package api

import (
	"github.com/gorilla/mux"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"net/http"
)

func (a *API) HandleTransactionLogsGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	count, offset := pagination(r)
	logs, err := acc.TransactionLogs(count, offset)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, NewTransactionLogsRes(logs))
}

func (a *API) HandleTransactionLogGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	txLog, err := acc.TransactionLog(mux.Vars(r)["logID"])
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, NewTransactionLogRes(txLog))
}

func (a *API) HandleSubmitPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	txLog, err := acc.SubmitTransaction(mux.Vars(r)["logID"])
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, NewTransactionLogRes(txLog))
}

func (a *API) HandleTransactionsPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(SendReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	opts, err := req.SendOpts(a.network)
	if err != nil {
		MarshalError(w, err)
		return
	}

	var txLog *walletdb.TransactionLog
	if req.BuildOnly {
		txLog, err = acc.BuildTransaction(opts)
	} else {
		txLog, err = acc.BuildAndSubmit(opts)
	}
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, NewTransactionLogRes(txLog))
}

func (a *API) HandleUnsignedTransactionsPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(SendReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	opts, err := req.SendOpts(a.network)
	if err != nil {
		MarshalError(w, err)
		return
	}
	unsigned, err := acc.BuildUnsignedTransaction(opts)
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, unsigned)
}

func (a *API) HandleSignedTransactionsPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(SignedTransactionReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.Tx == nil {
		MarshalErrorJSON(w, errors.New("must define a signed transaction"), 400)
		return
	}
	txLog, err := acc.SubmitSignedTransaction(req.Tx)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, NewTransactionLogRes(txLog))
}

func (a *API) HandleReceiptsGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	receipts, err := acc.CreateReceiverReceipts(mux.Vars(r)["logID"])
	if err != nil {
		MarshalError(w, err)
		return
	}
	if receipts == nil {
		receipts = make([]*wallet.ReceiverReceipt, 0)
	}
	MarshalResponseJSON(w, receipts)
}

func (a *API) HandleReceiptStatusPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(ReceiptStatusReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.Receipt == nil {
		MarshalErrorJSON(w, errors.New("must define a receipt"), 400)
		return
	}
	status, txo, err := acc.CheckReceiptStatus(req.Receipt)
	if err != nil {
		MarshalError(w, err)
		return
	}
	res := &ReceiptStatusRes{Status: status}
	if txo != nil {
		res.Txo = NewTxoRes(txo, acc.ID(), nil)
	}
	MarshalResponseJSON(w, res)
}

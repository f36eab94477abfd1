package api

import (
	"github.com/kurumiimari/umbra/wallet"
	"github.com/pkg/errors"
	"net/http"
)

func (a *API) HandleSyncRequestGET(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req, err := acc.CreateSyncRequest()
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, req)
}

func (a *API) HandleSyncedTxosPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(wallet.SyncResponse)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	n, err := acc.SyncTxos(req)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, &SyncedTxosRes{Count: n})
}

func (a *API) HandleSubaddressRequestsPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(SubaddressRequestReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.Count <= 0 {
		MarshalErrorJSON(w, errors.New("count must be positive"), 400)
		return
	}
	subReq, err := acc.CreateSubaddressesRequest(req.Count)
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, subReq)
}

func (a *API) HandleImportedSubaddressesPOST(w http.ResponseWriter, r *http.Request) {
	acc, ok := a.account(w, r)
	if !ok {
		return
	}
	req := new(ImportSubaddressesReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.Response == nil {
		MarshalErrorJSON(w, errors.New("must define a subaddresses response"), 400)
		return
	}
	subs, err := acc.ImportSubaddresses(req.Response, req.Comment)
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, NewSubaddressesRes(subs))
}

package api

import (
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"net/http"
)

func (a *API) HandleGiftCodesGET(w http.ResponseWriter, r *http.Request) {
	count, offset := pagination(r)
	codes, err := a.node.GiftCodes(count, offset)
	if err != nil {
		MarshalError(w, err)
		return
	}
	res := make([]*GiftCodeRes, len(codes))
	for i, gc := range codes {
		res[i] = NewGiftCodeRes(gc)
	}
	MarshalResponseJSON(w, res)
}

// HandleGiftCodesPOST funds a new gift code. A rejected funding transaction
// still answers with an error even though the code was stored.
func (a *API) HandleGiftCodesPOST(w http.ResponseWriter, r *http.Request) {
	req := new(CreateGiftCodeReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	if req.AccountID == "" {
		MarshalErrorJSON(w, errors.New("must define a funding account"), 400)
		return
	}
	gc, err := a.node.CreateGiftCode(req.AccountID, req.Value, req.Memo)
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, NewGiftCodeRes(gc))
}

func (a *API) HandleGiftCodeGET(w http.ResponseWriter, r *http.Request) {
	info, err := a.node.GiftCodeStatus(mux.Vars(r)["giftCode"])
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, info)
}

func (a *API) HandleGiftCodeDELETE(w http.ResponseWriter, r *http.Request) {
	if err := a.node.RemoveGiftCode(mux.Vars(r)["giftCode"]); err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(204)
}

func (a *API) HandleGiftCodeClaimPOST(w http.ResponseWriter, r *http.Request) {
	req := new(ClaimGiftCodeReq)
	if !UnmarshalRequestJSON(w, r, req) {
		return
	}
	txLog, err := a.node.ClaimGiftCode(mux.Vars(r)["giftCode"], req.AccountID)
	if err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(201)
	MarshalResponseJSON(w, NewTransactionLogRes(txLog))
}

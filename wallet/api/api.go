package api

import (
	"encoding/json"
	"github.com/gorilla/mux"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"net/http"
)

var apiLogger = log.ModuleLogger("api")

type ErrorResponse struct {
	Msg string `json:"msg"`
}

var invalidJSONRes = &ErrorResponse{
	Msg: "Mal-formed JSON payload.",
}

func UnmarshalRequestJSON(w http.ResponseWriter, r *http.Request, in interface{}) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(in); err == nil {
		return true
	}
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(400)
	MarshalResponseJSON(w, invalidJSONRes)
	return false
}

// StatusCode maps an error to the HTTP status the API answers with.
func StatusCode(err error) int {
	switch {
	case errors.Is(err, walletdb.ErrNotFound),
		errors.Is(err, wallet.ErrAccountNotFound):
		return 404
	case errors.Is(err, wallet.ErrInsufficientFunds),
		errors.Is(err, wallet.ErrFragmentedFunds),
		errors.Is(err, wallet.ErrAccountExists),
		errors.Is(err, wallet.ErrGiftCodeClaimed),
		errors.Is(err, wallet.ErrInvalidLogState):
		return 409
	case errors.Is(err, wallet.ErrViewOnlyAccount),
		errors.Is(err, wallet.ErrInvalidTombstone),
		errors.Is(err, wallet.ErrFeeTooLow),
		errors.Is(err, wallet.ErrTooManyOutputs),
		errors.Is(err, wallet.ErrNoPayments),
		errors.Is(err, wallet.ErrSubmissionRejected),
		errors.Is(err, wallet.ErrSignedTxMismatch),
		errors.Is(err, wallet.ErrSubaddressMismatch),
		errors.Is(err, wallet.ErrMalformedGiftCode),
		errors.Is(err, wallet.ErrGiftCodeNotFunded),
		errors.Is(err, wallet.ErrGiftCodeValueTooLow),
		errors.Is(err, wallet.ErrInvalidReceipt),
		errors.Is(err, chain.ErrInvalidAddress):
		return 400
	default:
		return 500
	}
}

func MarshalError(w http.ResponseWriter, err error) {
	MarshalErrorJSON(w, err, StatusCode(err))
}

func MarshalErrorJSON(w http.ResponseWriter, err error, code int) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(code)
	if code >= 500 {
		apiLogger.Error("error handling request", "err", err)
		apiLogger.Debug("error stack", "stack", errors.WithStack(err))
	} else {
		apiLogger.Debug("request failed", "code", code, "err", err)
	}
	MarshalResponseJSON(w, &ErrorResponse{Msg: err.Error()})
}

func MarshalResponseJSON(w http.ResponseWriter, out interface{}) {
	data, err := json.Marshal(out)
	if err != nil {
		apiLogger.Panic("error marshaling JSON response, shutting down", "err", err)
	}
	if _, err := w.Write(data); err != nil {
		apiLogger.Warning("error writing JSON response")
	}
}

type API struct {
	network *chain.Network
	node    *wallet.Node
	apiKey  string
}

func NewAPI(network *chain.Network, node *wallet.Node, apiKey string) http.Handler {
	api := &API{
		network: network,
		node:    node,
		apiKey:  apiKey,
	}
	r := mux.NewRouter()
	r.Use(api.apiKeyMiddleware)
	v1 := r.PathPrefix("/api/v1").Subrouter()
	getOnly(v1.HandleFunc("/status", api.Status))
	getOnly(v1.HandleFunc("/wallet_status", api.WalletStatus))
	postOnly(v1.HandleFunc("/poll", api.Poll))
	getOnly(v1.HandleFunc("/accounts", api.HandleAccountsGET))
	jsonPostOnly(v1.HandleFunc("/accounts", api.HandleAccountsPOST))

	accounts := v1.PathPrefix("/accounts/{accountID}").Subrouter()
	getOnly(accounts.HandleFunc("", api.HandleAccountGET))
	deleteOnly(accounts.HandleFunc("", api.HandleAccountDELETE))
	postOnly(accounts.HandleFunc("/resync", api.HandleResyncPOST))
	getOnly(accounts.HandleFunc("/view_key", api.HandleViewKeyGET))
	getOnly(accounts.HandleFunc("/balance", api.HandleBalanceGET))
	getOnly(accounts.HandleFunc("/sync_status", api.HandleSyncStatusGET))
	getOnly(accounts.HandleFunc("/subaddresses", api.HandleSubaddressesGET))
	jsonPostOnly(accounts.HandleFunc("/subaddresses", api.HandleSubaddressesPOST))
	getOnly(accounts.HandleFunc("/txos", api.HandleTxosGET))
	getOnly(accounts.HandleFunc("/txos/{txoID}", api.HandleTxoGET))
	jsonPostOnly(accounts.HandleFunc("/txos/{txoID}/validate_sender_memo", api.HandleValidateSenderMemoPOST))
	getOnly(accounts.HandleFunc("/transaction_logs", api.HandleTransactionLogsGET))
	getOnly(accounts.HandleFunc("/transaction_logs/{logID}", api.HandleTransactionLogGET))
	postOnly(accounts.HandleFunc("/transaction_logs/{logID}/submit", api.HandleSubmitPOST))
	getOnly(accounts.HandleFunc("/transaction_logs/{logID}/receipts", api.HandleReceiptsGET))
	jsonPostOnly(accounts.HandleFunc("/receipt_status", api.HandleReceiptStatusPOST))
	jsonPostOnly(accounts.HandleFunc("/transactions", api.HandleTransactionsPOST))
	jsonPostOnly(accounts.HandleFunc("/unsigned_transactions", api.HandleUnsignedTransactionsPOST))
	jsonPostOnly(accounts.HandleFunc("/signed_transactions", api.HandleSignedTransactionsPOST))
	getOnly(accounts.HandleFunc("/sync_request", api.HandleSyncRequestGET))
	jsonPostOnly(accounts.HandleFunc("/synced_txos", api.HandleSyncedTxosPOST))
	jsonPostOnly(accounts.HandleFunc("/subaddress_requests", api.HandleSubaddressRequestsPOST))
	jsonPostOnly(accounts.HandleFunc("/imported_subaddresses", api.HandleImportedSubaddressesPOST))

	getOnly(v1.HandleFunc("/gift_codes", api.HandleGiftCodesGET))
	jsonPostOnly(v1.HandleFunc("/gift_codes", api.HandleGiftCodesPOST))
	getOnly(v1.HandleFunc("/gift_codes/{giftCode}", api.HandleGiftCodeGET))
	deleteOnly(v1.HandleFunc("/gift_codes/{giftCode}", api.HandleGiftCodeDELETE))
	jsonPostOnly(v1.HandleFunc("/gift_codes/{giftCode}/claim", api.HandleGiftCodeClaimPOST))
	return r
}

func (a *API) Status(w http.ResponseWriter, r *http.Request) {
	status, err := a.node.Status()
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, status)
}

func (a *API) WalletStatus(w http.ResponseWriter, r *http.Request) {
	status, err := a.node.WalletStatus()
	if err != nil {
		MarshalError(w, err)
		return
	}
	MarshalResponseJSON(w, status)
}

func (a *API) Poll(w http.ResponseWriter, r *http.Request) {
	if err := a.node.Sync(); err != nil {
		MarshalError(w, err)
		return
	}
	w.WriteHeader(204)
}

func (a *API) apiKeyMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.apiKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		providedKey := r.Header.Get("X-API-Key")
		if providedKey != a.apiKey {
			MarshalErrorJSON(w, errors.New("invalid API key"), 401)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func getOnly(route *mux.Route) {
	route.Methods("GET")
}

func deleteOnly(route *mux.Route) {
	route.Methods("DELETE")
}

func postOnly(route *mux.Route) *mux.Route {
	route.Methods("POST")
	return route
}

func jsonPostOnly(route *mux.Route) {
	postOnly(route).
		Headers("Content-Type", "application/json")
}

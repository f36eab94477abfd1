package chaintest

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"github.com/kurumiimari/umbra/chain"
	"github.com/pkg/errors"
	"io"
	"net/http"
)

const rpcErrRejected = -32000

type rpcRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	ID      interface{}       `json:"id"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *rpcError   `json:"error,omitempty"`
}

// RPCHandler serves a MockNetwork over the validator JSON-RPC methods the
// wallet's node client calls. Batches are supported.
type RPCHandler struct {
	Network *MockNetwork
}

func NewRPCHandler(network *MockNetwork) *RPCHandler {
	return &RPCHandler{Network: network}
}

func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []*rpcRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		res := make([]*rpcResponse, len(reqs))
		for i, req := range reqs {
			res[i] = h.handle(req)
		}
		_ = json.NewEncoder(w).Encode(res)
		return
	}

	req := new(rpcRequest)
	if err := json.Unmarshal(body, req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(h.handle(req))
}

func (h *RPCHandler) handle(req *rpcRequest) *rpcResponse {
	res := &rpcResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
	}
	result, err := h.dispatch(req)
	if err != nil {
		res.Error = &rpcError{Code: rpcErrRejected, Message: err.Error()}
		return res
	}
	res.Result = result
	return res
}

func (h *RPCHandler) dispatch(req *rpcRequest) (interface{}, error) {
	switch req.Method {
	case "chain_getNetworkHeight":
		return h.Network.NetworkHeight()
	case "chain_getBlock":
		var index uint64
		if err := unmarshalParam(req, 0, &index); err != nil {
			return nil, err
		}
		blocks, err := h.Network.GetBlocks(index, 1)
		if err != nil {
			return nil, err
		}
		if len(blocks) == 0 {
			return nil, errors.New("block not found")
		}
		return hex.EncodeToString(blocks[0].Bytes()), nil
	case "tx_submit":
		var txHex string
		if err := unmarshalParam(req, 0, &txHex); err != nil {
			return nil, err
		}
		raw, err := hex.DecodeString(txHex)
		if err != nil {
			return nil, err
		}
		tx, err := chain.TxFromBytes(raw)
		if err != nil {
			return nil, err
		}
		if err := h.Network.SubmitTx(tx); err != nil {
			return nil, err
		}
		return tx.ID(), nil
	default:
		return nil, errors.Errorf("method %s not found", req.Method)
	}
}

func unmarshalParam(req *rpcRequest, i int, v interface{}) error {
	if len(req.Params) <= i {
		return errors.Errorf("missing param %d", i)
	}
	return json.Unmarshal(req.Params[i], v)
}

package itest

import (
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/chain/chaintest"
	"github.com/kurumiimari/umbra/client"
	"github.com/kurumiimari/umbra/log"
	"net/http/httptest"
)

var validatorLogger = log.ModuleLogger("validator")

// Validator serves an in-memory chain over the JSON-RPC methods the wallet
// daemon polls.
type Validator struct {
	Network *chaintest.MockNetwork
	Client  *client.NodeRPCClient
	srv     *httptest.Server
}

func StartValidator() *Validator {
	network := chaintest.NewMockNetwork()
	srv := httptest.NewServer(chaintest.NewRPCHandler(network))
	validatorLogger.Info("started validator", "url", srv.URL)
	return &Validator{
		Network: network,
		Client:  client.NewNodeRPCClient(srv.URL, ""),
		srv:     srv,
	}
}

func (v *Validator) URL() string {
	return v.srv.URL
}

func (v *Validator) Stop() {
	v.srv.Close()
	validatorLogger.Info("stopped validator")
}

func (v *Validator) Mint(addrB58 string, value uint64) {
	addr, err := chain.PublicAddressFromB58(chain.NetworkRegtest, addrB58)
	if err != nil {
		panic(err)
	}
	v.Network.MintTo(addr, value)
}

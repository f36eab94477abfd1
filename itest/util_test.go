package itest

import (
	"fmt"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/ghttp"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/stretchr/testify/require"
	"gopkg.in/tomb.v2"
	"net"
	"testing"
	"time"
)

const testAPIKey = "itest"

var daemonLogger = log.ModuleLogger("daemon")

type daemon struct {
	client *api.Client
	tmb    *tomb.Tomb
	errC   chan error
}

func (d *daemon) stop(t *testing.T) {
	d.tmb.Kill(nil)
	require.NoError(t, <-d.errC)
}

// startDaemon runs the full wallet daemon against the validator, storing
// its data under prefix.
func startDaemon(t *testing.T, validator *Validator, prefix string) *daemon {
	addr := freeAddr(t)
	d := &daemon{
		tmb:  new(tomb.Tomb),
		errC: make(chan error, 1),
	}
	go func() {
		d.errC <- api.Start(d.tmb, &api.StartOpts{
			Network:    chain.NetworkRegtest,
			Prefix:     prefix,
			APIKey:     testAPIKey,
			NodeURL:    validator.URL(),
			ListenAddr: addr,
		})
	}()

	d.client = api.NewClient(fmt.Sprintf("http://%s", addr), testAPIKey)
	var err error
	for i := 0; i < 20; i++ {
		_, err = d.client.Status()
		if err == nil {
			daemonLogger.Info("started daemon", "prefix", prefix)
			return d
		}
		time.Sleep(100 * time.Millisecond)
	}
	require.NoError(t, err)
	return d
}

func freeAddr(t *testing.T) string {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func createAccount(t *testing.T, client *api.Client, name string) *api.AccountRes {
	res, err := client.CreateAccount(&api.CreateAccountReq{Name: name})
	require.NoError(t, err)
	return res.Account
}

func mineAndPoll(t *testing.T, validator *Validator, client *api.Client) {
	validator.Network.MineBlock()
	require.NoError(t, client.Poll())
}

func requireBalance(t *testing.T, client *api.Client, accountID string, unspent, spent uint64) {
	bal, err := client.GetBalance(accountID)
	require.NoError(t, err)
	require.EqualValues(t, unspent, bal.Unspent, "unspent")
	require.EqualValues(t, spent, bal.Spent, "spent")
}

func randomAddress() string {
	return chain.NewRandomAccountKey().DefaultAddress().B58(chain.NetworkRegtest)
}

func requireStatus(t *testing.T, err error, code int) {
	require.Error(t, err)
	require.Equal(t, code, ghttp.StatusCode(err))
}

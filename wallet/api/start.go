package api

import (
	"fmt"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/client"
	"github.com/kurumiimari/umbra/ledgerdb"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/walletdb"
	"github.com/pkg/errors"
	"gopkg.in/tomb.v2"
	"net/http"
)

type StartOpts struct {
	Network    *chain.Network
	Prefix     string
	APIKey     string
	NodeURL    string
	NodeAPIKey string
	// ListenAddr overrides the network's default wallet port.
	ListenAddr string
}

func Start(tmb *tomb.Tomb, opts *StartOpts) error {
	network := opts.Network
	dataDir, err := wallet.NewDataDir(opts.Prefix)
	if err != nil {
		return err
	}
	if err := dataDir.EnsureNetwork(network.Name); err != nil {
		return err
	}

	engine, err := walletdb.NewEngine(dataDir.NetworkPath(network.Name))
	if err != nil {
		return err
	}
	defer engine.Close()
	if err := walletdb.MigrateDB(engine); err != nil {
		return err
	}

	ledger, err := ledgerdb.Open(dataDir.LedgerPath(network.Name))
	if err != nil {
		return errors.Wrap(err, "error opening ledger")
	}
	defer ledger.Close()

	nodeURL := opts.NodeURL
	if nodeURL == "" {
		nodeURL = fmt.Sprintf("http://localhost:%d", network.NodePort)
	}
	nodeClient := client.NewNodeRPCClient(nodeURL, opts.NodeAPIKey)
	service := wallet.NewNode(tmb, network, engine, ledger, nodeClient, nodeClient)
	if err := service.Start(); err != nil {
		return errors.Wrap(err, "error opening accounts")
	}

	addr := opts.ListenAddr
	if addr == "" {
		addr = fmt.Sprintf(":%d", network.WalletPort)
	}
	srv := &http.Server{
		Addr:    addr,
		Handler: NewAPI(network, service, opts.APIKey),
	}

	tmb.Go(func() error {
		apiLogger.Info("starting HTTP server", "addr", addr)
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "error starting HTTP server")
		}
		return nil
	})

	apiLogger.Info("started wallet", "network", network.Name)
	<-tmb.Dying()
	srv.Close()
	err = tmb.Wait()
	apiLogger.Info("shut down wallet")
	return err
}

package cmd

import (
	"github.com/kurumiimari/umbra"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/spf13/cobra"
	"gopkg.in/tomb.v2"
	"os"
	"os/signal"
	"syscall"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Returns status information about the wallet node",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		status, err := client.Status()
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

var walletStatusCmd = &cobra.Command{
	Use:   "wallet-status",
	Short: "Returns aggregate balances and sync heights across accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		status, err := client.WalletStatus()
		if err != nil {
			return err
		}
		return printJSON(status)
	},
}

var pollCmd = &cobra.Command{
	Use:   "poll",
	Short: "Polls the validator for new blocks and syncs every account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		return client.Poll()
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Starts the umbra daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		network := umbra.Config.Network
		if err := log.InitLogRotator(dataDir.LogPath(network.Name), 10*1024); err != nil {
			return err
		}
		defer log.CloseLogRotator()

		tmb := new(tomb.Tomb)

		go func() {
			sigC := make(chan os.Signal, 1)
			signal.Notify(sigC, syscall.SIGTERM, syscall.SIGINT)
			select {
			case sig := <-sigC:
				cmdLogger.Info("caught signal, shutting down", "signal", sig.String())
				tmb.Kill(nil)
				return
			case <-tmb.Dying():
				return
			}
		}()

		return api.Start(tmb, &api.StartOpts{
			Network:    network,
			Prefix:     umbra.Config.Prefix,
			APIKey:     walletAPIKey,
			NodeURL:    nodeURL,
			NodeAPIKey: nodeAPIKey,
		})
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(walletStatusCmd)
	rootCmd.AddCommand(pollCmd)
	rootCmd.AddCommand(startCmd)
}

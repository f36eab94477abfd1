package cmd

import (
	"github.com/kurumiimari/umbra"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/log"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"os"
	"path"
)

var (
	prefix       string
	network      string
	walletURL    string
	walletAPIKey string
	nodeURL      string
	nodeAPIKey   string
	logLevel     string
	accountID    string
)

var (
	cmdLogger = log.ModuleLogger("cmd")
	dataDir   *wallet.DataDir
)

var rootCmd = &cobra.Command{
	Use:          "umbra",
	Short:        "A self-custodial confidential wallet node",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		network, err := chain.NetworkFromName(network)
		if err != nil {
			return errors.Wrap(err, "invalid network")
		}
		if err := log.SetLevel(logLevel); err != nil {
			return errors.Wrap(err, "invalid log level")
		}

		dd, err := wallet.NewDataDir(prefix)
		if err != nil {
			return errors.Wrap(err, "invalid prefix")
		}
		if err := dd.EnsureNetwork(network.Name); err != nil {
			return errors.Wrap(err, "error creating network directory")
		}

		dataDir = dd
		umbra.Config.Prefix = prefix
		umbra.Config.Network = network
		umbra.Config.LogLevel = logLevel
		return nil
	},
}

func keystorePath() string {
	return path.Join(dataDir.NetworkPath(umbra.Config.Network.Name), "keystore.json")
}

func init() {
	rootCmd.PersistentFlags().StringVar(&prefix, "prefix", "~/.umbra", "Sets umbra's data directory")
	rootCmd.PersistentFlags().StringVarP(&network, "network", "n", "main", "Sets umbra's network")
	rootCmd.PersistentFlags().StringVarP(&walletURL, "wallet-url", "u", "", "Sets a custom wallet API url")
	rootCmd.PersistentFlags().StringVar(&walletAPIKey, "api-key", "", "Sets the wallet's API key.")
	rootCmd.PersistentFlags().StringVar(&nodeURL, "node-url", "", "Sets an alternate URL to the validator node.")
	rootCmd.PersistentFlags().StringVar(&nodeAPIKey, "node-api-key", "", "Sets the validator node's API key.")
	rootCmd.PersistentFlags().StringVarP(&accountID, "account-id", "a", "", "Sets the account ID")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Sets the log level")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

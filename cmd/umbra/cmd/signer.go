package cmd

import (
	"fmt"
	"github.com/kurumiimari/umbra"
	"github.com/kurumiimari/umbra/chain"
	"github.com/kurumiimari/umbra/signer"
	"github.com/kurumiimari/umbra/wallet"
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	keystoreFile     string
	signerImport     bool
	signerImportName string
)

var signerCmd = &cobra.Command{
	Use:   "signer",
	Short: "Offline signer for view-only accounts",
}

var signerCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Creates an encrypted keystore from a new or existing mnemonic",
	RunE: func(cmd *cobra.Command, args []string) error {
		mnemonic, err := readSecret("Please paste in your mnemonic, or press enter to generate one: ")
		if err != nil {
			return errors.Wrap(err, "error reading mnemonic")
		}
		generated := mnemonic == ""
		if generated {
			mnemonic = chain.GenerateMnemonic()
		}

		password, err := readSecret("Please enter a password to encrypt your keystore: ")
		if err != nil {
			return errors.Wrap(err, "error reading password")
		}
		confirm, err := readSecret("Please confirm your password: ")
		if err != nil {
			return errors.Wrap(err, "error reading password")
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}

		ks, err := signer.CreateKeystore(signerKeystorePath(), umbra.Config.Network, mnemonic, password)
		if err != nil {
			return err
		}
		if generated {
			fmt.Println("STORE YOUR SEED PHRASE SECURELY. IT WILL NOT BE SHOWN AGAIN.")
			fmt.Println("")
			fmt.Println(mnemonic)
			fmt.Println("")
		}
		fmt.Printf("Created keystore for account %s.\n", ks.AccountID())
		return nil
	},
}

var signerViewKeyCmd = &cobra.Command{
	Use:   "view-key",
	Short: "Exports the view key a wallet needs to watch this account",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := unlockSigner()
		if err != nil {
			return err
		}
		view, err := s.ViewOnlyAccountKey()
		if err != nil {
			return err
		}
		viewKey := api.EncodeViewKey(view)
		if !signerImport {
			fmt.Println(viewKey)
			return nil
		}

		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.CreateAccount(&api.CreateAccountReq{
			Name:    signerImportName,
			ViewKey: viewKey,
		})
		if err != nil {
			return errors.Wrap(err, "error importing view-only account")
		}
		return printJSON(res.Account)
	},
}

var signerSignCmd = &cobra.Command{
	Use:   "sign <unsigned-transaction-file>",
	Short: "Signs an unsigned transaction and submits it to the wallet",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		unsigned := new(wallet.UnsignedTransaction)
		if err := readJSONFile(args[0], unsigned); err != nil {
			return err
		}
		s, err := unlockSigner()
		if err != nil {
			return err
		}
		signed, err := s.SignTransaction(unsigned)
		if err != nil {
			return errors.Wrap(err, "error signing transaction")
		}

		client, err := apiClient()
		if err != nil {
			return err
		}
		txLog, err := client.SubmitSignedTransaction(unsigned.AccountID, signed)
		if err != nil {
			return err
		}
		return printJSON(txLog)
	},
}

var signerSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Computes key images for the view-only account's unsynced TXOs",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, ks, err := unlockSignerKeystore()
		if err != nil {
			return err
		}
		client, err := apiClient()
		if err != nil {
			return err
		}
		req, err := client.GetSyncRequest(ks.AccountID())
		if err != nil {
			return err
		}
		res, err := s.SyncTxos(req)
		if err != nil {
			return err
		}
		n, err := client.SyncTxos(ks.AccountID(), res)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d TXOs.\n", n)
		return nil
	},
}

var signerSubaddressesCmd = &cobra.Command{
	Use:   "subaddresses <count> [comment]",
	Short: "Derives subaddresses for the view-only account",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		count := intArg(args[0], 0)
		if count <= 0 {
			return errors.New("invalid count")
		}
		var comment string
		if len(args) == 2 {
			comment = args[1]
		}

		s, ks, err := unlockSignerKeystore()
		if err != nil {
			return err
		}
		client, err := apiClient()
		if err != nil {
			return err
		}
		req, err := client.CreateSubaddressesRequest(ks.AccountID(), count)
		if err != nil {
			return err
		}
		res, err := s.GenerateSubaddresses(req)
		if err != nil {
			return err
		}
		subs, err := client.ImportSubaddresses(ks.AccountID(), &api.ImportSubaddressesReq{
			Response: res,
			Comment:  comment,
		})
		if err != nil {
			return err
		}
		return printJSON(subs)
	},
}

func signerKeystorePath() string {
	if keystoreFile != "" {
		return keystoreFile
	}
	return keystorePath()
}

func unlockSigner() (*signer.Signer, error) {
	s, _, err := unlockSignerKeystore()
	return s, err
}

func unlockSignerKeystore() (*signer.Signer, *signer.Keystore, error) {
	network := umbra.Config.Network
	ks, err := signer.OpenKeystore(signerKeystorePath(), network)
	if err != nil {
		return nil, nil, err
	}
	password, err := readSecret("Please enter your keystore password: ")
	if err != nil {
		return nil, nil, errors.Wrap(err, "error reading password")
	}
	if err := ks.Unlock(password); err != nil {
		return nil, nil, err
	}
	return signer.NewSigner(network, ks), ks, nil
}

func init() {
	signerCmd.PersistentFlags().StringVar(&keystoreFile, "keystore", "", "Path to the keystore file")
	signerViewKeyCmd.Flags().BoolVar(&signerImport, "import", false, "Import the view key into the wallet")
	signerViewKeyCmd.Flags().StringVar(&signerImportName, "name", "view-only", "Name for the imported account")
	signerCmd.AddCommand(signerCreateCmd)
	signerCmd.AddCommand(signerViewKeyCmd)
	signerCmd.AddCommand(signerSignCmd)
	signerCmd.AddCommand(signerSyncCmd)
	signerCmd.AddCommand(signerSubaddressesCmd)
	rootCmd.AddCommand(signerCmd)
}

package cmd

import (
	"fmt"
	"github.com/kurumiimari/umbra/ucrypto"
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var (
	firstBlockIndex   uint64
	subaddressComment string
	subaddressCount   int
	importRawKeys     bool
)

var accountCmd = &cobra.Command{
	Use:   "account",
	Short: "Manages accounts",
}

var accountCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Creates an account from a fresh mnemonic",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}

		fmt.Println("Creating account...")
		res, err := client.CreateAccount(&api.CreateAccountReq{
			Name: args[0],
		})
		if err != nil {
			return errors.Wrap(err, "error creating account")
		}

		fmt.Println("Your account has been successfully created. Please take note of your seed phrase below.")
		fmt.Println("STORE YOUR SEED PHRASE SECURELY. IT WILL NOT BE SHOWN AGAIN.")
		fmt.Println("")
		fmt.Println(*res.Mnemonic)
		fmt.Println("")
		return printJSON(res.Account)
	},
}

var accountImportCmd = &cobra.Command{
	Use:   "import <name>",
	Short: "Imports an account from a mnemonic or raw private keys",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}

		req := &api.CreateAccountReq{
			Name:            args[0],
			FirstBlockIndex: firstBlockIndex,
		}
		if importRawKeys {
			viewPriv, err := readPrivateKey("Please paste in your view private key: ")
			if err != nil {
				return err
			}
			spendPriv, err := readPrivateKey("Please paste in your spend private key: ")
			if err != nil {
				return err
			}
			req.ViewPrivateKey = &viewPriv
			req.SpendPrivateKey = &spendPriv
		} else {
			mnemonic, err := readSecret("Please paste in your mnemonic: ")
			if err != nil {
				return errors.Wrap(err, "error reading mnemonic")
			}
			req.Mnemonic = mnemonic
		}

		fmt.Print("Importing account... ")
		res, err := client.CreateAccount(req)
		if err != nil {
			return errors.Wrap(err, "error importing account")
		}
		fmt.Println("Done.")
		return printJSON(res.Account)
	},
}

var accountImportViewOnlyCmd = &cobra.Command{
	Use:   "import-view-only <name> <view-key>",
	Short: "Imports a view-only account from a signer's exported view key",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.CreateAccount(&api.CreateAccountReq{
			Name:            args[0],
			ViewKey:         args[1],
			FirstBlockIndex: firstBlockIndex,
		})
		if err != nil {
			return errors.Wrap(err, "error importing account")
		}
		return printJSON(res.Account)
	},
}

var accountListCmd = &cobra.Command{
	Use:   "list",
	Short: "Lists accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.GetAccounts()
		if err != nil {
			return err
		}
		return printJSON(res.Accounts)
	},
}

var accountGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Gets information about an account",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.GetAccount(accountID)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var accountBalanceCmd = &cobra.Command{
	Use:   "balance",
	Short: "Returns an account's balance and sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		bal, err := client.GetBalance(accountID)
		if err != nil {
			return err
		}
		status, err := client.GetSyncStatus(accountID)
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"balance":     bal,
			"sync_status": status,
		})
	},
}

var accountRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Removes an account and everything only it references",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		return client.RemoveAccount(accountID)
	},
}

var accountResyncCmd = &cobra.Command{
	Use:   "resync",
	Short: "Rescans an account from its first block",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		return client.Resync(accountID)
	},
}

var accountSubaddressCmd = &cobra.Command{
	Use:   "subaddress [page] [per-page]",
	Short: "Assigns new subaddresses, or lists them with --list",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		list, _ := cmd.Flags().GetBool("list")
		if list {
			count, offset := pageArgs(args)
			res, err := client.GetSubaddresses(accountID, count, offset)
			if err != nil {
				return err
			}
			return printJSON(res)
		}
		res, err := client.AssignSubaddresses(accountID, &api.AssignSubaddressReq{
			Comment: subaddressComment,
			Count:   subaddressCount,
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var accountTxosCmd = &cobra.Command{
	Use:   "txos [page] [per-page]",
	Short: "Lists an account's TXOs",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		count, offset := pageArgs(args)
		res, err := client.GetTxos(accountID, count, offset)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var accountTxoCmd = &cobra.Command{
	Use:   "txo <txo-id> [sender-address]",
	Short: "Gets a TXO and its memo, optionally validating its sender",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		txo, err := client.GetTxo(accountID, args[0])
		if err != nil {
			return err
		}
		if len(args) == 1 {
			return printJSON(txo)
		}
		valid, err := client.ValidateSenderMemo(accountID, args[0], args[1])
		if err != nil {
			return err
		}
		return printJSON(map[string]interface{}{
			"txo":          txo,
			"sender_valid": valid,
		})
	},
}

var accountLogsCmd = &cobra.Command{
	Use:   "logs [page] [per-page]",
	Short: "Lists an account's transaction logs",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		count, offset := pageArgs(args)
		res, err := client.GetTransactionLogs(accountID, count, offset)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func readPrivateKey(prompt string) (ucrypto.PrivateKey, error) {
	var key ucrypto.PrivateKey
	in, err := readSecret(prompt)
	if err != nil {
		return key, errors.Wrap(err, "error reading private key")
	}
	if err := key.UnmarshalJSON([]byte(fmt.Sprintf("%q", in))); err != nil {
		return key, errors.Wrap(err, "invalid private key")
	}
	return key, nil
}

func init() {
	accountImportCmd.Flags().BoolVar(&importRawKeys, "raw-keys", false, "Import from hex view and spend private keys")
	accountImportCmd.Flags().Uint64Var(&firstBlockIndex, "first-block", 0, "Block to start scanning from")
	accountImportViewOnlyCmd.Flags().Uint64Var(&firstBlockIndex, "first-block", 0, "Block to start scanning from")
	accountSubaddressCmd.Flags().StringVar(&subaddressComment, "comment", "", "Comment for assigned subaddresses")
	accountSubaddressCmd.Flags().IntVar(&subaddressCount, "count", 1, "Number of subaddresses to assign")
	accountSubaddressCmd.Flags().Bool("list", false, "List subaddresses instead of assigning")

	accountCmd.AddCommand(accountCreateCmd)
	accountCmd.AddCommand(accountImportCmd)
	accountCmd.AddCommand(accountImportViewOnlyCmd)
	accountCmd.AddCommand(accountListCmd)
	accountCmd.AddCommand(accountGetCmd)
	accountCmd.AddCommand(accountBalanceCmd)
	accountCmd.AddCommand(accountRemoveCmd)
	accountCmd.AddCommand(accountResyncCmd)
	accountCmd.AddCommand(accountSubaddressCmd)
	accountCmd.AddCommand(accountTxosCmd)
	accountCmd.AddCommand(accountTxoCmd)
	accountCmd.AddCommand(accountLogsCmd)
	rootCmd.AddCommand(accountCmd)
}

package cmd

import (
	"github.com/kurumiimari/umbra/wallet"
	"github.com/spf13/cobra"
)

var receiptsCmd = &cobra.Command{
	Use:   "receipts <transaction-log-id>",
	Short: "Prints receiver receipts for the payments of a transaction log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		receipts, err := client.GetReceipts(accountID, args[0])
		if err != nil {
			return err
		}
		return printJSON(receipts)
	},
}

var receiptStatusCmd = &cobra.Command{
	Use:   "receipt-status <receipt-file>",
	Short: "Checks whether the payment a receipt describes has arrived",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		receipt := new(wallet.ReceiverReceipt)
		if err := readJSONFile(args[0], receipt); err != nil {
			return err
		}
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.CheckReceiptStatus(accountID, receipt)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

func init() {
	rootCmd.AddCommand(receiptsCmd)
	rootCmd.AddCommand(receiptStatusCmd)
}

package cmd

import (
	"encoding/json"
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"os"
)

var (
	sendFee              uint64
	sendTombstone        uint64
	sendPaymentRequestID uint64
	sendComment          string
	sendBuildOnly        bool
	sendUnsignedOut      string
)

var sendCmd = &cobra.Command{
	Use:   "send <recipient-address> <value> [<recipient-address> <value>...]",
	Short: "Sends funds from an account",
	Long: "Sends funds from an account. With --unsigned the transaction is " +
		"built for an offline signer and written to the given file.",
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 || len(args)%2 != 0 {
			return errors.New("expected recipient and value pairs")
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		req := &api.SendReq{
			Fee:              sendFee,
			Tombstone:        sendTombstone,
			PaymentRequestID: sendPaymentRequestID,
			Comment:          sendComment,
			BuildOnly:        sendBuildOnly,
		}
		for i := 0; i < len(args); i += 2 {
			value, err := uint64Arg(args[i+1], "value")
			if err != nil {
				return err
			}
			req.Payments = append(req.Payments, &api.PaymentReq{
				Address: args[i],
				Value:   value,
			})
		}

		client, err := apiClient()
		if err != nil {
			return err
		}

		if sendUnsignedOut != "" {
			unsigned, err := client.BuildUnsignedTransaction(accountID, req)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(unsigned, "", "  ")
			if err != nil {
				return errors.WithStack(err)
			}
			if err := os.WriteFile(sendUnsignedOut, data, 0o600); err != nil {
				return errors.Wrap(err, "error writing unsigned transaction")
			}
			cmdLogger.Info("wrote unsigned transaction", "path", sendUnsignedOut, "log_id", unsigned.TransactionLogID)
			return nil
		}

		txLog, err := client.Send(accountID, req)
		if err != nil {
			return err
		}
		return printJSON(txLog)
	},
}

var submitCmd = &cobra.Command{
	Use:   "submit <transaction-log-id>",
	Short: "Submits a built transaction log",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		txLog, err := client.SubmitTransaction(accountID, args[0])
		if err != nil {
			return err
		}
		return printJSON(txLog)
	},
}

func init() {
	sendCmd.Flags().Uint64Var(&sendFee, "fee", 0, "Overrides the network minimum fee")
	sendCmd.Flags().Uint64Var(&sendTombstone, "tombstone", 0, "Block index after which the transaction expires")
	sendCmd.Flags().Uint64Var(&sendPaymentRequestID, "payment-request", 0, "Payment request id to put in memos")
	sendCmd.Flags().StringVar(&sendComment, "comment", "", "Comment stored on the transaction log")
	sendCmd.Flags().BoolVar(&sendBuildOnly, "build-only", false, "Build and sign without submitting")
	sendCmd.Flags().StringVar(&sendUnsignedOut, "unsigned", "", "Build an unsigned transaction into this file")
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(submitCmd)
}

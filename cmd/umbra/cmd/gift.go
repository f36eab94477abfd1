package cmd

import (
	"github.com/kurumiimari/umbra/wallet/api"
	"github.com/spf13/cobra"
)

var giftMemo string

var giftCmd = &cobra.Command{
	Use:   "gift",
	Short: "Manages gift codes",
}

var giftCreateCmd = &cobra.Command{
	Use:   "create <value>",
	Short: "Funds a new gift code from an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := uint64Arg(args[0], "value")
		if err != nil {
			return err
		}
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.CreateGiftCode(&api.CreateGiftCodeReq{
			AccountID: accountID,
			Value:     value,
			Memo:      giftMemo,
		})
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var giftStatusCmd = &cobra.Command{
	Use:   "status <gift-code>",
	Short: "Checks whether a gift code is funded or claimed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.GetGiftCodeStatus(args[0])
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var giftClaimCmd = &cobra.Command{
	Use:   "claim <gift-code>",
	Short: "Claims a gift code into an account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		res, err := client.ClaimGiftCode(args[0], accountID)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var giftListCmd = &cobra.Command{
	Use:   "list [page] [per-page]",
	Short: "Lists gift codes created by this wallet",
	Args:  cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		count, offset := pageArgs(args)
		res, err := client.GetGiftCodes(count, offset)
		if err != nil {
			return err
		}
		return printJSON(res)
	},
}

var giftRemoveCmd = &cobra.Command{
	Use:   "remove <gift-code>",
	Short: "Forgets a gift code",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := apiClient()
		if err != nil {
			return err
		}
		return client.RemoveGiftCode(args[0])
	},
}

func init() {
	giftCreateCmd.Flags().StringVar(&giftMemo, "memo", "", "Message carried in the gift code")
	giftCmd.AddCommand(giftCreateCmd)
	giftCmd.AddCommand(giftStatusCmd)
	giftCmd.AddCommand(giftClaimCmd)
	giftCmd.AddCommand(giftListCmd)
	giftCmd.AddCommand(giftRemoveCmd)
	rootCmd.AddCommand(giftCmd)
}

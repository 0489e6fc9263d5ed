package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var receiptCmd = &cobra.Command{
	Use:   "receipt <txid>",
	Short: "Print the receipt of a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLog()
		if err != nil {
			return err
		}

		node, err := newNode(log)
		if err != nil {
			return err
		}

		rcpt, err := node.Receipt(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		if rcpt == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: pending\n", args[0])
			return nil
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: reverted[%t] gasUsed[%d]\n%s\n", rcpt.ID, rcpt.Reverted, rcpt.GasUsed, rcpt.Raw)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(receiptCmd)
}

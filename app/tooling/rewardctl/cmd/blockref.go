package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var blockRefCmd = &cobra.Command{
	Use:   "blockref",
	Short: "Print the best block and the block ref derived from it",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLog()
		if err != nil {
			return err
		}

		node, err := newNode(log)
		if err != nil {
			return err
		}

		blk, err := node.BestBlock(cmd.Context())
		if err != nil {
			return err
		}

		br, err := node.BlockRef(cmd.Context())
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "block:    %d\nid:       %s\nblockref: %s\n", blk.Number, blk.ID, br)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(blockRefCmd)
}

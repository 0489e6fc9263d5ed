package cmd

import (
	"fmt"
	"strings"

	"github.com/ecoride/rewards/foundation/blockchain/blake2b"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var hexInput bool

var hashCmd = &cobra.Command{
	Use:   "hash [data]",
	Short: "Print the Blake2b-256 digest of the data",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in string
		if len(args) == 1 {
			in = args[0]
		}

		data := []byte(in)
		if hexInput {
			if !strings.HasPrefix(in, "0x") {
				in = "0x" + in
			}

			var err error
			if data, err = hexutil.Decode(in); err != nil {
				return fmt.Errorf("decoding hex input: %w", err)
			}
		}

		sum := blake2b.Sum256(data)
		fmt.Fprintln(cmd.OutOrStdout(), hexutil.Encode(sum[:]))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashCmd)
	hashCmd.Flags().BoolVarP(&hexInput, "hex", "x", false, "Treat the data as hex encoded bytes.")
}

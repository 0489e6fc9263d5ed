package cmd

import (
	"fmt"

	"github.com/ecoride/rewards/foundation/blockchain/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cobra"
)

var (
	abiPath  string
	function string
	user     string
	distance int64
	trips    int64
)

var calldataCmd = &cobra.Command{
	Use:   "calldata",
	Short: "Encode the reward call for a user and distance",
	RunE: func(cmd *cobra.Command, args []string) error {
		fn, err := abi.Load(abiPath, function)
		if err != nil {
			return err
		}

		data, err := fn.Encode(user, distance, trips)
		if err != nil {
			return err
		}

		sel := fn.Selector()
		fmt.Fprintf(cmd.OutOrStdout(), "function: %s\nselector: %s\ncalldata: %s\n", fn.Signature(), hexutil.Encode(sel[:]), hexutil.Encode(data))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(calldataCmd)
	calldataCmd.Flags().StringVar(&abiPath, "abi", "zblock/contract.json", "Path to the contract interface file.")
	calldataCmd.Flags().StringVar(&function, "function", "submitDistance", "Name of the contract function.")
	calldataCmd.Flags().StringVarP(&user, "user", "u", "", "Address of the user being rewarded.")
	calldataCmd.Flags().Int64VarP(&distance, "distance", "d", 0, "Distance being rewarded.")
	calldataCmd.Flags().Int64Var(&trips, "trips", 1, "Trip count being submitted.")
	calldataCmd.MarkFlagRequired("user")
}

package cmd

import (
	"fmt"

	"github.com/ecoride/rewards/business/core/reward"
	"github.com/spf13/cobra"
)

var (
	sendUser     string
	sendDistance int64
	contract     string
	wallet       string
	privateKey   string
	chainTag     uint8
	sendABIPath  string
)

var sendCmd = &cobra.Command{
	Use:   "send",
	Short: "Reward a user and wait for the transaction to be verified",
	RunE: func(cmd *cobra.Command, args []string) error {
		log, err := newLog()
		if err != nil {
			return err
		}

		node, err := newNode(log)
		if err != nil {
			return err
		}

		rwd, err := reward.New(reward.Config{
			Log:             log,
			Node:            node,
			ChainTag:        chainTag,
			ContractAddress: contract,
			WalletAddress:   wallet,
			PrivateKey:      privateKey,
			ABIPath:         sendABIPath,
			IntrinsicGas:    true,
		})
		if err != nil {
			return err
		}

		txID, err := rwd.TriggerSmartContract(cmd.Context(), sendUser, sendDistance)
		if err != nil {
			if reward.OutcomeUnknown(err) {
				se := reward.GetStageError(err)
				fmt.Fprintf(cmd.OutOrStdout(), "%s: pending, query the receipt later\n", se.TxID)
			}
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: verified\n", txID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sendCmd)
	sendCmd.Flags().StringVarP(&sendUser, "user", "u", "", "Address of the user being rewarded.")
	sendCmd.Flags().Int64VarP(&sendDistance, "distance", "d", 0, "Distance being rewarded.")
	sendCmd.Flags().StringVarP(&contract, "contract", "c", envOr("REWARDS_CONTRACT_ADDRESS", ""), "Address of the reward contract.")
	sendCmd.Flags().StringVarP(&wallet, "wallet", "w", envOr("REWARDS_WALLET_ADDRESS", ""), "Address of the signing wallet.")
	sendCmd.Flags().StringVarP(&privateKey, "key", "k", envOr("REWARDS_WALLET_PRIVATE_KEY", ""), "Hex encoded private key of the signing wallet.")
	sendCmd.Flags().Uint8Var(&chainTag, "chain-tag", 39, "Chain tag of the network.")
	sendCmd.Flags().StringVar(&sendABIPath, "abi", "zblock/contract.json", "Path to the contract interface file.")
	sendCmd.MarkFlagRequired("user")
}

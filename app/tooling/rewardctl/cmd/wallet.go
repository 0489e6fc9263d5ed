package cmd

import (
	"fmt"

	"github.com/ecoride/rewards/foundation/blockchain/signature"
	"github.com/spf13/cobra"
)

var keyFile string

var walletCmd = &cobra.Command{
	Use:   "wallet",
	Short: "Manage the key file of the signing wallet",
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a new key pair and save it to the key file",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := signature.GenerateKeyFile(keyFile)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", keyFile, signature.Address(privateKey))
		return nil
	},
}

var addressCmd = &cobra.Command{
	Use:   "address",
	Short: "Print the address of the key file",
	RunE: func(cmd *cobra.Command, args []string) error {
		privateKey, err := signature.LoadPrivateKey(keyFile)
		if err != nil {
			return err
		}

		fmt.Fprintln(cmd.OutOrStdout(), signature.Address(privateKey))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(walletCmd)
	walletCmd.AddCommand(generateCmd)
	walletCmd.AddCommand(addressCmd)
	walletCmd.PersistentFlags().StringVarP(&keyFile, "file", "f", "zblock/wallet.ecdsa", "Path to the key file.")
}

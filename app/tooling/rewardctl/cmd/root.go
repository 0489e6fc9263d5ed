// Package cmd contains the rewardctl commands.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/ecoride/rewards/foundation/logger"
	"github.com/ecoride/rewards/foundation/thor"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	nodeURL     string
	nodeTimeout time.Duration
	verbose     bool
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&nodeURL, "node", "n", envOr("REWARDS_NODE_URL", "https://sync-testnet.vechain.org"), "Url of the thor node.")
	rootCmd.PersistentFlags().DurationVar(&nodeTimeout, "timeout", thor.DefaultTimeout, "Timeout for each node request.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log node traffic to stderr.")
}

var rootCmd = &cobra.Command{
	Use:          "rewardctl",
	Short:        "Operator tooling for the trip reward service",
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newLog returns a logger writing to stderr when verbose output is asked
// for, otherwise a logger that discards everything.
func newLog() (*zap.SugaredLogger, error) {
	if !verbose {
		return zap.NewNop().Sugar(), nil
	}
	return logger.New("REWARDCTL", "stderr")
}

// newNode constructs the node client from the persistent flags.
func newNode(log *zap.SugaredLogger) (*thor.Client, error) {
	node, err := thor.New(thor.Config{
		BaseURL: nodeURL,
		Timeout: nodeTimeout,
		Log:     log,
	})
	if err != nil {
		return nil, fmt.Errorf("constructing node client: %w", err)
	}
	return node, nil
}

func envOr(key string, def string) string {
	if v, exists := os.LookupEnv(key); exists {
		return v
	}
	return def
}

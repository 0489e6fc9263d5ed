package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ecoride/rewards/app/services/rewards/handlers"
	"github.com/ecoride/rewards/business/core/reward"
	"github.com/ecoride/rewards/foundation/blockchain/signature"
	"github.com/ecoride/rewards/foundation/events"
	"github.com/ecoride/rewards/foundation/logger"
	"github.com/ecoride/rewards/foundation/thor"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger.
	log, err := logger.New("REWARDS")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Web struct {
			ReadTimeout     time.Duration `conf:"default:5s"`
			WriteTimeout    time.Duration `conf:"default:60s"`
			IdleTimeout     time.Duration `conf:"default:120s"`
			ShutdownTimeout time.Duration `conf:"default:45s"`
			APIHost         string        `conf:"default:0.0.0.0:3000"`
			DebugHost       string        `conf:"default:0.0.0.0:4000"`
			CORSOrigin      string        `conf:"default:*"`
		}
		Node struct {
			URL      string        `conf:"default:https://sync-testnet.vechain.org"`
			Timeout  time.Duration `conf:"default:10s"`
			ChainTag uint8         `conf:"default:39"`
		}
		Contract struct {
			Address  string        `conf:"required"`
			ABIPath  string        `conf:"default:zblock/contract.json"`
			Function string        `conf:"default:submitDistance"`
			ABITTL   time.Duration `conf:"default:1h"`
		}
		Wallet struct {
			Address    string `conf:"required"`
			PrivateKey string `conf:"mask"`
			KeyFile    string
		}
		Tx struct {
			BlockRefTTL  time.Duration `conf:"default:60s"`
			IntrinsicGas bool          `conf:"default:true"`
		}
		Receipt struct {
			Attempts int           `conf:"default:10"`
			Interval time.Duration `conf:"default:3s"`
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "trip reward transaction service",
		},
	}

	// Parse will set the defaults and then look for any overriding values
	// in environment variables and command line flags.
	const prefix = "REWARDS"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	// Display the current configuration to the logs.
	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Wallet Support

	// The private key can be provided directly or through a key file. The key
	// itself is validated when the reward is constructed.
	privateKey := cfg.Wallet.PrivateKey
	if privateKey == "" && cfg.Wallet.KeyFile != "" {
		pk, err := signature.LoadPrivateKey(cfg.Wallet.KeyFile)
		if err != nil {
			return fmt.Errorf("unable to load private key for wallet: %w", err)
		}
		privateKey = signature.KeyHex(pk)
	}

	// =========================================================================
	// Node Support

	node, err := thor.New(thor.Config{
		BaseURL:         cfg.Node.URL,
		Timeout:         cfg.Node.Timeout,
		BlockRefTTL:     cfg.Tx.BlockRefTTL,
		ReceiptAttempts: cfg.Receipt.Attempts,
		ReceiptInterval: cfg.Receipt.Interval,
		Log:             log,
	})
	if err != nil {
		return fmt.Errorf("constructing node client: %w", err)
	}

	// =========================================================================
	// Reward Support

	// Pipeline progress is logged and sent to any websocket client that is
	// connected into the system through the events package.
	evts := events.New()
	ev := func(e events.Event) {
		log.Infow("reward event", "traceid", e.TraceID, "stage", e.Stage, "txid", e.TxID, "message", e.Message)
		e.Time = time.Now().UTC()
		evts.Send(e)
	}

	rwd, err := reward.New(reward.Config{
		Log:             log,
		Node:            node,
		ChainTag:        cfg.Node.ChainTag,
		ContractAddress: cfg.Contract.Address,
		WalletAddress:   cfg.Wallet.Address,
		PrivateKey:      privateKey,
		ABIPath:         cfg.Contract.ABIPath,
		Function:        cfg.Contract.Function,
		ABITTL:          cfg.Contract.ABITTL,
		IntrinsicGas:    cfg.Tx.IntrinsicGas,
		EvHandler:       ev,
	})
	if err != nil {
		return fmt.Errorf("constructing reward: %w", err)
	}

	log.Infow("startup", "status", "reward ready", "origin", rwd.Origin(), "contract", cfg.Contract.Address, "chaintag", cfg.Node.ChainTag)

	// =========================================================================
	// Start Debug Service

	log.Infow("startup", "status", "debug v1 router started", "host", cfg.Web.DebugHost)

	// The Debug function returns a mux to listen and serve on for all the debug
	// related endpoints. This includes the standard library endpoints.
	debugMux := handlers.DebugMux(build, log, node)

	// Start the service listening for debug requests.
	// Not concerned with shutting this down with load shedding.
	go func() {
		if err := http.ListenAndServe(cfg.Web.DebugHost, debugMux); err != nil {
			log.Errorw("shutdown", "status", "debug v1 router closed", "host", cfg.Web.DebugHost, "ERROR", err)
		}
	}()

	// =========================================================================
	// Service Start/Stop Support

	// Make a channel to listen for an interrupt or terminate signal from the OS.
	// Use a buffered channel because the signal package requires it.
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	// Make a channel to listen for errors coming from the listener. Use a
	// buffered channel so the goroutine can exit if we don't collect this error.
	serverErrors := make(chan error, 1)

	// =========================================================================
	// Start API Service

	log.Infow("startup", "status", "initializing V1 API support")

	// Construct the mux for the API calls.
	apiMux := handlers.APIMux(handlers.APIMuxConfig{
		Shutdown:   shutdown,
		Log:        log,
		Reward:     rwd,
		Evts:       evts,
		CORSOrigin: cfg.Web.CORSOrigin,
	})

	// A reward request holds its response until the transaction is verified
	// or polling gives up, so the write timeout must outlast a slow node.
	writeTimeout := cfg.Web.WriteTimeout
	if budget := node.TransactionBudget() + 5*time.Second; writeTimeout < budget {
		log.Infow("startup", "status", "raising write timeout to the transaction budget", "configured", writeTimeout, "budget", budget)
		writeTimeout = budget
	}

	// Construct a server to service the requests against the mux.
	api := http.Server{
		Addr:         cfg.Web.APIHost,
		Handler:      apiMux,
		ReadTimeout:  cfg.Web.ReadTimeout,
		WriteTimeout: writeTimeout,
		IdleTimeout:  cfg.Web.IdleTimeout,
		ErrorLog:     zap.NewStdLog(log.Desugar()),
	}

	// Start the service listening for api requests.
	go func() {
		log.Infow("startup", "status", "api router started", "host", api.Addr)
		serverErrors <- api.ListenAndServe()
	}()

	// =========================================================================
	// Shutdown

	// Blocking main and waiting for shutdown.
	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)

	case sig := <-shutdown:
		log.Infow("shutdown", "status", "shutdown started", "signal", sig)
		defer log.Infow("shutdown", "status", "shutdown complete", "signal", sig)

		// Release any web sockets that are currently active.
		log.Infow("shutdown", "status", "shutdown web socket channels")
		evts.Shutdown()

		// Give outstanding rewards a deadline for verification.
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Web.ShutdownTimeout)
		defer cancel()

		// Asking listener to shut down and shed load.
		if err := api.Shutdown(ctx); err != nil {
			api.Close()
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
	}

	return nil
}

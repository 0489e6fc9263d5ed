// Package reward sequences the construction, signing and submission of the
// transaction that rewards a user for a verified trip.
package reward

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ecoride/rewards/business/sys/validate"
	"github.com/ecoride/rewards/foundation/blockchain/abi"
	"github.com/ecoride/rewards/foundation/blockchain/signature"
	"github.com/ecoride/rewards/foundation/blockchain/tx"
	"github.com/ecoride/rewards/foundation/cache"
	"github.com/ecoride/rewards/foundation/events"
	"github.com/ecoride/rewards/foundation/thor"
	"github.com/ethereum/go-ethereum/common"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Default settings for the orchestrator.
const (
	DefaultFunction = "submitDistance"
	DefaultABITTL   = time.Hour
)

// trips is the trip count submitted with every reward.
const trips = 1

// Node represents the behavior required from the chain node.
type Node interface {
	EstimateGas(ctx context.Context, clauses []tx.Clause) (uint64, error)
	BlockRef(ctx context.Context) (tx.BlockRef, error)
	Submit(ctx context.Context, raw string) (string, error)
	Receipt(ctx context.Context, txID string) (*thor.Receipt, error)
	PollReceipt(ctx context.Context, txID string) (thor.Receipt, error)
}

// EventHandler receives pipeline progress.
type EventHandler func(ev events.Event)

// Config represents the configuration required to construct the orchestrator.
type Config struct {
	Log             *zap.SugaredLogger
	Node            Node
	ChainTag        byte
	ContractAddress string
	WalletAddress   string
	PrivateKey      string
	ABIPath         string
	Function        string
	ABITTL          time.Duration
	IntrinsicGas    bool
	Clock           clockwork.Clock
	Registerer      prometheus.Registerer
	EvHandler       EventHandler
}

// Reward manages the reward pipeline. A Reward is safe for concurrent use.
type Reward struct {
	log          *zap.SugaredLogger
	node         Node
	chainTag     byte
	contract     common.Address
	privateKey   *ecdsa.PrivateKey
	origin       common.Address
	abiPath      string
	function     string
	abi          *cache.Value[abi.Function]
	intrinsicGas bool
	metrics      *metrics
	evHandler    EventHandler
}

// New constructs the orchestrator. The private key is validated here and
// its address must match the configured wallet address.
func New(cfg Config) (*Reward, error) {
	if cfg.Node == nil {
		return nil, errors.New("reward: node is required")
	}

	if !common.IsHexAddress(cfg.ContractAddress) {
		return nil, fmt.Errorf("reward: invalid contract address %q", cfg.ContractAddress)
	}

	privateKey, err := signature.PrivateKeyFromHex(cfg.PrivateKey)
	if err != nil {
		return nil, err
	}
	origin := signature.Address(privateKey)

	if cfg.WalletAddress != "" {
		if !common.IsHexAddress(cfg.WalletAddress) || common.HexToAddress(cfg.WalletAddress) != origin {
			return nil, fmt.Errorf("%w: wallet address %s does not match private key address %s", ErrSigning, cfg.WalletAddress, origin)
		}
	}

	if cfg.Function == "" {
		cfg.Function = DefaultFunction
	}
	if cfg.ABITTL <= 0 {
		cfg.ABITTL = DefaultABITTL
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop().Sugar()
	}
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.EvHandler == nil {
		cfg.EvHandler = func(events.Event) {}
	}

	r := Reward{
		log:          cfg.Log,
		node:         cfg.Node,
		chainTag:     cfg.ChainTag,
		contract:     common.HexToAddress(cfg.ContractAddress),
		privateKey:   privateKey,
		origin:       origin,
		abiPath:      cfg.ABIPath,
		function:     cfg.Function,
		abi:          cache.New[abi.Function](cfg.ABITTL, cfg.Clock),
		intrinsicGas: cfg.IntrinsicGas,
		metrics:      newMetrics(cfg.Registerer),
		evHandler:    cfg.EvHandler,
	}

	return &r, nil
}

// Origin returns the address that signs every reward transaction.
func (r *Reward) Origin() common.Address {
	return r.origin
}

// TriggerSmartContract submits a reward of the specified distance to the
// user and blocks until the transaction is verified on chain. It returns
// the id of the transaction.
func (r *Reward) TriggerSmartContract(ctx context.Context, userAddress string, distance int64) (string, error) {
	fail := func(stage string, txID string, err error) (string, error) {
		se := StageError{
			Stage:    stage,
			User:     userAddress,
			Distance: distance,
			TxID:     txID,
			Err:      err,
		}

		r.metrics.failure(stage)
		r.log.Errorw("reward", "status", "failed", "stage", stage, "user", userAddress, "distance", distance, "txid", txID, "ERROR", err)
		r.evHandler(events.Event{TraceID: traceID(ctx), Stage: stage, TxID: txID, Message: "failed: " + err.Error()})

		return "", &se
	}

	// Reject bad input before any network call is made.
	in := input{Address: userAddress, Distance: distance}
	if err := validate.Check(in); err != nil {
		return fail(StageValidate, "", fmt.Errorf("%w: %w", ErrValidation, err))
	}

	fn, err := r.abi.Get(ctx, r.loadFunction)
	if err != nil {
		return fail(StageABI, "", fmt.Errorf("%w: %w", ErrEncoding, err))
	}

	data, err := fn.Encode(userAddress, distance, trips)
	if err != nil {
		return fail(StageEncode, "", fmt.Errorf("%w: %w", ErrEncoding, err))
	}

	clause := tx.Clause{
		To:    r.contract,
		Value: big.NewInt(0),
		Data:  data,
	}

	gas, err := r.node.EstimateGas(ctx, []tx.Clause{clause})
	if err != nil {
		return fail(StageEstimate, "", err)
	}

	if r.intrinsicGas {
		gas += tx.IntrinsicGas(clause)
	}

	r.log.Infow("reward", "status", "gas estimated", "user", userAddress, "gas", gas)

	blockRef, err := r.node.BlockRef(ctx)
	if err != nil {
		return fail(StageBlockRef, "", err)
	}

	unsigned := tx.New(r.chainTag, clause, gas, blockRef, tx.Nonce())

	signed, err := unsigned.Sign(r.privateKey)
	if err != nil {
		if errors.Is(err, ErrSigning) {
			return fail(StageSign, "", err)
		}
		return fail(StageSign, "", fmt.Errorf("%w: %w", ErrEncoding, err))
	}

	raw, err := signed.Raw()
	if err != nil {
		return fail(StageSign, "", fmt.Errorf("%w: %w", ErrEncoding, err))
	}

	localID, err := signed.ID()
	if err != nil {
		return fail(StageSign, "", fmt.Errorf("%w: %w", ErrSigning, err))
	}

	r.log.Infow("reward", "status", "signed", "user", userAddress, "blockref", blockRef, "nonce", unsigned.Nonce, "localid", localID, "raw", raw)

	txID, err := r.node.Submit(ctx, raw)
	if err != nil {
		return fail(StageSubmit, localID, err)
	}

	if !strings.EqualFold(txID, localID) {
		r.log.Warnw("reward", "status", "txid mismatch", "txid", txID, "localid", localID)
	}

	r.metrics.gas.Add(float64(gas))
	r.evHandler(events.Event{TraceID: traceID(ctx), Stage: StageSubmit, TxID: txID, Message: fmt.Sprintf("submitted distance %d for %s", distance, userAddress)})

	if _, err := r.node.PollReceipt(ctx, txID); err != nil {
		return fail(StageVerify, txID, err)
	}

	r.metrics.success()
	r.log.Infow("reward", "status", "verified", "user", userAddress, "distance", distance, "txid", txID)
	r.evHandler(events.Event{TraceID: traceID(ctx), Stage: StageVerify, TxID: txID, Message: "verified"})

	return txID, nil
}

// Receipt returns the receipt of a previously submitted transaction. A nil
// receipt means the transaction is still pending.
func (r *Reward) Receipt(ctx context.Context, txID string) (*thor.Receipt, error) {
	if err := validate.CheckVar("txid", txID, "required,hexadecimal,len=66"); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	return r.node.Receipt(ctx, txID)
}

// Calldata returns the encoded call for the specified reward without
// touching the node.
func (r *Reward) Calldata(ctx context.Context, userAddress string, distance int64) ([]byte, error) {
	in := input{Address: userAddress, Distance: distance}
	if err := validate.Check(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	fn, err := r.abi.Get(ctx, r.loadFunction)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	data, err := fn.Encode(userAddress, distance, trips)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncoding, err)
	}

	return data, nil
}

// =============================================================================

func (r *Reward) loadFunction(ctx context.Context) (abi.Function, error) {
	fn, err := abi.Load(r.abiPath, r.function)
	if err != nil {
		return abi.Function{}, err
	}

	r.log.Infow("reward", "status", "contract interface loaded", "path", r.abiPath, "function", fn.Signature())

	return fn, nil
}

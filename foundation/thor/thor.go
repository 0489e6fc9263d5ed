// Package thor provides a client for the REST API of a VeChain style
// proof of authority node: clause simulation for gas estimation, the best
// block for transaction anchoring, transaction submission and receipts.
package thor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ecoride/rewards/foundation/blockchain/tx"
	"github.com/ecoride/rewards/foundation/cache"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-resty/resty/v2"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

// Set of error variables for node operations.
var (
	ErrNode           = errors.New("thor: node")
	ErrGasEstimation  = errors.New("thor: gas estimation")
	ErrSubmission     = errors.New("thor: submission")
	ErrVerification   = errors.New("thor: transaction reverted")
	ErrReceiptTimeout = errors.New("thor: receipt timeout")
)

// Default settings for the client.
const (
	DefaultTimeout         = 10 * time.Second
	DefaultBlockRefTTL     = 60 * time.Second
	DefaultReceiptAttempts = 10
	DefaultReceiptInterval = 3 * time.Second
)

// Config represents the configuration required to construct a client.
type Config struct {
	BaseURL         string
	Timeout         time.Duration
	BlockRefTTL     time.Duration
	ReceiptAttempts int
	ReceiptInterval time.Duration
	Clock           clockwork.Clock
	Log             *zap.SugaredLogger
}

// Client talks to a single node. A Client is safe for concurrent use.
type Client struct {
	http     *resty.Client
	log      *zap.SugaredLogger
	clock    clockwork.Clock
	blockRef *cache.Value[tx.BlockRef]
	timeout  time.Duration
	attempts int
	interval time.Duration
}

// New constructs a client for the node at the configured base url.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("thor: base url is required")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.BlockRefTTL <= 0 {
		cfg.BlockRefTTL = DefaultBlockRefTTL
	}
	if cfg.ReceiptAttempts <= 0 {
		cfg.ReceiptAttempts = DefaultReceiptAttempts
	}
	if cfg.ReceiptInterval <= 0 {
		cfg.ReceiptInterval = DefaultReceiptInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop().Sugar()
	}

	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetLogger(restyLogger{log: cfg.Log})

	c := Client{
		http:     client,
		log:      cfg.Log,
		clock:    cfg.Clock,
		blockRef: cache.New[tx.BlockRef](cfg.BlockRefTTL, cfg.Clock),
		timeout:  cfg.Timeout,
		attempts: cfg.ReceiptAttempts,
		interval: cfg.ReceiptInterval,
	}

	return &c, nil
}

// TransactionBudget returns the longest a full reward transaction can take
// against this node when every call runs to its timeout: estimate, block ref
// and submit followed by every receipt attempt with its pause.
func (c *Client) TransactionBudget() time.Duration {
	return 3*c.timeout + time.Duration(c.attempts)*(c.interval+c.timeout)
}

// =============================================================================

// EstimateGas simulates the clauses on the node and returns the total gas
// used by all of them.
func (c *Client) EstimateGas(ctx context.Context, clauses []tx.Clause) (uint64, error) {
	if len(clauses) == 0 {
		return 0, fmt.Errorf("%w: clauses cannot be empty", ErrGasEstimation)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(simulateRequest{Clauses: clauses}).
		Post("/accounts/*")
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrGasEstimation, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return 0, fmt.Errorf("%w: status[%d]: %s", ErrGasEstimation, resp.StatusCode(), bytes.TrimSpace(resp.Body()))
	}

	var sims []simulation
	if err := json.Unmarshal(resp.Body(), &sims); err != nil {
		return 0, fmt.Errorf("%w: invalid response format: %w", ErrGasEstimation, err)
	}

	var total uint64
	for i, sim := range sims {
		if sim.Reverted {
			return 0, fmt.Errorf("%w: clause %d reverted: %s", ErrGasEstimation, i, sim.VMError)
		}
		total += sim.GasUsed
	}

	if total == 0 {
		return 0, fmt.Errorf("%w: no gas used", ErrGasEstimation)
	}

	c.log.Infow("thor: estimate gas", "clauses", len(clauses), "gas", total)

	return total, nil
}

// BestBlock returns the latest block known to the node.
func (c *Client) BestBlock(ctx context.Context) (Block, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/blocks/best")
	if err != nil {
		return Block{}, fmt.Errorf("%w: best block: %w", ErrNode, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return Block{}, fmt.Errorf("%w: best block: status[%d]: %s", ErrNode, resp.StatusCode(), bytes.TrimSpace(resp.Body()))
	}

	var blk Block
	if err := json.Unmarshal(resp.Body(), &blk); err != nil {
		return Block{}, fmt.Errorf("%w: best block: invalid response format: %w", ErrNode, err)
	}

	if blk.ID == "" {
		return Block{}, fmt.Errorf("%w: best block: missing id", ErrNode)
	}

	return blk, nil
}

// BlockRef returns the first 8 bytes of the best block id. The value is
// cached for the configured lifetime.
func (c *Client) BlockRef(ctx context.Context) (tx.BlockRef, error) {
	return c.blockRef.Get(ctx, c.fetchBlockRef)
}

// Submit posts the 0x prefixed raw signed transaction and returns the id
// the node assigned to it.
func (c *Client) Submit(ctx context.Context, raw string) (string, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(submitRequest{Raw: raw}).
		Post("/transactions")
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSubmission, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("%w: status[%d]: %s", ErrSubmission, resp.StatusCode(), bytes.TrimSpace(resp.Body()))
	}

	var sr submitResponse
	if err := json.Unmarshal(resp.Body(), &sr); err != nil {
		return "", fmt.Errorf("%w: invalid response format: %w", ErrSubmission, err)
	}

	if sr.ID == "" {
		return "", fmt.Errorf("%w: transaction id not returned", ErrSubmission)
	}

	c.log.Infow("thor: submit", "txid", sr.ID)

	return sr.ID, nil
}

// Receipt returns the receipt for the transaction. A nil receipt with a nil
// error means the transaction has not been mined yet.
func (c *Client) Receipt(ctx context.Context, txID string) (*Receipt, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", txID).
		Get("/transactions/{id}/receipt")
	if err != nil {
		return nil, fmt.Errorf("%w: receipt: %w", ErrNode, err)
	}

	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("%w: receipt: status[%d]: %s", ErrNode, resp.StatusCode(), bytes.TrimSpace(resp.Body()))
	}

	body := bytes.TrimSpace(resp.Body())
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil, nil
	}

	var rr receiptResponse
	if err := json.Unmarshal(body, &rr); err != nil {
		return nil, fmt.Errorf("%w: receipt: invalid response format: %w", ErrNode, err)
	}

	rcpt := Receipt{
		ID:       txID,
		Reverted: rr.Reverted,
		GasUsed:  rr.GasUsed,
		Raw:      json.RawMessage(body),
	}

	return &rcpt, nil
}

// PollReceipt waits for the transaction to be mined. Every attempt is
// preceded by a pause of the configured interval. A reverted receipt ends
// the polling with ErrVerification. When no attempt returns a receipt the
// outcome is unknown and ErrReceiptTimeout is returned.
func (c *Client) PollReceipt(ctx context.Context, txID string) (Receipt, error) {
	for attempt := 1; attempt <= c.attempts; attempt++ {
		select {
		case <-c.clock.After(c.interval):
		case <-ctx.Done():
			return Receipt{}, fmt.Errorf("%w: %s: %w", ErrReceiptTimeout, txID, ctx.Err())
		}

		rcpt, err := c.Receipt(ctx, txID)
		if err != nil {
			c.log.Warnw("thor: poll receipt", "txid", txID, "attempt", attempt, "ERROR", err)
			continue
		}

		if rcpt == nil {
			c.log.Infow("thor: poll receipt", "txid", txID, "attempt", attempt, "status", "pending")
			continue
		}

		if rcpt.Reverted {
			return *rcpt, fmt.Errorf("%w: %s", ErrVerification, txID)
		}

		c.log.Infow("thor: poll receipt", "txid", txID, "attempt", attempt, "status", "verified", "gasUsed", rcpt.GasUsed)

		return *rcpt, nil
	}

	return Receipt{}, fmt.Errorf("%w: %s: no receipt after %d attempts", ErrReceiptTimeout, txID, c.attempts)
}

// =============================================================================

func (c *Client) fetchBlockRef(ctx context.Context) (tx.BlockRef, error) {
	blk, err := c.BestBlock(ctx)
	if err != nil {
		return tx.BlockRef{}, err
	}

	id, err := hexutil.Decode(blk.ID)
	if err != nil {
		return tx.BlockRef{}, fmt.Errorf("%w: best block id %q: %w", ErrNode, blk.ID, err)
	}

	var br tx.BlockRef
	if len(id) < len(br) {
		return tx.BlockRef{}, fmt.Errorf("%w: best block id %q too short", ErrNode, blk.ID)
	}
	copy(br[:], id)

	c.log.Infow("thor: block ref", "number", blk.Number, "blockref", br)

	return br, nil
}

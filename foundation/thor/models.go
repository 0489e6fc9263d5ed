package thor

import (
	"encoding/json"

	"github.com/ecoride/rewards/foundation/blockchain/tx"
)

// Block represents the parts of a block the client needs.
type Block struct {
	ID        string `json:"id"`
	Number    uint64 `json:"number"`
	Timestamp uint64 `json:"timestamp"`
}

// Receipt is the execution outcome of a mined transaction. Fields other
// than the ones named here are kept unexamined in Raw.
type Receipt struct {
	ID       string          `json:"id"`
	Reverted bool            `json:"reverted"`
	GasUsed  uint64          `json:"gasUsed"`
	Raw      json.RawMessage `json:"raw,omitempty"`
}

// =============================================================================

// simulateRequest is the body posted for gas estimation.
type simulateRequest struct {
	Clauses []tx.Clause `json:"clauses"`
}

// simulation is the outcome of executing a single clause.
type simulation struct {
	GasUsed  uint64 `json:"gasUsed"`
	Reverted bool   `json:"reverted"`
	VMError  string `json:"vmError"`
}

// submitRequest is the body posted to submit a raw transaction.
type submitRequest struct {
	Raw string `json:"raw"`
}

// submitResponse is returned for an accepted transaction.
type submitResponse struct {
	ID string `json:"id"`
}

// receiptResponse captures the receipt fields that are examined.
type receiptResponse struct {
	Reverted bool   `json:"reverted"`
	GasUsed  uint64 `json:"gasUsed"`
}

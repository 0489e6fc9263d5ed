package rewardgrp

import (
	"encoding/json"

	"github.com/ecoride/rewards/business/sys/validate"
)

// NewReward is what a client posts to reward a verified trip.
type NewReward struct {
	Address  string `json:"address" validate:"required,eth_addr"`
	Distance int64  `json:"distance" validate:"gte=0"`
}

// Validate checks the data in the model is considered clean.
func (nr NewReward) Validate() error {
	return validate.Check(nr)
}

// Set of reward statuses reported to the client.
const (
	StatusVerified = "verified"
	StatusPending  = "pending"
	StatusReverted = "reverted"
)

// Reward is the outcome of a reward submission.
type Reward struct {
	TxID   string `json:"txId"`
	Status string `json:"status"`
}

// Receipt is the state of a submitted reward transaction.
type Receipt struct {
	TxID    string          `json:"txId"`
	Status  string          `json:"status"`
	GasUsed uint64          `json:"gasUsed,omitempty"`
	Receipt json.RawMessage `json:"receipt,omitempty"`
}

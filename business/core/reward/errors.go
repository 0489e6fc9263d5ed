package reward

import (
	"errors"
	"fmt"

	"github.com/ecoride/rewards/foundation/blockchain/signature"
	"github.com/ecoride/rewards/foundation/thor"
)

// Set of error variables for the kinds of failure a reward can hit. Every
// error returned by TriggerSmartContract matches exactly one of them with
// errors.Is.
var (
	ErrValidation     = errors.New("reward: validation")
	ErrEncoding       = errors.New("reward: encoding")
	ErrSigning        = signature.ErrSigning
	ErrNode           = thor.ErrNode
	ErrGasEstimation  = thor.ErrGasEstimation
	ErrSubmission     = thor.ErrSubmission
	ErrVerification   = thor.ErrVerification
	ErrReceiptTimeout = thor.ErrReceiptTimeout
)

// Set of stages of the reward pipeline.
const (
	StageValidate = "validate"
	StageABI      = "abi"
	StageEncode   = "encode"
	StageEstimate = "estimate"
	StageBlockRef = "blockref"
	StageSign     = "sign"
	StageSubmit   = "submit"
	StageVerify   = "verify"
)

// StageError represents a failure of the reward pipeline. It identifies the
// stage that failed and the input being rewarded.
type StageError struct {
	Stage    string
	User     string
	Distance int64
	TxID     string
	Err      error
}

// Error implements the error interface.
func (se *StageError) Error() string {
	if se.TxID != "" {
		return fmt.Sprintf("reward: stage[%s] user[%s] distance[%d] txid[%s]: %s", se.Stage, se.User, se.Distance, se.TxID, se.Err)
	}
	return fmt.Sprintf("reward: stage[%s] user[%s] distance[%d]: %s", se.Stage, se.User, se.Distance, se.Err)
}

// Unwrap provides access to the root cause.
func (se *StageError) Unwrap() error {
	return se.Err
}

// GetStageError returns the stage error contained in the specified error.
func GetStageError(err error) *StageError {
	var se *StageError
	if !errors.As(err, &se) {
		return nil
	}
	return se
}

// Retryable reports whether the whole reward can safely be attempted again.
// Nothing was committed on chain for these failures.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrNode),
		errors.Is(err, ErrGasEstimation),
		errors.Is(err, ErrSubmission):
		return true
	}
	return false
}

// OutcomeUnknown reports whether the transaction was submitted but its
// outcome could not be determined. The caller must query the receipt by
// transaction id later and must not resubmit.
func OutcomeUnknown(err error) bool {
	return errors.Is(err, ErrReceiptTimeout)
}

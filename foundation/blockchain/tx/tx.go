// Package tx assembles chain transactions: the single clause body, the
// ordered field list that gets hashed and signed, and the signed encoding
// that is submitted to a node.
package tx

import (
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ecoride/rewards/foundation/blockchain/blake2b"
	"github.com/ecoride/rewards/foundation/blockchain/rlp"
	"github.com/ecoride/rewards/foundation/blockchain/signature"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// Fixed transaction parameters.
const (
	Expiration   = 32  // Number of blocks after the block ref the tx stays valid.
	GasPriceCoef = 128 // Gas price coefficient in the 0-255 range.
)

// BlockRef is the first 8 bytes of a recent block id.
type BlockRef [8]byte

// String returns the block ref as a hex string.
func (br BlockRef) String() string {
	return hexutil.Encode(br[:])
}

// =============================================================================

// Clause represents one recipient and payload pair.
type Clause struct {
	To    common.Address
	Value *big.Int
	Data  []byte
}

// MarshalJSON implements the json.Marshaler interface in the shape the node
// expects for clauses.
func (c Clause) MarshalJSON() ([]byte, error) {
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}

	data := "0x"
	if len(c.Data) > 0 {
		data = hexutil.Encode(c.Data)
	}

	cj := struct {
		To    string `json:"to"`
		Value string `json:"value"`
		Data  string `json:"data"`
	}{
		To:    hexutil.Encode(c.To.Bytes()),
		Value: hexutil.EncodeBig(value),
		Data:  data,
	}

	return json.Marshal(cj)
}

// fields returns the clause in the [to, value, data] form.
func (c Clause) fields() []any {
	value := c.Value
	if value == nil {
		value = new(big.Int)
	}

	return []any{c.To.Bytes(), value, c.Data}
}

// =============================================================================

// Tx is the unsigned transaction body.
type Tx struct {
	ChainTag     byte      // Network selector byte.
	BlockRef     BlockRef  // Anchors the validity window to a recent block.
	Expiration   uint64    // Number of blocks the tx remains valid.
	Clauses      []Clause  // Recipient and payload pairs.
	GasPriceCoef uint8     // Gas price coefficient.
	Gas          uint64    // Gas the tx is allowed to consume.
	DependsOn    *[32]byte // Optional id of a tx that must be executed first.
	Nonce        uint64    // Random value to keep tx ids unique.
}

// New constructs an unsigned transaction for a single clause with the fixed
// expiration and gas price coefficient.
func New(chainTag byte, clause Clause, gas uint64, blockRef BlockRef, nonce uint64) Tx {
	return Tx{
		ChainTag:     chainTag,
		BlockRef:     blockRef,
		Expiration:   Expiration,
		Clauses:      []Clause{clause},
		GasPriceCoef: GasPriceCoef,
		Gas:          gas,
		Nonce:        nonce,
	}
}

// Fields returns the transaction as the ordered list of values that is
// encoded for both the signing hash and the signed transaction.
func (tx Tx) Fields() []any {
	clauses := make([]any, len(tx.Clauses))
	for i, c := range tx.Clauses {
		clauses[i] = c.fields()
	}

	dependsOn := []byte{}
	if tx.DependsOn != nil {
		dependsOn = tx.DependsOn[:]
	}

	return []any{
		tx.ChainTag,
		tx.BlockRef[:],
		tx.Expiration,
		clauses,
		tx.GasPriceCoef,
		tx.Gas,
		dependsOn,
		tx.Nonce,
		[]any{}, // reserved
	}
}

// SigningHash returns the Blake2b-256 hash of the encoded fields. This is
// the digest that gets signed.
func (tx Tx) SigningHash() ([32]byte, error) {
	encoded, err := rlp.Encode(tx.Fields())
	if err != nil {
		return [32]byte{}, fmt.Errorf("encode tx: %w", err)
	}

	return blake2b.Sum256(encoded), nil
}

// Sign uses the specified private key to sign the transaction.
func (tx Tx) Sign(privateKey *ecdsa.PrivateKey) (SignedTx, error) {
	hash, err := tx.SigningHash()
	if err != nil {
		return SignedTx{}, err
	}

	sig, err := signature.Sign(hash[:], privateKey)
	if err != nil {
		return SignedTx{}, err
	}

	signedTx := SignedTx{
		Tx:          tx,
		Signature:   sig,
		signingHash: hash,
	}

	return signedTx, nil
}

// =============================================================================

// SignedTx is a signed version of the transaction. This is what gets
// submitted to the node.
type SignedTx struct {
	Tx
	Signature signature.Signature

	signingHash [32]byte
}

// AppendSignature appends the [r, s, v] triple to the transaction fields.
func AppendSignature(fields []any, sig signature.Signature) []any {
	out := make([]any, len(fields), len(fields)+1)
	copy(out, fields)

	triple := []any{sig.R[:], sig.S[:], sig.V}
	return append(out, triple)
}

// Encode returns the encoding of the signed transaction.
func (tx SignedTx) Encode() ([]byte, error) {
	encoded, err := rlp.Encode(AppendSignature(tx.Fields(), tx.Signature))
	if err != nil {
		return nil, fmt.Errorf("encode signed tx: %w", err)
	}

	return encoded, nil
}

// Raw returns the 0x prefixed hex encoding submitted to the node.
func (tx SignedTx) Raw() (string, error) {
	encoded, err := tx.Encode()
	if err != nil {
		return "", err
	}

	return hexutil.Encode(encoded), nil
}

// SigningHash returns the digest that was signed.
func (tx SignedTx) SigningHash() [32]byte {
	return tx.signingHash
}

// Origin extracts the account that signed the transaction.
func (tx SignedTx) Origin() (common.Address, error) {
	return signature.FromAddress(tx.signingHash[:], tx.Signature)
}

// ID returns the transaction id the node assigns: the Blake2b-256 hash of
// the signing hash followed by the origin address.
func (tx SignedTx) ID() (string, error) {
	origin, err := tx.Origin()
	if err != nil {
		return "", err
	}

	id := ID(tx.signingHash, origin)
	return hexutil.Encode(id[:]), nil
}

// ID computes a transaction id from a signing hash and origin address.
func ID(signingHash [32]byte, origin common.Address) [32]byte {
	return blake2b.Sum256(signingHash[:], origin.Bytes())
}

// Package signature provides helper functions for handling the blockchain
// signature needs: parsing the wallet key and signing transaction hashes.
package signature

import (
	"crypto/ecdsa"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// ErrSigning is returned for malformed keys and failed signatures.
var ErrSigning = errors.New("signature: signing")

// keyLength is the number of bytes in a secp256k1 private key.
const keyLength = 32

// =============================================================================

// Signature is an ECDSA signature in the [R|S|V] format.
type Signature struct {
	R [32]byte // Ethereum: First coordinate of the ECDSA signature.
	S [32]byte // Ethereum: Second coordinate of the ECDSA signature.
	V byte     // Ethereum: Recovery identifier, either 0 or 1.
}

// Bytes returns the 65 byte [R|S|V] representation.
func (sig Signature) Bytes() []byte {
	b := make([]byte, crypto.SignatureLength)
	copy(b, sig.R[:])
	copy(b[32:], sig.S[:])
	b[crypto.RecoveryIDOffset] = sig.V

	return b
}

// String returns the signature as a hex string.
func (sig Signature) String() string {
	return "0x" + hex.EncodeToString(sig.Bytes())
}

// =============================================================================

// PrivateKeyFromHex parses a hex-encoded private key. The 0x prefix is
// optional but the key must be exactly 32 bytes.
func PrivateKeyFromHex(key string) (*ecdsa.PrivateKey, error) {
	key = strings.TrimPrefix(key, "0x")

	if len(key) != 2*keyLength {
		return nil, fmt.Errorf("%w: private key must be %d bytes, got %d hex chars", ErrSigning, keyLength, len(key))
	}

	privateKey, err := crypto.HexToECDSA(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	return privateKey, nil
}

// LoadPrivateKey reads a hex-encoded private key from the key file at the
// specified path.
func LoadPrivateKey(path string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.LoadECDSA(path)
	if err != nil {
		return nil, fmt.Errorf("%w: loading key file: %w", ErrSigning, err)
	}

	return privateKey, nil
}

// GenerateKeyFile creates a new private key and saves it to the key file at
// the specified path.
func GenerateKeyFile(path string) (*ecdsa.PrivateKey, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, fmt.Errorf("%w: generating key: %w", ErrSigning, err)
	}

	if err := crypto.SaveECDSA(path, privateKey); err != nil {
		return nil, fmt.Errorf("%w: saving key file: %w", ErrSigning, err)
	}

	return privateKey, nil
}

// KeyHex returns the 0x prefixed hex encoding of the private key.
func KeyHex(privateKey *ecdsa.PrivateKey) string {
	return "0x" + hex.EncodeToString(crypto.FromECDSA(privateKey))
}

// Address returns the account address for the private key.
func Address(privateKey *ecdsa.PrivateKey) common.Address {
	return crypto.PubkeyToAddress(privateKey.PublicKey)
}

// Sign uses the specified private key to sign the 32 byte digest.
func Sign(digest []byte, privateKey *ecdsa.PrivateKey) (Signature, error) {
	if privateKey == nil {
		return Signature{}, fmt.Errorf("%w: missing private key", ErrSigning)
	}

	// Sign the hash with the private key to produce a signature.
	sig, err := crypto.Sign(digest, privateKey)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	// Extract the public key from the data and the signature.
	publicKey, err := crypto.SigToPub(digest, sig)
	if err != nil {
		return Signature{}, fmt.Errorf("%w: %w", ErrSigning, err)
	}

	// Check the public key extracted from the data and signature.
	rs := sig[:crypto.RecoveryIDOffset]
	if !crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, rs) {
		return Signature{}, fmt.Errorf("%w: invalid signature", ErrSigning)
	}

	return toSignature(sig), nil
}

// Verify reports whether the signature over the digest was produced by the
// private key of the specified public key.
func Verify(digest []byte, sig Signature, publicKey *ecdsa.PublicKey) bool {
	rs := sig.Bytes()[:crypto.RecoveryIDOffset]
	return crypto.VerifySignature(crypto.FromECDSAPub(publicKey), digest, rs)
}

// FromAddress extracts the address for the account that signed the digest.
func FromAddress(digest []byte, sig Signature) (common.Address, error) {
	if sig.V > 1 {
		return common.Address{}, errors.New("invalid recovery id")
	}

	// Capture the public key associated with this data and signature.
	publicKey, err := crypto.SigToPub(digest, sig.Bytes())
	if err != nil {
		return common.Address{}, err
	}

	return crypto.PubkeyToAddress(*publicKey), nil
}

// =============================================================================

// toSignature converts the 65 byte signature into the r, s, v values. The
// recovery id is reduced modulo 2.
func toSignature(sig []byte) Signature {
	var s Signature
	copy(s.R[:], sig[:32])
	copy(s.S[:], sig[32:64])
	s.V = sig[crypto.RecoveryIDOffset] % 2

	return s
}

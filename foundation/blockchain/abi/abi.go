// Package abi loads a contract interface definition and encodes calls to
// one of its functions into transaction calldata.
package abi

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	ethabi "github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Set of error variables for loading and encoding.
var (
	ErrFunctionNotFound = errors.New("abi: function not found")
	ErrEncoding         = errors.New("abi: encoding")
)

// Supported parameter types.
const (
	TypeAddress = "address"
	TypeUint256 = "uint256"
)

// wordSize is the width of every encoded parameter.
const wordSize = 32

// =============================================================================

// Param describes a single function input.
type Param struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Function describes a callable contract function. A Function is immutable
// once loaded.
type Function struct {
	Name   string  `json:"name"`
	Inputs []Param `json:"inputs"`
}

// Load reads the contract interface file at the specified path and returns
// the function with the specified name.
func Load(path string, name string) (Function, error) {
	f, err := os.Open(path)
	if err != nil {
		return Function{}, fmt.Errorf("open contract interface: %w", err)
	}
	defer f.Close()

	return Parse(f, name)
}

// Parse decodes a contract interface definition and selects the entry of
// type function with the specified name.
func Parse(r io.Reader, name string) (Function, error) {
	contract, err := ethabi.JSON(r)
	if err != nil {
		return Function{}, fmt.Errorf("parse contract interface: %w", err)
	}

	method, exists := contract.Methods[name]
	if !exists || method.Type != ethabi.Function {
		return Function{}, fmt.Errorf("%w: %s", ErrFunctionNotFound, name)
	}

	fn := Function{
		Name:   method.RawName,
		Inputs: make([]Param, len(method.Inputs)),
	}
	for i, arg := range method.Inputs {
		fn.Inputs[i] = Param{
			Name: arg.Name,
			Type: arg.Type.String(),
		}
	}

	return fn, nil
}

// Signature returns the canonical signature such as "transfer(address,uint256)".
func (fn Function) Signature() string {
	types := make([]string, len(fn.Inputs))
	for i, in := range fn.Inputs {
		types[i] = in.Type
	}

	return fmt.Sprintf("%s(%s)", fn.Name, strings.Join(types, ","))
}

// Selector returns the first 4 bytes of the Keccak-256 hash of the signature.
func (fn Function) Selector() [4]byte {
	var sel [4]byte
	copy(sel[:], crypto.Keccak256([]byte(fn.Signature())))
	return sel
}

// Encode returns the calldata for a call to the function with the specified
// arguments: the selector followed by every argument padded to 32 bytes.
func (fn Function) Encode(args ...any) ([]byte, error) {
	if len(args) != len(fn.Inputs) {
		return nil, fmt.Errorf("%w: %s expects %d arguments, got %d", ErrEncoding, fn.Name, len(fn.Inputs), len(args))
	}

	sel := fn.Selector()

	data := make([]byte, 0, len(sel)+wordSize*len(args))
	data = append(data, sel[:]...)

	for i, in := range fn.Inputs {
		var word []byte
		var err error

		switch in.Type {
		case TypeAddress:
			word, err = encodeAddress(args[i])
		case TypeUint256:
			word, err = encodeUint256(args[i])
		default:
			err = fmt.Errorf("unsupported type %q", in.Type)
		}

		if err != nil {
			return nil, fmt.Errorf("%w: argument %d (%s): %w", ErrEncoding, i, in.Name, err)
		}

		data = append(data, word...)
	}

	return data, nil
}

// =============================================================================

// encodeAddress left pads a 20 byte address to a full word.
func encodeAddress(arg any) ([]byte, error) {
	var addr []byte

	switch v := arg.(type) {
	case common.Address:
		addr = v.Bytes()

	case string:
		b, err := hex.DecodeString(strings.TrimPrefix(v, "0x"))
		if err != nil {
			return nil, fmt.Errorf("address %q: %w", v, err)
		}
		addr = b

	default:
		return nil, fmt.Errorf("address from %T", arg)
	}

	if len(addr) != common.AddressLength {
		return nil, fmt.Errorf("address must be %d bytes, got %d", common.AddressLength, len(addr))
	}

	return leftPad(addr), nil
}

// encodeUint256 left pads the big-endian representation to a full word.
func encodeUint256(arg any) ([]byte, error) {
	var n *big.Int

	switch v := arg.(type) {
	case *big.Int:
		if v == nil {
			return nil, errors.New("nil integer")
		}
		n = v
	case uint64:
		n = new(big.Int).SetUint64(v)
	case uint:
		n = new(big.Int).SetUint64(uint64(v))
	case int64:
		n = big.NewInt(v)
	case int:
		n = big.NewInt(int64(v))
	default:
		return nil, fmt.Errorf("uint256 from %T", arg)
	}

	if n.Sign() < 0 {
		return nil, fmt.Errorf("negative value %s", n)
	}
	if n.BitLen() > 8*wordSize {
		return nil, fmt.Errorf("value overflows 256 bits")
	}

	return leftPad(n.Bytes()), nil
}

func leftPad(b []byte) []byte {
	word := make([]byte, wordSize)
	copy(word[wordSize-len(b):], b)
	return word
}

// Package rlp implements the write side of the recursive length prefix
// encoding the chain uses to serialize transactions. Decoding is not
// provided since transactions only ever flow towards the node.
package rlp

import (
	"errors"
	"fmt"
	"math/big"
)

// Set of error variables for encoding.
var (
	ErrUnsupportedType = errors.New("rlp: unsupported type")
	ErrNegativeInteger = errors.New("rlp: negative integer")
)

// Prefix offsets defined by the encoding. Payloads shorter than 56 bytes
// carry their length in the prefix byte itself.
const (
	offsetShortString = 0x80
	offsetLongString  = 0xb7
	offsetShortList   = 0xc0
	offsetLongList    = 0xf7
	maxShortPayload   = 55
)

// =============================================================================

// Encode returns the encoding of the specified value. Supported values are
// byte slices and strings (encoded as byte strings), unsigned and
// non-negative signed integers and big integers (encoded as their minimal
// big-endian representation) and []any lists of any of these, recursively.
func Encode(val any) ([]byte, error) {
	switch v := val.(type) {
	case []byte:
		return encodeString(v), nil

	case string:
		return encodeString([]byte(v)), nil

	case uint8:
		return encodeString(uintBytes(uint64(v))), nil

	case uint16:
		return encodeString(uintBytes(uint64(v))), nil

	case uint32:
		return encodeString(uintBytes(uint64(v))), nil

	case uint64:
		return encodeString(uintBytes(v)), nil

	case uint:
		return encodeString(uintBytes(uint64(v))), nil

	case int:
		return encodeInt(int64(v))

	case int64:
		return encodeInt(v)

	case *big.Int:
		if v == nil {
			return nil, fmt.Errorf("%w: nil big integer", ErrUnsupportedType)
		}
		if v.Sign() < 0 {
			return nil, fmt.Errorf("%w: %s", ErrNegativeInteger, v)
		}
		return encodeString(v.Bytes()), nil

	case []any:
		return encodeList(v)
	}

	return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, val)
}

// =============================================================================

// encodeString applies the byte string rules. A single byte below 0x80 is
// its own encoding.
func encodeString(b []byte) []byte {
	if len(b) == 1 && b[0] < offsetShortString {
		return []byte{b[0]}
	}

	out := lengthPrefix(len(b), offsetShortString, offsetLongString)
	return append(out, b...)
}

// encodeList encodes every element and prefixes the concatenated payload.
func encodeList(items []any) ([]byte, error) {
	var payload []byte
	for i, item := range items {
		enc, err := Encode(item)
		if err != nil {
			return nil, fmt.Errorf("list item %d: %w", i, err)
		}
		payload = append(payload, enc...)
	}

	out := lengthPrefix(len(payload), offsetShortList, offsetLongList)
	return append(out, payload...), nil
}

func encodeInt(v int64) ([]byte, error) {
	if v < 0 {
		return nil, fmt.Errorf("%w: %d", ErrNegativeInteger, v)
	}

	return encodeString(uintBytes(uint64(v))), nil
}

// lengthPrefix constructs the prefix for a payload of the specified size.
func lengthPrefix(size int, offsetShort byte, offsetLong byte) []byte {
	if size <= maxShortPayload {
		return []byte{offsetShort + byte(size)}
	}

	lb := uintBytes(uint64(size))
	out := make([]byte, 0, 1+len(lb)+size)
	out = append(out, offsetLong+byte(len(lb)))
	return append(out, lb...)
}

// uintBytes returns the minimal big-endian representation of v. Zero is
// represented by no bytes at all.
func uintBytes(v uint64) []byte {
	var buf [8]byte
	n := 8
	for v > 0 {
		n--
		buf[n] = byte(v)
		v >>= 8
	}

	return buf[n:]
}

package tx

import (
	"crypto/rand"
	"encoding/binary"
	"math"
)

// Nonce returns a uniformly random value in the 63-bit space. Nonces are
// not ordered, they only need to keep otherwise identical transactions
// from sharing an id.
func Nonce() uint64 {
	var b [8]byte

	// Read never returns an error and never short reads.
	rand.Read(b[:])

	return binary.BigEndian.Uint64(b[:]) & math.MaxInt64
}

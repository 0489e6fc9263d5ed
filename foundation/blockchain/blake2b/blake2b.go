// Package blake2b computes the Blake2b-256 digest the chain uses for
// transaction signing hashes and transaction ids. The compression function
// is written out on fixed width 64-bit words so the wraparound and rotation
// behavior is exact.
package blake2b

import (
	"encoding/binary"
	"math/bits"
)

// Size is the digest length in bytes.
const Size = 32

// BlockSize is the number of message bytes consumed per compression.
const BlockSize = 128

// rounds is the number of mixing rounds applied to every block.
const rounds = 12

// iv holds the initialization vector, shared with SHA-512.
var iv = [8]uint64{
	0x6a09e667f3bcc908, 0xbb67ae8584caa73b,
	0x3c6ef372fe94f82b, 0xa54ff53a5f1d36f1,
	0x510e527fade682d1, 0x9b05688c2b3e6c1f,
	0x1f83d9abfb41bd6b, 0x5be0cd19137e2179,
}

// sigma is the message schedule. Rounds 10 and 11 reuse rows 0 and 1.
var sigma = [rounds][16]byte{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
	{11, 8, 12, 0, 5, 2, 15, 13, 10, 14, 3, 6, 7, 1, 9, 4},
	{7, 9, 3, 1, 13, 12, 11, 14, 2, 6, 5, 10, 4, 0, 15, 8},
	{9, 0, 5, 7, 2, 4, 10, 15, 14, 1, 11, 12, 6, 8, 3, 13},
	{2, 12, 6, 10, 0, 11, 8, 3, 4, 13, 7, 5, 15, 14, 1, 9},
	{12, 5, 1, 15, 14, 13, 4, 10, 0, 7, 6, 3, 9, 2, 8, 11},
	{13, 11, 7, 14, 12, 1, 3, 9, 5, 0, 15, 4, 8, 6, 2, 10},
	{6, 15, 14, 9, 11, 3, 0, 8, 12, 2, 13, 7, 1, 4, 10, 5},
	{10, 2, 8, 4, 7, 6, 1, 5, 15, 11, 9, 14, 3, 12, 13, 0},
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15},
	{14, 10, 4, 8, 9, 15, 13, 6, 1, 12, 0, 2, 11, 7, 5, 3},
}

// paramBlock encodes digest length 32, key length 0, fanout 1 and depth 1.
const paramBlock = 0x01010000 | Size

// =============================================================================

// Sum256 returns the Blake2b-256 digest of the concatenation of the
// specified byte slices.
func Sum256(data ...[]byte) [Size]byte {
	var msg []byte
	switch len(data) {
	case 1:
		msg = data[0]
	default:
		for _, d := range data {
			msg = append(msg, d...)
		}
	}

	h := iv
	h[0] ^= paramBlock

	// The counter holds the number of bytes hashed so far including the
	// block being compressed. Inputs here never reach 2^64 bytes so the
	// high word of the counter stays zero.
	var counter uint64

	// Every block except the last one is compressed without the final flag.
	// The empty message is processed as a single zero filled final block.
	for len(msg) > BlockSize {
		counter += BlockSize
		compress(&h, msg[:BlockSize], counter, false)
		msg = msg[BlockSize:]
	}

	var last [BlockSize]byte
	copy(last[:], msg)
	counter += uint64(len(msg))
	compress(&h, last[:], counter, true)

	var out [Size]byte
	for i := 0; i < Size/8; i++ {
		binary.LittleEndian.PutUint64(out[i*8:], h[i])
	}

	return out
}

// =============================================================================

// compress mixes one 128 byte block into the chain state.
func compress(h *[8]uint64, block []byte, counter uint64, final bool) {
	var m [16]uint64
	for i := range m {
		m[i] = binary.LittleEndian.Uint64(block[i*8:])
	}

	var v [16]uint64
	copy(v[:8], h[:])
	copy(v[8:], iv[:])
	v[12] ^= counter
	if final {
		v[14] = ^v[14]
	}

	for r := 0; r < rounds; r++ {
		s := &sigma[r]

		g(&v, 0, 4, 8, 12, m[s[0]], m[s[1]])
		g(&v, 1, 5, 9, 13, m[s[2]], m[s[3]])
		g(&v, 2, 6, 10, 14, m[s[4]], m[s[5]])
		g(&v, 3, 7, 11, 15, m[s[6]], m[s[7]])

		g(&v, 0, 5, 10, 15, m[s[8]], m[s[9]])
		g(&v, 1, 6, 11, 12, m[s[10]], m[s[11]])
		g(&v, 2, 7, 8, 13, m[s[12]], m[s[13]])
		g(&v, 3, 4, 9, 14, m[s[14]], m[s[15]])
	}

	for i := 0; i < 8; i++ {
		h[i] ^= v[i] ^ v[i+8]
	}
}

// g is the quarter round mixing function. Addition wraps modulo 2^64.
func g(v *[16]uint64, a, b, c, d int, x, y uint64) {
	v[a] += v[b] + x
	v[d] = bits.RotateLeft64(v[d]^v[a], -32)
	v[c] += v[d]
	v[b] = bits.RotateLeft64(v[b]^v[c], -24)
	v[a] += v[b] + y
	v[d] = bits.RotateLeft64(v[d]^v[a], -16)
	v[c] += v[d]
	v[b] = bits.RotateLeft64(v[b]^v[c], -63)
}

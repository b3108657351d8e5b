package sieve

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
)

// Tally summarises the survivors of one or more bitmaps. Sum wraps on overflow.
type Tally struct {
	Count int    `json:"count"`
	Sum   uint64 `json:"sum"`
}

func (t Tally) Add(o Tally) Tally {
	return Tally{Count: t.Count + o.Count, Sum: t.Sum + o.Sum}
}

// Tally counts the survivors of b, whose first index stands for low.
func (b Bitmap) Tally(low int) Tally {
	var t Tally
	for i, isPrime := range b {
		if isPrime {
			t.Count++
			t.Sum += uint64(low + i)
		}
	}
	return t
}

// Primes lists the survivors of b as integers.
func (b Bitmap) Primes(low int) []int {
	result := make([]int, 0)
	for i, isPrime := range b {
		if isPrime {
			result = append(result, low+i)
		}
	}
	return result
}

// Digest hashes a prime sequence fed chunk by chunk in ascending order, so
// the sum does not depend on how [0, N] was partitioned.
type Digest struct {
	h     hash.Hash
	count int
	buf   [8]byte
}

func NewDigest() *Digest {
	return &Digest{h: sha256.New()}
}

// Write adds the survivors of b. Chunks must be written in ascending order.
func (d *Digest) Write(low int, b Bitmap) {
	for i, isPrime := range b {
		if !isPrime {
			continue
		}
		binary.BigEndian.PutUint64(d.buf[:], uint64(low+i))
		d.h.Write(d.buf[:])
		d.count++
	}
}

func (d *Digest) Count() int {
	return d.count
}

func (d *Digest) Sum() string {
	return hex.EncodeToString(d.h.Sum(nil))
}

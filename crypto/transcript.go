package crypto

import (
	"encoding/binary"
	"hash"

	big "github.com/ncw/gmp"
	"golang.org/x/crypto/sha3"

	"github.com/thechriswalker/go-ccmix/crypto/random"
)

// Transcript is an append-only, length-prefixed SHA3-256 hash of a sequence
// of labelled values. Two transcripts produce the same digest only if the
// same values were appended in the same order, so it is safe to use for
// Fiat-Shamir challenges and for hashing structured data without worrying
// about ambiguous concatenations.
type Transcript struct {
	h hash.Hash
}

// NewTranscript starts a transcript bound to the given domain label.
func NewTranscript(domain string) *Transcript {
	t := &Transcript{h: sha3.New256()}
	t.Label(domain)
	return t
}

func (t *Transcript) write(tag byte, b []byte) {
	var prefix [5]byte
	prefix[0] = tag
	binary.BigEndian.PutUint32(prefix[1:], uint32(len(b)))
	t.h.Write(prefix[:])
	t.h.Write(b)
}

// Label appends a string.
func (t *Transcript) Label(s string) *Transcript {
	t.write('s', []byte(s))
	return t
}

// Bytes appends raw bytes.
func (t *Transcript) Bytes(b []byte) *Transcript {
	t.write('b', b)
	return t
}

// Uint appends an unsigned integer.
func (t *Transcript) Uint(n uint64) *Transcript {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], n)
	t.write('u', b[:])
	return t
}

// Int appends each of the given integers in order.
func (t *Transcript) Int(xs ...*big.Int) *Transcript {
	for _, x := range xs {
		t.write('i', x.Bytes())
	}
	return t
}

// Ints appends a length-prefixed list of integers.
func (t *Transcript) Ints(xs []*big.Int) *Transcript {
	t.Uint(uint64(len(xs)))
	return t.Int(xs...)
}

// Sum returns the digest of everything appended so far. The transcript may
// continue to be used afterwards.
func (t *Transcript) Sum() []byte {
	return t.h.Sum(nil)
}

// Challenge returns the digest reduced modulo max. Appending the index as a
// separate step gives a stream of independent challenges from one transcript.
func (t *Transcript) Challenge(max *big.Int) *big.Int {
	return random.Oracle(t.Sum(), max)
}

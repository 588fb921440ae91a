package random

import (
	"crypto/rand"

	gbig "math/big"

	big "github.com/ncw/gmp"
	"golang.org/x/crypto/sha3"
)

// Int returns a uniformly random int in [0, max)
func Int(max *big.Int) *big.Int {
	r, err := rand.Int(rand.Reader, new(gbig.Int).SetBytes(max.Bytes()))
	if err != nil {
		// the rand.Reader is broken. Nothing we can do.
		panic(err)
	}
	return new(big.Int).SetBytes(r.Bytes())
}

// Ints returns n independent values from Int(max)
func Ints(n int, max *big.Int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = Int(max)
	}
	return out
}

// Oracle is used for turning bytes into a random, but deterministic integer
// in [0, max). Transcript challenges are drawn through it.
func Oracle(input []byte, max *big.Int) *big.Int {
	h := sha3.Sum256(input)
	var x big.Int
	x.SetBytes(h[:])
	x.Mod(&x, max)
	return &x
}

// Permutation returns a uniformly random permutation of [0, n)
// using a Fisher-Yates shuffle over crypto/rand.
func Permutation(n int) []int {
	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	for i := n - 1; i > 0; i-- {
		j, err := rand.Int(rand.Reader, gbig.NewInt(int64(i+1)))
		if err != nil {
			panic(err)
		}
		k := int(j.Int64())
		perm[i], perm[k] = perm[k], perm[i]
	}
	return perm
}

// SafePrimes returns two primes P and Q where P is pbits bits
// and P = 2Q + 1
func SafePrimes(bits int) (*big.Int, *big.Int) {
	one := gbig.NewInt(1)
	alpha := gbig.NewInt(2)

	q, p := new(gbig.Int), new(gbig.Int)
	var err error
	for {
		p, err = rand.Prime(rand.Reader, bits)
		// will only err on bad reader.
		if err != nil {
			panic(err)
		}
		// check is q = (p-1)/alpha is prime
		q.Sub(p, one)
		q.Div(q, alpha)
		// we use 20 as that is what rand.Prime uses
		if q.ProbablyPrime(20) {
			P := new(big.Int).SetBytes(p.Bytes())
			Q := new(big.Int).SetBytes(q.Bytes())
			return P, Q
		}
	}
}

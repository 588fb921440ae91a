package elgamal

import (
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
	"github.com/thechriswalker/go-ccmix/crypto/random"
)

// Group is a prime order q subgroup of Z_p^* generated by G.
// Every key, ciphertext and proof in one protocol run lives in a
// single Group.
type Group struct {
	P, Q, G *big.Int
}

var (
	bigZero = big.NewInt(0)
	bigOne  = big.NewInt(1)
)

// NewGroup creates a validated group.
func NewGroup(p, q, g *big.Int) (*Group, error) {
	grp := &Group{
		P: new(big.Int).Set(p),
		Q: new(big.Int).Set(q),
		G: new(big.Int).Set(g),
	}
	if err := grp.Validate(); err != nil {
		return nil, err
	}
	return grp, nil
}

// GenerateGroup creates a new group with a safe prime of n-bits,
// generated by a quadratic residue. This is very slow for large primes.
func GenerateGroup(bits int) *Group {
	grp := &Group{}
	grp.P, grp.Q = random.SafePrimes(bits)
	for {
		x := random.Int(grp.P)
		x.Mul(x, x)
		x.Mod(x, grp.P)
		if x.Cmp(bigOne) > 0 {
			grp.G = x
			return grp
		}
	}
}

// Validate checks the group params are OK. That is that
// p and q are (probably) prime, q divides p-1 and g is a
// non-trivial element of order q.
func (grp *Group) Validate() error {
	if grp.P == nil || grp.Q == nil || grp.G == nil {
		return fmt.Errorf("Group invalid: missing parameters")
	}
	if !grp.P.ProbablyPrime(20) {
		return fmt.Errorf("Group invalid: p is not prime")
	}
	if !grp.Q.ProbablyPrime(20) {
		return fmt.Errorf("Group invalid: q is not prime")
	}
	pMinusOne := new(big.Int).Sub(grp.P, bigOne)
	if new(big.Int).Rem(pMinusOne, grp.Q).Cmp(bigZero) != 0 {
		return fmt.Errorf("Group invalid: q does not divide p-1")
	}
	if grp.G.Cmp(bigOne) <= 0 || grp.G.Cmp(grp.P) >= 0 {
		return fmt.Errorf("Group invalid: g not in [2, p-1]")
	}
	if new(big.Int).Exp(grp.G, grp.Q, grp.P).Cmp(bigOne) != 0 {
		return fmt.Errorf("Group invalid: g^q != 1 mod p")
	}
	return nil
}

func (grp *Group) String() string {
	return fmt.Sprintf("Group[p=%s, q=%s, g=%s]", crypto.BigIntToJSON(grp.P), crypto.BigIntToJSON(grp.Q), crypto.BigIntToJSON(grp.G))
}

// SameOrder reports whether both groups have the same order q.
func (grp *Group) SameOrder(other *Group) bool {
	if grp == nil || other == nil {
		return false
	}
	return grp.Q.Cmp(other.Q) == 0
}

// Equal reports whether the two groups have identical parameters.
func (grp *Group) Equal(other *Group) bool {
	if grp == nil || other == nil {
		return grp == other
	}
	return grp.P.Cmp(other.P) == 0 && grp.Q.Cmp(other.Q) == 0 && grp.G.Cmp(other.G) == 0
}

// IsMember checks that x is an element of the order q subgroup.
func (grp *Group) IsMember(x *big.Int) bool {
	if x == nil || x.Cmp(bigOne) < 0 || x.Cmp(grp.P) >= 0 {
		return false
	}
	return new(big.Int).Exp(x, grp.Q, grp.P).Cmp(bigOne) == 0
}

// IsExponent checks that x is in Z_q
func (grp *Group) IsExponent(x *big.Int) bool {
	return x != nil && x.Sign() >= 0 && x.Cmp(grp.Q) < 0
}

// Exp returns base^e mod p for e in Z_q.
func (grp *Group) Exp(base, e *big.Int) *big.Int {
	return new(big.Int).Exp(base, e, grp.P)
}

// GExp returns g^e mod p.
func (grp *Group) GExp(e *big.Int) *big.Int {
	return new(big.Int).Exp(grp.G, e, grp.P)
}

// Mul returns the product of the given elements mod p.
func (grp *Group) Mul(xs ...*big.Int) *big.Int {
	acc := big.NewInt(1)
	for _, x := range xs {
		acc.Mul(acc, x)
		acc.Mod(acc, grp.P)
	}
	return acc
}

// Inv returns x^-1 mod p.
func (grp *Group) Inv(x *big.Int) *big.Int {
	return new(big.Int).ModInverse(x, grp.P)
}

// ExpInv returns base^-e mod p.
func (grp *Group) ExpInv(base, e *big.Int) *big.Int {
	return grp.Inv(grp.Exp(base, e))
}

// RandomExponent returns a uniformly random element of Z_q.
func (grp *Group) RandomExponent() *big.Int {
	return random.Int(grp.Q)
}

// ModQ reduces x into Z_q in place and returns it.
func (grp *Group) ModQ(x *big.Int) *big.Int {
	return x.Mod(x, grp.Q)
}

// Generators derives n group elements from the given seed by hashing into
// Z_p and raising to the cofactor (p-1)/q. Nobody knows the discrete log of
// the result relative to g, or to each other.
func (grp *Group) Generators(seed string, n int) []*big.Int {
	cofactor := new(big.Int).Sub(grp.P, bigOne)
	cofactor.Div(cofactor, grp.Q)
	out := make([]*big.Int, n)
	for i := 0; i < n; i++ {
		for counter := uint64(0); ; counter++ {
			x := crypto.NewTranscript("ccmix:generators").
				Label(seed).
				Int(grp.P, grp.Q, grp.G).
				Uint(uint64(i)).
				Uint(counter).
				Challenge(grp.P)
			x.Exp(x, cofactor, grp.P)
			if x.Cmp(bigOne) > 0 {
				out[i] = x
				break
			}
		}
	}
	return out
}

// Transcript starts a hash transcript bound to this group.
func (grp *Group) Transcript(domain string) *crypto.Transcript {
	return crypto.NewTranscript(domain).Int(grp.P, grp.Q, grp.G)
}

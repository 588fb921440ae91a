package mixnet

import (
	"errors"
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// ErrArgumentInvalid is wrapped by every shuffle argument failure
var ErrArgumentInvalid = errors.New("shuffle argument invalid")

const commitmentKeySeed = "ccmix:shuffle-commitment-key"

// ShuffleArgument is the non-interactive proof that one ciphertext vector
// is a permutation and re-encryption of another.
//
// C commits to the permutation, CHat is the commitment chain over the
// permuted challenges. T* are the prover commitments and S* the responses.
type ShuffleArgument struct {
	C    crypto.BigIntSlice
	CHat crypto.BigIntSlice

	T1, T2, T3 *big.Int
	T4Gamma    *big.Int
	T4Phis     crypto.BigIntSlice
	THat       crypto.BigIntSlice

	S1, S2, S3, S4 *big.Int
	SHat           crypto.BigIntSlice
	SPrime         crypto.BigIntSlice
}

// commitmentKey returns h and h_1..h_n
func commitmentKey(grp *elgamal.Group, n int) (*big.Int, []*big.Int) {
	gens := grp.Generators(commitmentKeySeed, n+1)
	return gens[0], gens[1:]
}

// statementDigest binds the public statement: key, input, output,
// permutation commitments and auxiliary data.
func statementDigest(pk *elgamal.PublicKey, in, out elgamal.CiphertextVector, c []*big.Int, aux []string) []byte {
	t := pk.Transcript("ccmix:shuffle-statement").Ints(pk.Y)
	in.AppendTo(t)
	out.AppendTo(t)
	t.Ints(c)
	t.Uint(uint64(len(aux)))
	for _, a := range aux {
		t.Label(a)
	}
	return t.Sum()
}

func challenges(grp *elgamal.Group, digest []byte, n int) []*big.Int {
	u := make([]*big.Int, n)
	for i := range u {
		u[i] = crypto.NewTranscript("ccmix:shuffle-u").Bytes(digest).Uint(uint64(i)).Challenge(grp.Q)
	}
	return u
}

func (a *ShuffleArgument) challenge(grp *elgamal.Group, digest []byte) *big.Int {
	return crypto.NewTranscript("ccmix:shuffle-c").
		Bytes(digest).
		Ints(a.CHat).
		Int(a.T1, a.T2, a.T3, a.T4Gamma).
		Ints(a.T4Phis).
		Ints(a.THat).
		Challenge(grp.Q)
}

// response computes (w + c * x) mod q
func response(grp *elgamal.Group, w, c, x *big.Int) *big.Int {
	s := new(big.Int).Mul(c, x)
	s.Add(s, w)
	return grp.ModQ(s)
}

// ProveShuffle creates the argument for a shuffle produced by GenShuffle.
func ProveShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, s *Shuffle, aux ...string) (*ShuffleArgument, error) {
	if err := checkInput(pk, in); err != nil {
		return nil, err
	}
	grp := pk.Group
	n := len(in)
	if len(s.Ciphertexts) != n || len(s.Permutation) != n || len(s.Randomness) != n {
		return nil, fmt.Errorf("shuffle witness does not match input of size %d", n)
	}
	out := s.Ciphertexts
	width := pk.Width()
	h, hs := commitmentKey(grp, n)

	// commit to the permutation: c_{perm[i]} = g^{r_{perm[i]}} * h_i
	arg := &ShuffleArgument{C: make(crypto.BigIntSlice, n)}
	rc := make([]*big.Int, n)
	for i, j := range s.Permutation {
		rc[j] = grp.RandomExponent()
		arg.C[j] = grp.Mul(grp.GExp(rc[j]), hs[i])
	}

	digest := statementDigest(pk, in, out, arg.C, aux)
	u := challenges(grp, digest, n)
	uPerm := make([]*big.Int, n)
	for i, j := range s.Permutation {
		uPerm[i] = u[j]
	}

	// commitment chain over the permuted challenges
	arg.CHat = make(crypto.BigIntSlice, n)
	rh := make([]*big.Int, n)
	prev := h
	for i := range rh {
		rh[i] = grp.RandomExponent()
		arg.CHat[i] = grp.Mul(grp.GExp(rh[i]), grp.Exp(prev, uPerm[i]))
		prev = arg.CHat[i]
	}

	// aggregated witnesses
	rBar, rHat, rTilde, rPrime := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
	v := make([]*big.Int, n)
	v[n-1] = big.NewInt(1)
	for i := n - 1; i > 0; i-- {
		v[i-1] = grp.ModQ(new(big.Int).Mul(uPerm[i], v[i]))
	}
	tmp := new(big.Int)
	for i := 0; i < n; i++ {
		rBar.Add(rBar, rc[i])
		rHat.Add(rHat, tmp.Mul(rh[i], v[i]))
		rTilde.Add(rTilde, tmp.Mul(rc[i], u[i]))
		rPrime.Add(rPrime, tmp.Mul(s.Randomness[i], u[i]))
	}
	grp.ModQ(rBar)
	grp.ModQ(rHat)
	grp.ModQ(rTilde)
	grp.ModQ(rPrime)

	// prover commitments
	w1, w2, w3, w4 := grp.RandomExponent(), grp.RandomExponent(), grp.RandomExponent(), grp.RandomExponent()
	wHat := make([]*big.Int, n)
	wPrime := make([]*big.Int, n)
	for i := range wHat {
		wHat[i] = grp.RandomExponent()
		wPrime[i] = grp.RandomExponent()
	}

	arg.T1 = grp.GExp(w1)
	arg.T2 = grp.GExp(w2)
	arg.T3 = grp.GExp(w3)
	arg.T4Gamma = grp.ExpInv(grp.G, w4)
	arg.T4Phis = make(crypto.BigIntSlice, width)
	for k := range arg.T4Phis {
		arg.T4Phis[k] = grp.ExpInv(pk.Y[k], w4)
	}
	arg.THat = make(crypto.BigIntSlice, n)
	prev = h
	for i := 0; i < n; i++ {
		arg.T3 = grp.Mul(arg.T3, grp.Exp(hs[i], wPrime[i]))
		arg.T4Gamma = grp.Mul(arg.T4Gamma, grp.Exp(out[i].Gamma, wPrime[i]))
		for k := range arg.T4Phis {
			arg.T4Phis[k] = grp.Mul(arg.T4Phis[k], grp.Exp(out[i].Phis[k], wPrime[i]))
		}
		arg.THat[i] = grp.Mul(grp.GExp(wHat[i]), grp.Exp(prev, wPrime[i]))
		prev = arg.CHat[i]
	}

	c := arg.challenge(grp, digest)

	arg.S1 = response(grp, w1, c, rBar)
	arg.S2 = response(grp, w2, c, rHat)
	arg.S3 = response(grp, w3, c, rTilde)
	arg.S4 = response(grp, w4, c, rPrime)
	arg.SHat = make(crypto.BigIntSlice, n)
	arg.SPrime = make(crypto.BigIntSlice, n)
	for i := 0; i < n; i++ {
		arg.SHat[i] = response(grp, wHat[i], c, rh[i])
		arg.SPrime[i] = response(grp, wPrime[i], c, uPerm[i])
	}
	return arg, nil
}

// Validate checks the argument has the right shape for n ciphertexts of
// the given width and every value lies in the group or in Z_q.
func (a *ShuffleArgument) Validate(grp *elgamal.Group, n, width int) error {
	if len(a.C) != n || len(a.CHat) != n || len(a.THat) != n || len(a.SHat) != n || len(a.SPrime) != n {
		return fmt.Errorf("%w: vectors do not match %d ciphertexts", ErrArgumentInvalid, n)
	}
	if len(a.T4Phis) != width {
		return fmt.Errorf("%w: expected %d phi commitments, got %d", ErrArgumentInvalid, width, len(a.T4Phis))
	}
	members := []*big.Int{a.T1, a.T2, a.T3, a.T4Gamma}
	members = append(members, a.T4Phis...)
	members = append(members, a.C...)
	members = append(members, a.CHat...)
	members = append(members, a.THat...)
	for _, x := range members {
		if !grp.IsMember(x) {
			return fmt.Errorf("%w: commitment is not a group member", ErrArgumentInvalid)
		}
	}
	exponents := []*big.Int{a.S1, a.S2, a.S3, a.S4}
	exponents = append(exponents, a.SHat...)
	exponents = append(exponents, a.SPrime...)
	for _, x := range exponents {
		if !grp.IsExponent(x) {
			return fmt.Errorf("%w: response not in Z_q", ErrArgumentInvalid)
		}
	}
	return nil
}

// VerifyArgument checks that out is a permutation and re-encryption of in
// under pk.
func VerifyArgument(pk *elgamal.PublicKey, in, out elgamal.CiphertextVector, a *ShuffleArgument, aux ...string) error {
	grp := pk.Group
	if err := checkInput(pk, in); err != nil {
		return fmt.Errorf("%w: %s", ErrArgumentInvalid, err)
	}
	n, width := len(in), pk.Width()
	if len(out) != n {
		return fmt.Errorf("%w: shuffled %d ciphertexts into %d", ErrArgumentInvalid, n, len(out))
	}
	if err := out.Validate(grp); err != nil {
		return fmt.Errorf("%w: %s", ErrArgumentInvalid, err)
	}
	if w, _ := out.Width(); w != width {
		return fmt.Errorf("%w: output width %d does not match key width %d", ErrArgumentInvalid, w, width)
	}
	if err := a.Validate(grp, n, width); err != nil {
		return err
	}

	h, hs := commitmentKey(grp, n)
	digest := statementDigest(pk, in, out, a.C, aux)
	u := challenges(grp, digest, n)
	c := a.challenge(grp, digest)

	// c_bar = prod(c_i) / prod(h_i)
	cBar := grp.Mul(grp.Mul(a.C...), grp.Inv(grp.Mul(hs...)))
	// u = prod(u_i) mod q
	uProd := big.NewInt(1)
	for _, ui := range u {
		grp.ModQ(uProd.Mul(uProd, ui))
	}
	cHat := grp.Mul(a.CHat[n-1], grp.ExpInv(h, uProd))
	cTilde := big.NewInt(1)
	gammaBar := big.NewInt(1)
	phiBar := make([]*big.Int, width)
	for k := range phiBar {
		phiBar[k] = big.NewInt(1)
	}
	for i := 0; i < n; i++ {
		cTilde = grp.Mul(cTilde, grp.Exp(a.C[i], u[i]))
		gammaBar = grp.Mul(gammaBar, grp.Exp(in[i].Gamma, u[i]))
		for k := range phiBar {
			phiBar[k] = grp.Mul(phiBar[k], grp.Exp(in[i].Phis[k], u[i]))
		}
	}

	t1 := grp.Mul(grp.ExpInv(cBar, c), grp.GExp(a.S1))
	t2 := grp.Mul(grp.ExpInv(cHat, c), grp.GExp(a.S2))
	t3 := grp.Mul(grp.ExpInv(cTilde, c), grp.GExp(a.S3))
	t4Gamma := grp.Mul(grp.ExpInv(gammaBar, c), grp.ExpInv(grp.G, a.S4))
	t4Phis := make([]*big.Int, width)
	for k := range t4Phis {
		t4Phis[k] = grp.Mul(grp.ExpInv(phiBar[k], c), grp.ExpInv(pk.Y[k], a.S4))
	}
	prev := h
	for i := 0; i < n; i++ {
		t3 = grp.Mul(t3, grp.Exp(hs[i], a.SPrime[i]))
		t4Gamma = grp.Mul(t4Gamma, grp.Exp(out[i].Gamma, a.SPrime[i]))
		for k := range t4Phis {
			t4Phis[k] = grp.Mul(t4Phis[k], grp.Exp(out[i].Phis[k], a.SPrime[i]))
		}
		tHat := grp.Mul(grp.ExpInv(a.CHat[i], c), grp.GExp(a.SHat[i]), grp.Exp(prev, a.SPrime[i]))
		if tHat.Cmp(a.THat[i]) != 0 {
			return fmt.Errorf("%w: commitment chain check %d failed", ErrArgumentInvalid, i)
		}
		prev = a.CHat[i]
	}
	switch {
	case t1.Cmp(a.T1) != 0:
		return fmt.Errorf("%w: permutation commitment check failed", ErrArgumentInvalid)
	case t2.Cmp(a.T2) != 0:
		return fmt.Errorf("%w: commitment chain product check failed", ErrArgumentInvalid)
	case t3.Cmp(a.T3) != 0:
		return fmt.Errorf("%w: challenge commitment check failed", ErrArgumentInvalid)
	case t4Gamma.Cmp(a.T4Gamma) != 0:
		return fmt.Errorf("%w: re-encryption check failed on gamma", ErrArgumentInvalid)
	}
	for k := range t4Phis {
		if t4Phis[k].Cmp(a.T4Phis[k]) != 0 {
			return fmt.Errorf("%w: re-encryption check failed on phi[%d]", ErrArgumentInvalid, k)
		}
	}
	return nil
}

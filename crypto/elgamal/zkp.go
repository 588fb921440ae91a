package elgamal

import (
	"errors"
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
)

// DecryptionProof is a Chaum-Pedersen proof, in challenge/response form,
// that a partial decryption used the exponents behind a public key.
//
// For each slot i it proves knowledge of x_i such that
//
//	y_i = g^x_i  and  phi_i / phi_i' = gamma^x_i
//
// The general form is:
//
//	Prove(x)
//	  b_i = random()
//	  c_i = g^b_i, d_i = gamma^b_i
//	  E = H(statement, c, d, aux) % q
//	  Z_i = (b_i + E * x_i) % q
//
//	Verify(E, Z)
//	  c_i = g^Z_i * y_i^-E
//	  d_i = gamma^Z_i * (phi_i / phi_i')^-E
//	  check E == H(statement, c, d, aux) % q
type DecryptionProof struct {
	E *big.Int
	Z crypto.BigIntSlice
}

// ErrProofInvalid is wrapped by every decryption proof failure
var ErrProofInvalid = errors.New("ZKP invalid")

func decryptionChallenge(pk *PublicKey, in, out *Ciphertext, c, d []*big.Int, aux []string) *big.Int {
	t := pk.Transcript("ccmix:decryption-proof").
		Ints(pk.Y).
		Int(in.Gamma).
		Ints(in.Phis).
		Ints(out.Phis).
		Ints(c).
		Ints(d)
	t.Uint(uint64(len(aux)))
	for _, a := range aux {
		t.Label(a)
	}
	return t.Challenge(pk.Q)
}

// ratios computes phi_i / phi_i' for each slot
func ratios(grp *Group, in, out *Ciphertext) []*big.Int {
	r := make([]*big.Int, in.Width())
	for i := range r {
		r[i] = grp.Mul(in.Phis[i], grp.Inv(out.Phis[i]))
	}
	return r
}

// ProveDecryption proves that out is the partial decryption of in under sk.
// The aux strings are bound into the challenge.
func ProveDecryption(sk *PrivateKey, in, out *Ciphertext, aux ...string) (*DecryptionProof, error) {
	l := len(sk.X)
	if in.Width() != l || out.Width() != l {
		return nil, fmt.Errorf("decryption proof: width mismatch (key %d, in %d, out %d)", l, in.Width(), out.Width())
	}
	b := make([]*big.Int, l)
	c := make([]*big.Int, l)
	d := make([]*big.Int, l)
	for i := range b {
		b[i] = sk.RandomExponent()
		c[i] = sk.GExp(b[i])
		d[i] = sk.Exp(in.Gamma, b[i])
	}
	e := decryptionChallenge(sk.PublicKey, in, out, c, d, aux)
	z := make(crypto.BigIntSlice, l)
	for i := range z {
		// z = b + e * x mod q
		z[i] = new(big.Int).Mul(e, sk.X[i])
		z[i].Add(z[i], b[i])
		sk.ModQ(z[i])
	}
	return &DecryptionProof{E: e, Z: z}, nil
}

// VerifyDecryptionProof checks a proof created by ProveDecryption
func VerifyDecryptionProof(pk *PublicKey, in, out *Ciphertext, proof *DecryptionProof, aux ...string) error {
	l := pk.Width()
	if proof == nil || proof.E == nil {
		return fmt.Errorf("%w: missing decryption proof", ErrProofInvalid)
	}
	if in.Width() != l || out.Width() != l || len(proof.Z) != l {
		return fmt.Errorf("%w: decryption proof width mismatch", ErrProofInvalid)
	}
	if in.Gamma.Cmp(out.Gamma) != 0 {
		return fmt.Errorf("%w: partial decryption changed gamma", ErrProofInvalid)
	}
	if !pk.IsExponent(proof.E) {
		return fmt.Errorf("%w: challenge not in Z_q", ErrProofInvalid)
	}
	if err := in.Validate(pk.Group); err != nil {
		return fmt.Errorf("%w: %s", ErrProofInvalid, err)
	}
	for i, phi := range out.Phis {
		if !pk.IsMember(phi) {
			return fmt.Errorf("%w: decrypted phi[%d] is not a group member", ErrProofInvalid, i)
		}
		if !pk.IsExponent(proof.Z[i]) {
			return fmt.Errorf("%w: response z[%d] not in Z_q", ErrProofInvalid, i)
		}
	}
	rs := ratios(pk.Group, in, out)
	c := make([]*big.Int, l)
	d := make([]*big.Int, l)
	for i := range c {
		c[i] = pk.Mul(pk.GExp(proof.Z[i]), pk.ExpInv(pk.Y[i], proof.E))
		d[i] = pk.Mul(pk.Exp(in.Gamma, proof.Z[i]), pk.ExpInv(rs[i], proof.E))
	}
	if decryptionChallenge(pk, in, out, c, d, aux).Cmp(proof.E) != 0 {
		return fmt.Errorf("%w: calculated challenge does not match", ErrProofInvalid)
	}
	return nil
}

// VerifiableDecryptions is a vector of partial decryptions with one proof
// per element.
type VerifiableDecryptions struct {
	Ciphertexts CiphertextVector
	Proofs      []*DecryptionProof
}

// GenVerifiableDecryptions partially decrypts every ciphertext with sk and
// proves each one.
func GenVerifiableDecryptions(sk *PrivateKey, in CiphertextVector, aux ...string) (*VerifiableDecryptions, error) {
	vd := &VerifiableDecryptions{
		Ciphertexts: make(CiphertextVector, len(in)),
		Proofs:      make([]*DecryptionProof, len(in)),
	}
	for i, ct := range in {
		out, err := sk.PartialDecrypt(ct)
		if err != nil {
			return nil, fmt.Errorf("ciphertext[%d]: %w", i, err)
		}
		proof, err := ProveDecryption(sk, ct, out, aux...)
		if err != nil {
			return nil, fmt.Errorf("ciphertext[%d]: %w", i, err)
		}
		vd.Ciphertexts[i] = out
		vd.Proofs[i] = proof
	}
	return vd, nil
}

// VerifyDecryptions checks that vd is a proven partial decryption of in
// under pk, element by element. The first failure is returned.
func VerifyDecryptions(pk *PublicKey, in CiphertextVector, vd *VerifiableDecryptions, aux ...string) error {
	if vd == nil {
		return fmt.Errorf("%w: missing decryptions", ErrProofInvalid)
	}
	if len(vd.Ciphertexts) != len(in) || len(vd.Proofs) != len(in) {
		return fmt.Errorf("%w: expected %d decryptions, got %d ciphertexts and %d proofs",
			ErrProofInvalid, len(in), len(vd.Ciphertexts), len(vd.Proofs))
	}
	for i := range in {
		if err := VerifyDecryptionProof(pk, in[i], vd.Ciphertexts[i], vd.Proofs[i], aux...); err != nil {
			return fmt.Errorf("decryption[%d]: %w", i, err)
		}
	}
	return nil
}

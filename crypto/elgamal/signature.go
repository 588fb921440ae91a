package elgamal

import (
	"fmt"

	big "github.com/ncw/gmp"
)

// Signature is a Schnorr signature over an arbitrary message
// based on https://tools.ietf.org/html/rfc8235
//
// Signing keys are width one key pairs, only X[0] and Y[0] are used.
type Signature struct {
	C, R *big.Int
}

func (grp *Group) createSigningChallenge(V, A *big.Int, msg []byte) *big.Int {
	return grp.Transcript("ccmix:signature").Int(V, A).Bytes(msg).Challenge(grp.Q)
}

// CreateSignature signs the given message with this key using Schnorr
func (sk *PrivateKey) CreateSignature(msg []byte) (*Signature, error) {
	if len(sk.X) != 1 {
		return nil, fmt.Errorf("signing key must have width 1, got %d", len(sk.X))
	}
	sig := new(Signature)
	v := sk.RandomExponent()
	V := sk.GExp(v)
	sig.C = sk.createSigningChallenge(V, sk.Y[0], msg)
	// the response is now (v - x * C) % Q
	sig.R = new(big.Int).Mul(sk.X[0], sig.C)
	sig.R.Sub(v, sig.R)
	sig.R.Mod(sig.R, sk.Q)
	return sig, nil
}

// VerifySignature verifies a signature on a message
func (pk *PublicKey) VerifySignature(sig *Signature, message []byte) error {
	if err := pk.Validate(); err != nil {
		return fmt.Errorf("Signature invalid: public key not valid: %w", err)
	}
	if pk.Width() != 1 {
		return fmt.Errorf("Signature invalid: verification key must have width 1")
	}
	if sig == nil || !pk.IsExponent(sig.C) || !pk.IsExponent(sig.R) {
		return fmt.Errorf("Signature invalid: values out of range")
	}
	// V = g^r * y^c % p
	V := pk.Mul(pk.GExp(sig.R), pk.Exp(pk.Y[0], sig.C))
	expected := pk.createSigningChallenge(V, pk.Y[0], message)
	if expected.Cmp(sig.C) != 0 {
		return fmt.Errorf("Signature invalid: calculated challenge does not match expected")
	}
	return nil
}

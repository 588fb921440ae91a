package elgamal

import (
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
)

// Ciphertext is a multi-recipient ElGamal ciphertext
// (gamma, phi_1, ..., phi_l) = (g^r, m_1 * y_1^r, ..., m_l * y_l^r)
type Ciphertext struct {
	Gamma *big.Int
	Phis  crypto.BigIntSlice
}

// Width is the number of message slots, l
func (ct *Ciphertext) Width() int {
	return len(ct.Phis)
}

func (ct *Ciphertext) Equal(other *Ciphertext) bool {
	return ct.Gamma.Cmp(other.Gamma) == 0 && ct.Phis.Equal(other.Phis)
}

func (ct *Ciphertext) String() string {
	return fmt.Sprintf("Ciphertext[gamma=%s, width=%d]", ct.Gamma, ct.Width())
}

// Copy returns a deep copy of the ciphertext
func (ct *Ciphertext) Copy() *Ciphertext {
	return &Ciphertext{Gamma: new(big.Int).Set(ct.Gamma), Phis: ct.Phis.Copy()}
}

// Validate checks every element is a member of the group
func (ct *Ciphertext) Validate(grp *Group) error {
	if !grp.IsMember(ct.Gamma) {
		return fmt.Errorf("Ciphertext invalid: gamma is not a group member")
	}
	if len(ct.Phis) == 0 {
		return fmt.Errorf("Ciphertext invalid: no phis")
	}
	for i, phi := range ct.Phis {
		if !grp.IsMember(phi) {
			return fmt.Errorf("Ciphertext invalid: phi[%d] is not a group member", i)
		}
	}
	return nil
}

// Mul does a component-wise homomorphic multiplication of two ciphertexts
// of the same width, returning a new ciphertext.
func (ct *Ciphertext) Mul(grp *Group, other *Ciphertext) *Ciphertext {
	out := &Ciphertext{
		Gamma: grp.Mul(ct.Gamma, other.Gamma),
		Phis:  make(crypto.BigIntSlice, ct.Width()),
	}
	for i := range out.Phis {
		out.Phis[i] = grp.Mul(ct.Phis[i], other.Phis[i])
	}
	return out
}

// Compress folds the trailing phis into the last slot so the ciphertext
// is an encryption under the matching compressed key.
func (ct *Ciphertext) Compress(grp *Group, width int) (*Ciphertext, error) {
	if width < 1 || width > ct.Width() {
		return nil, fmt.Errorf("cannot compress ciphertext of width %d to %d", ct.Width(), width)
	}
	phis := make(crypto.BigIntSlice, width)
	copy(phis, ct.Phis[:width-1])
	phis[width-1] = grp.Mul(ct.Phis[width-1:]...)
	return &Ciphertext{Gamma: new(big.Int).Set(ct.Gamma), Phis: phis}, nil
}

// Encrypt a message with the public key and randomness r. If r is nil a
// fresh random exponent is used. The message width must equal the key width.
func (pk *PublicKey) Encrypt(msg []*big.Int, r *big.Int) (*Ciphertext, error) {
	if len(msg) != pk.Width() {
		return nil, fmt.Errorf("message width %d does not match key width %d", len(msg), pk.Width())
	}
	if r == nil {
		r = pk.RandomExponent()
	} else {
		r = pk.ModQ(new(big.Int).Set(r))
	}
	ct := &Ciphertext{
		Gamma: pk.GExp(r),
		Phis:  make(crypto.BigIntSlice, len(msg)),
	}
	for i, m := range msg {
		// phi = m * y^r mod p
		ct.Phis[i] = pk.Mul(m, pk.Exp(pk.Y[i], r))
	}
	return ct, nil
}

// Ones returns the all-ones message of the given width, the identity for
// re-encryption.
func Ones(width int) []*big.Int {
	out := make([]*big.Int, width)
	for i := range out {
		out[i] = big.NewInt(1)
	}
	return out
}

// Reencrypt multiplies the ciphertext by an encryption of ones under pk
// with randomness r.
func (pk *PublicKey) Reencrypt(ct *Ciphertext, r *big.Int) (*Ciphertext, error) {
	if ct.Width() != pk.Width() {
		return nil, fmt.Errorf("ciphertext width %d does not match key width %d", ct.Width(), pk.Width())
	}
	ones, err := pk.Encrypt(Ones(ct.Width()), r)
	if err != nil {
		return nil, err
	}
	return ct.Mul(pk.Group, ones), nil
}

// PartialDecrypt strips this key's share from the ciphertext:
// phi_i' = phi_i * gamma^-x_i. Gamma is unchanged.
func (sk *PrivateKey) PartialDecrypt(ct *Ciphertext) (*Ciphertext, error) {
	if ct.Width() != len(sk.X) {
		return nil, fmt.Errorf("ciphertext width %d does not match key width %d", ct.Width(), len(sk.X))
	}
	out := &Ciphertext{
		Gamma: new(big.Int).Set(ct.Gamma),
		Phis:  make(crypto.BigIntSlice, ct.Width()),
	}
	for i, x := range sk.X {
		out.Phis[i] = sk.Mul(ct.Phis[i], sk.ExpInv(ct.Gamma, x))
	}
	return out, nil
}

// Decrypt fully decrypts a ciphertext with this single key.
func (sk *PrivateKey) Decrypt(ct *Ciphertext) ([]*big.Int, error) {
	out, err := sk.PartialDecrypt(ct)
	if err != nil {
		return nil, err
	}
	return out.Phis, nil
}

// CiphertextVector is an ordered list of ciphertexts of equal width
type CiphertextVector []*Ciphertext

// Width returns the common width of the ciphertexts, or an error if the
// vector is empty or mixes widths.
func (v CiphertextVector) Width() (int, error) {
	if len(v) == 0 {
		return 0, fmt.Errorf("empty ciphertext vector")
	}
	for i, ct := range v {
		if ct == nil {
			return 0, fmt.Errorf("ciphertext[%d] is missing", i)
		}
	}
	w := v[0].Width()
	for i, ct := range v {
		if ct.Width() != w {
			return 0, fmt.Errorf("ciphertext[%d] has width %d, expected %d", i, ct.Width(), w)
		}
	}
	return w, nil
}

// Validate checks every ciphertext in the vector against the group and
// the common width.
func (v CiphertextVector) Validate(grp *Group) error {
	if _, err := v.Width(); err != nil {
		return err
	}
	for i, ct := range v {
		if err := ct.Validate(grp); err != nil {
			return fmt.Errorf("ciphertext[%d]: %w", i, err)
		}
	}
	return nil
}

func (v CiphertextVector) Equal(other CiphertextVector) bool {
	if len(v) != len(other) {
		return false
	}
	for i := range v {
		if !v[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Copy returns a deep copy of the vector
func (v CiphertextVector) Copy() CiphertextVector {
	out := make(CiphertextVector, len(v))
	for i, ct := range v {
		out[i] = ct.Copy()
	}
	return out
}

// AppendTo writes the vector into a hash transcript.
func (v CiphertextVector) AppendTo(t *crypto.Transcript) *crypto.Transcript {
	t.Uint(uint64(len(v)))
	for _, ct := range v {
		t.Int(ct.Gamma).Ints(ct.Phis)
	}
	return t
}

package elgamal

import (
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
)

// PublicKey is a multi-recipient ElGamal public key: one group element
// per ciphertext slot.
type PublicKey struct {
	*Group
	Y crypto.BigIntSlice
}

// PrivateKey holds the exponents matching PublicKey.Y
type PrivateKey struct {
	*PublicKey
	X crypto.BigIntSlice
}

// KeyPair wraps a private key so the secret half is only reached on purpose.
type KeyPair struct {
	sk *PrivateKey
}

// Secret gets the private part of this keypair
func (kp *KeyPair) Secret() *PrivateKey {
	return kp.sk
}

// Public gets the public half of this keypair
func (kp *KeyPair) Public() *PublicKey {
	return kp.sk.PublicKey
}

// NewPublicKey creates a validated public key from its elements
func NewPublicKey(grp *Group, elements []*big.Int) (*PublicKey, error) {
	pk := &PublicKey{Group: grp, Y: crypto.BigIntSlice(elements).Copy()}
	if err := pk.Validate(); err != nil {
		return nil, err
	}
	return pk, nil
}

// NewKeyPair builds the key pair for the given exponents
func NewKeyPair(grp *Group, exponents []*big.Int) (*KeyPair, error) {
	sk := &PrivateKey{X: crypto.BigIntSlice(exponents).Copy()}
	sk.PublicKey = &PublicKey{Group: grp, Y: make(crypto.BigIntSlice, len(exponents))}
	for i, x := range sk.X {
		if !grp.IsExponent(x) {
			return nil, fmt.Errorf("PrivateKey invalid: x[%d] not in Z_q", i)
		}
		sk.Y[i] = grp.GExp(x)
	}
	if err := sk.PublicKey.Validate(); err != nil {
		return nil, err
	}
	return &KeyPair{sk: sk}, nil
}

// GenerateKeyPair creates a new random key pair of the given width
func GenerateKeyPair(grp *Group, width int) *KeyPair {
	xs := make([]*big.Int, width)
	for i := range xs {
		xs[i] = grp.RandomExponent()
	}
	kp, err := NewKeyPair(grp, xs)
	if err != nil {
		// only possible for width 0
		panic(err)
	}
	return kp
}

// DeriveKeyPair deterministically derives a key pair of the given width
// from a secret seed and a purpose label.
func DeriveKeyPair(grp *Group, seed []byte, label string, width int) *KeyPair {
	xs := make([]*big.Int, width)
	for i := range xs {
		xs[i] = grp.Transcript("ccmix:derive-key").
			Bytes(seed).
			Label(label).
			Uint(uint64(i)).
			Challenge(grp.Q)
	}
	kp, err := NewKeyPair(grp, xs)
	if err != nil {
		panic(err)
	}
	return kp
}

// Width is the number of elements in the key
func (pk *PublicKey) Width() int {
	return len(pk.Y)
}

// Validate checks every element of the key is in the group
func (pk *PublicKey) Validate() error {
	if pk.Group == nil {
		return fmt.Errorf("PublicKey invalid: no group parameters")
	}
	if len(pk.Y) == 0 {
		return fmt.Errorf("PublicKey invalid: no elements")
	}
	for i, y := range pk.Y {
		if !pk.IsMember(y) {
			return fmt.Errorf("PublicKey invalid: y[%d] is not a group member", i)
		}
	}
	return nil
}

// Equal compares the group and elements
func (pk *PublicKey) Equal(other *PublicKey) bool {
	return pk.Group.Equal(other.Group) && pk.Y.Equal(other.Y)
}

func (pk *PublicKey) String() string {
	return fmt.Sprintf("pk:width=%d", pk.Width())
}

// Compress shrinks the key to the given width, folding the trailing
// elements into the last one by multiplication. The compressed key
// matches PrivateKey.Compress, so keys of one width serve ciphertexts
// of any smaller width.
func (pk *PublicKey) Compress(width int) (*PublicKey, error) {
	if width < 1 || width > pk.Width() {
		return nil, fmt.Errorf("cannot compress key of width %d to %d", pk.Width(), width)
	}
	y := make(crypto.BigIntSlice, width)
	copy(y, pk.Y[:width-1])
	y[width-1] = pk.Mul(pk.Y[width-1:]...)
	return &PublicKey{Group: pk.Group, Y: y}, nil
}

// Compress is the private counterpart of PublicKey.Compress: trailing
// exponents are summed mod q.
func (sk *PrivateKey) Compress(width int) (*PrivateKey, error) {
	pk, err := sk.PublicKey.Compress(width)
	if err != nil {
		return nil, err
	}
	x := make(crypto.BigIntSlice, width)
	copy(x, sk.X[:width-1])
	last := new(big.Int)
	for _, xi := range sk.X[width-1:] {
		last.Add(last, xi)
	}
	x[width-1] = sk.ModQ(last)
	return &PrivateKey{PublicKey: pk, X: x}, nil
}

func (sk *PrivateKey) String() string {
	return fmt.Sprintf("sk:width=%d", len(sk.X))
}

// CombinePublicKeys multiplies the keys element-wise. The result can only
// be decrypted with every one of the matching private keys.
func CombinePublicKeys(keys ...*PublicKey) (*PublicKey, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("no public keys to combine")
	}
	first := keys[0]
	y := make(crypto.BigIntSlice, first.Width())
	for i := range y {
		y[i] = big.NewInt(1)
	}
	for n, k := range keys {
		if !k.Group.SameOrder(first.Group) {
			return nil, fmt.Errorf("public key %d: group order mismatch", n)
		}
		if k.Width() != first.Width() {
			return nil, fmt.Errorf("public key %d: width %d != %d", n, k.Width(), first.Width())
		}
		for i := range y {
			y[i].Mul(y[i], k.Y[i])
			y[i].Mod(y[i], first.P)
		}
	}
	return &PublicKey{Group: first.Group, Y: y}, nil
}

// Package mixnet implements a re-encryption shuffle of multi-recipient
// ElGamal ciphertexts together with a Terelius-Wikstrom shuffle argument,
// following the pseudo-code of Haenni et al. "Pseudo-Code Algorithms for
// Verifiable Re-Encryption Mix-Nets".
package mixnet

import (
	"errors"
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/crypto/random"
)

// ErrTooFewCiphertexts is returned when asked to shuffle fewer than two
// ciphertexts, a batch of one reveals its own permutation.
var ErrTooFewCiphertexts = errors.New("at least 2 ciphertexts are needed to shuffle")

// Shuffle is the output of a re-encryption shuffle together with its
// secret witness. Ciphertexts[i] is the input at Permutation[i]
// re-encrypted with Randomness[Permutation[i]].
type Shuffle struct {
	Ciphertexts elgamal.CiphertextVector
	Permutation []int
	Randomness  []*big.Int
}

func checkInput(pk *elgamal.PublicKey, in elgamal.CiphertextVector) error {
	if len(in) < 2 {
		return fmt.Errorf("%w: got %d", ErrTooFewCiphertexts, len(in))
	}
	w, err := in.Width()
	if err != nil {
		return err
	}
	if w != pk.Width() {
		return fmt.Errorf("ciphertext width %d does not match key width %d", w, pk.Width())
	}
	return nil
}

// GenShuffle permutes and re-encrypts the input under pk with a fresh
// permutation and fresh randomness.
func GenShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector) (*Shuffle, error) {
	if err := checkInput(pk, in); err != nil {
		return nil, err
	}
	n := len(in)
	s := &Shuffle{
		Ciphertexts: make(elgamal.CiphertextVector, n),
		Permutation: random.Permutation(n),
		Randomness:  random.Ints(n, pk.Q),
	}
	for i, j := range s.Permutation {
		ct, err := pk.Reencrypt(in[j], s.Randomness[j])
		if err != nil {
			return nil, err
		}
		s.Ciphertexts[i] = ct
	}
	return s, nil
}

// VerifiableShuffle is a shuffled vector with the argument proving it is a
// permutation and re-encryption of its input.
type VerifiableShuffle struct {
	Ciphertexts elgamal.CiphertextVector
	Argument    *ShuffleArgument
}

// GenVerifiableShuffle shuffles the input and proves the shuffle. The aux
// strings are bound into every challenge.
func GenVerifiableShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, aux ...string) (*VerifiableShuffle, error) {
	s, err := GenShuffle(pk, in)
	if err != nil {
		return nil, err
	}
	arg, err := ProveShuffle(pk, in, s, aux...)
	if err != nil {
		return nil, err
	}
	return &VerifiableShuffle{Ciphertexts: s.Ciphertexts, Argument: arg}, nil
}

// VerifyShuffle checks that vs is a proven shuffle of in under pk.
func VerifyShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, vs *VerifiableShuffle, aux ...string) error {
	if vs == nil || vs.Argument == nil {
		return fmt.Errorf("%w: missing shuffle argument", ErrArgumentInvalid)
	}
	return VerifyArgument(pk, in, vs.Ciphertexts, vs.Argument, aux...)
}

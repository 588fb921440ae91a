package tally

import (
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/crypto/mixnet"
)

// Primitives are the zero-knowledge operations the chain relies on.
type Primitives interface {
	GenVerifiableShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, aux ...string) (*mixnet.VerifiableShuffle, error)
	VerifyShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, vs *mixnet.VerifiableShuffle, aux ...string) error
	GenVerifiableDecryptions(sk *elgamal.PrivateKey, in elgamal.CiphertextVector, aux ...string) (*elgamal.VerifiableDecryptions, error)
	VerifyDecryptions(pk *elgamal.PublicKey, in elgamal.CiphertextVector, vd *elgamal.VerifiableDecryptions, aux ...string) error
}

// ZKPrimitives is the real implementation
type ZKPrimitives struct{}

var _ Primitives = ZKPrimitives{}

func (ZKPrimitives) GenVerifiableShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, aux ...string) (*mixnet.VerifiableShuffle, error) {
	return mixnet.GenVerifiableShuffle(pk, in, aux...)
}

func (ZKPrimitives) VerifyShuffle(pk *elgamal.PublicKey, in elgamal.CiphertextVector, vs *mixnet.VerifiableShuffle, aux ...string) error {
	return mixnet.VerifyShuffle(pk, in, vs, aux...)
}

func (ZKPrimitives) GenVerifiableDecryptions(sk *elgamal.PrivateKey, in elgamal.CiphertextVector, aux ...string) (*elgamal.VerifiableDecryptions, error) {
	return elgamal.GenVerifiableDecryptions(sk, in, aux...)
}

func (ZKPrimitives) VerifyDecryptions(pk *elgamal.PublicKey, in elgamal.CiphertextVector, vd *elgamal.VerifiableDecryptions, aux ...string) error {
	return elgamal.VerifyDecryptions(pk, in, vd, aux...)
}

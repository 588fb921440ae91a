package tally

import (
	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// Audit verifies the shuffle payloads of all four nodes against the
// initial ciphertexts and returns the plaintexts: once every node has
// removed its share, node 4's output holds them in the phis.
func Audit(cc *ChainContext, initial elgamal.CiphertextVector, payloads []*ShufflePayload, opts ...Option) ([][]*big.Int, error) {
	o := applyOptions(opts)
	ordered, err := orderPayloads(cc, payloads, NodeCount)
	if err != nil {
		return nil, err
	}
	final, err := verifyPayloads(o.primitives, o.logger, cc, ordered, initial)
	if err != nil {
		return nil, err
	}
	return CombineDecryptions(final), nil
}

// CombineDecryptions reads the plaintexts out of a fully decrypted vector
func CombineDecryptions(final elgamal.CiphertextVector) [][]*big.Int {
	out := make([][]*big.Int, len(final))
	for i, ct := range final {
		out[i] = make([]*big.Int, len(ct.Phis))
		for j, phi := range ct.Phis {
			out[i][j] = new(big.Int).Set(phi)
		}
	}
	return out
}

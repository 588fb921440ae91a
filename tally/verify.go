package tally

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// Verify checks the shuffle payloads of nodes 1 to j-1 in order, starting
// from the initial ciphertexts, and returns the vector node j must mix:
// the decrypted output of node j-1.
func (c *MixDecryptChain) Verify(cc *ChainContext, preceding []*ShufflePayload, initial elgamal.CiphertextVector) (elgamal.CiphertextVector, error) {
	if err := c.checkContext(cc); err != nil {
		return nil, err
	}
	ordered, err := orderPayloads(cc, preceding, cc.NodeID()-1)
	if err != nil {
		return nil, err
	}
	return verifyPayloads(c.opts.primitives, c.opts.logger, cc, ordered, initial)
}

// orderPayloads checks the payloads are exactly those of nodes 1..upTo for
// this ballot box and returns them in node order.
func orderPayloads(cc *ChainContext, payloads []*ShufflePayload, upTo int) ([]*ShufflePayload, error) {
	if len(payloads) != upTo {
		return nil, fmt.Errorf("%w: expected %d shuffle payloads, got %d", ErrWrongPayloadCount, upTo, len(payloads))
	}
	ordered := make([]*ShufflePayload, upTo)
	for _, p := range payloads {
		if p == nil {
			return nil, fmt.Errorf("%w: missing shuffle payload", ErrWrongPayloadCount)
		}
		if p.NodeID < 1 || p.NodeID > upTo {
			return nil, fmt.Errorf("%w: unexpected shuffle payload from node %d", ErrWrongPayloadCount, p.NodeID)
		}
		if ordered[p.NodeID-1] != nil {
			return nil, fmt.Errorf("%w: duplicate shuffle payload from node %d", ErrWrongPayloadCount, p.NodeID)
		}
		ordered[p.NodeID-1] = p
	}
	for _, p := range ordered {
		if p.ElectionEventID != cc.ElectionEventID() || p.BallotBoxID != cc.BallotBoxID() {
			return nil, fmt.Errorf("%w: payload of node %d is for %s/%s", ErrPayloadMismatch, p.NodeID, p.ElectionEventID, p.BallotBoxID)
		}
		if p.Group == nil || !p.Group.Equal(cc.Group()) {
			return nil, fmt.Errorf("%w: payload of node %d uses a different encryption group", ErrPayloadMismatch, p.NodeID)
		}
	}
	return ordered, nil
}

func verifyPayloads(prim Primitives, logger zerolog.Logger, cc *ChainContext, ordered []*ShufflePayload, initial elgamal.CiphertextVector) (elgamal.CiphertextVector, error) {
	if err := cc.checkVector(initial); err != nil {
		return nil, err
	}
	in := initial
	for i, p := range ordered {
		k := i + 1
		if p.Shuffle == nil || p.Decryptions == nil {
			return nil, fmt.Errorf("%w: payload of node %d is incomplete", ErrMalformedCiphertexts, k)
		}
		for _, v := range []elgamal.CiphertextVector{p.Shuffle.Ciphertexts, p.Decryptions.Ciphertexts} {
			if err := cc.checkVector(v); err != nil {
				return nil, fmt.Errorf("payload of node %d: %w", k, err)
			}
		}
		aux := cc.Aux(k)
		start := time.Now()
		if err := prim.VerifyShuffle(cc.RemainingKey(k), in, p.Shuffle, aux...); err != nil {
			return nil, fmt.Errorf("%w: shuffle of node %d: %s", ErrInvalidProof, k, err)
		}
		shuffleTook := time.Since(start)
		start = time.Now()
		if err := prim.VerifyDecryptions(cc.NodeKey(k), p.Shuffle.Ciphertexts, p.Decryptions, aux...); err != nil {
			return nil, fmt.Errorf("%w: decryptions of node %d: %s", ErrInvalidProof, k, err)
		}
		logger.Debug().
			Str("ballotBoxId", cc.BallotBoxID()).
			Int("node", cc.NodeID()).
			Int("verified", k).
			Int("ciphertexts", len(in)).
			Dur("shuffle", shuffleTook).
			Dur("decryptions", time.Since(start)).
			Msg("Verified shuffle payload")
		in = p.Decryptions.Ciphertexts
	}
	return in, nil
}

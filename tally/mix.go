package tally

import (
	"fmt"
	"time"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// Mix shuffles the input under the key of the nodes not yet done, then
// strips this node's share. Every call uses fresh randomness.
func (c *MixDecryptChain) Mix(cc *ChainContext, input elgamal.CiphertextVector) (*MixResult, error) {
	if err := c.checkContext(cc); err != nil {
		return nil, err
	}
	if err := cc.checkVector(input); err != nil {
		return nil, err
	}
	sk, err := c.compressedKey(cc)
	if err != nil {
		return nil, err
	}
	aux := cc.Aux(c.nodeID)
	start := time.Now()
	vs, err := c.opts.primitives.GenVerifiableShuffle(cc.RemainingKey(c.nodeID), input, aux...)
	if err != nil {
		return nil, fmt.Errorf("shuffling: %w", err)
	}
	shuffleTook := time.Since(start)
	start = time.Now()
	vd, err := c.opts.primitives.GenVerifiableDecryptions(sk, vs.Ciphertexts, aux...)
	if err != nil {
		return nil, fmt.Errorf("decrypting: %w", err)
	}
	c.opts.logger.Debug().
		Str("ballotBoxId", cc.BallotBoxID()).
		Int("node", c.nodeID).
		Int("ciphertexts", len(input)).
		Dur("shuffle", shuffleTook).
		Dur("decryptions", time.Since(start)).
		Msg("Mixed ballot box")
	return &MixResult{Shuffle: vs, Decryptions: vd}, nil
}

// compressedKey is this node's private key at the width of the context,
// checked against the public key the other nodes expect.
func (c *MixDecryptChain) compressedKey(cc *ChainContext) (*elgamal.PrivateKey, error) {
	sk := c.keys.Secret()
	if !sk.Group.SameOrder(cc.Group()) {
		return nil, validationf("node %d key is from a group of different order", c.nodeID)
	}
	if sk.Width() < cc.Delta() {
		return nil, validationf("node %d key width %d is smaller than delta %d", c.nodeID, sk.Width(), cc.Delta())
	}
	compressed, err := sk.Compress(cc.Delta())
	if err != nil {
		return nil, err
	}
	if !compressed.Y.Equal(cc.NodeKey(c.nodeID).Y) {
		return nil, validationf("node %d key does not match its published public key", c.nodeID)
	}
	return compressed, nil
}

package tally

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// NodeCount is the fixed number of control components
const NodeCount = 4

// NodeAlias is the signing identity of a control component
func NodeAlias(nodeID int) string {
	return fmt.Sprintf("ccm%d", nodeID)
}

// ValidateID checks an identifier is a UUID, either hyphenated or as 32
// hex digits.
func ValidateID(name, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return validationf("%s %q is not a valid UUID", name, id)
	}
	return nil
}

func validateNodeID(nodeID int) error {
	if nodeID < 1 || nodeID > NodeCount {
		return validationf("node id %d not in [1, %d]", nodeID, NodeCount)
	}
	return nil
}

// ChainContext holds the immutable parameters of one ballot box's
// mix-decrypt run as seen by one node. Keys are held compressed to delta.
type ChainContext struct {
	group           *elgamal.Group
	electionEventID string
	ballotBoxID     string
	nodeID          int
	delta           int
	nodeKeys        [NodeCount]*elgamal.PublicKey
	electionKey     *elgamal.PublicKey
}

// NewChainContext validates and builds a ChainContext. nodeKeys[i] is the
// key of node i+1, the election key must be their product.
func NewChainContext(
	group *elgamal.Group,
	electionEventID, ballotBoxID string,
	nodeID, delta int,
	nodeKeys [NodeCount]*elgamal.PublicKey,
	electionKey *elgamal.PublicKey,
) (*ChainContext, error) {
	if group == nil {
		return nil, validationf("missing encryption group")
	}
	if err := ValidateID("election event id", electionEventID); err != nil {
		return nil, err
	}
	if err := ValidateID("ballot box id", ballotBoxID); err != nil {
		return nil, err
	}
	if err := validateNodeID(nodeID); err != nil {
		return nil, err
	}
	if delta < 1 {
		return nil, validationf("delta must be at least 1, got %d", delta)
	}
	cc := &ChainContext{
		group:           group,
		electionEventID: electionEventID,
		ballotBoxID:     ballotBoxID,
		nodeID:          nodeID,
		delta:           delta,
	}
	compress := func(name string, pk *elgamal.PublicKey) (*elgamal.PublicKey, error) {
		if pk == nil {
			return nil, validationf("missing %s", name)
		}
		if !pk.Group.SameOrder(group) {
			return nil, validationf("%s is from a group of different order", name)
		}
		if pk.Width() < delta {
			return nil, validationf("%s has width %d, smaller than delta %d", name, pk.Width(), delta)
		}
		return pk.Compress(delta)
	}
	var err error
	for i, pk := range nodeKeys {
		if cc.nodeKeys[i], err = compress(fmt.Sprintf("public key of node %d", i+1), pk); err != nil {
			return nil, err
		}
	}
	if cc.electionKey, err = compress("election public key", electionKey); err != nil {
		return nil, err
	}
	product, err := elgamal.CombinePublicKeys(cc.nodeKeys[:]...)
	if err != nil {
		return nil, validationf("%s", err)
	}
	if !product.Y.Equal(cc.electionKey.Y) {
		return nil, validationf("election public key is not the product of the node keys")
	}
	return cc, nil
}

// Group is the encryption group of the election
func (cc *ChainContext) Group() *elgamal.Group { return cc.group }

// ElectionEventID of the ballot box being mixed
func (cc *ChainContext) ElectionEventID() string { return cc.electionEventID }

// BallotBoxID of the ballot box being mixed
func (cc *ChainContext) BallotBoxID() string { return cc.ballotBoxID }

// NodeID is the 1-based position of this node in the chain
func (cc *ChainContext) NodeID() int { return cc.nodeID }

// Delta is the ciphertext width of the ballot box
func (cc *ChainContext) Delta() int { return cc.delta }

// ElectionKey is the product of the four node keys, compressed to delta
func (cc *ChainContext) ElectionKey() *elgamal.PublicKey { return cc.electionKey }

// NodeKey returns the key of node k (1-based) compressed to delta
func (cc *ChainContext) NodeKey(k int) *elgamal.PublicKey {
	return cc.nodeKeys[k-1]
}

// RemainingKey is the product of the keys of nodes k..4. Node k shuffles
// under it, since nodes before k have already removed their shares.
func (cc *ChainContext) RemainingKey(k int) *elgamal.PublicKey {
	pk, err := elgamal.CombinePublicKeys(cc.nodeKeys[k-1:]...)
	if err != nil {
		// the keys were checked when the context was built
		panic(err)
	}
	return pk
}

// Aux is the data bound into node k's proofs for this ballot box
func (cc *ChainContext) Aux(k int) []string {
	return []string{cc.electionEventID, cc.ballotBoxID, NodeAlias(k)}
}

// checkVector enforces the shape every mixed or verified vector must have.
func (cc *ChainContext) checkVector(v elgamal.CiphertextVector) error {
	if len(v) < 2 {
		return fmt.Errorf("%w: need at least 2 ciphertexts, got %d", ErrMalformedCiphertexts, len(v))
	}
	w, err := v.Width()
	if err != nil {
		return fmt.Errorf("%w: %s", ErrMalformedCiphertexts, err)
	}
	if w != cc.delta {
		return fmt.Errorf("%w: ciphertext width %d does not match delta %d", ErrMalformedCiphertexts, w, cc.delta)
	}
	return nil
}

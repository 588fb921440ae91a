package tally

import (
	"errors"
	"fmt"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// ErrBadSignature is returned by SignatureService.Verify
var ErrBadSignature = errors.New("signature invalid")

// ContextLabel binds a signature to the node, election event and ballot
// box it was made for. Kind separates payload types.
type ContextLabel struct {
	Kind            string
	NodeID          int
	ElectionEventID string
	BallotBoxID     string
}

const (
	LabelVotesHash = "votes-hash"
	LabelBallotBox = "ballot-box"
	LabelShuffle   = "shuffle"
)

func (l ContextLabel) Bytes() []byte {
	return []byte(fmt.Sprintf("ccmix:%s:%s:%s:%s", l.Kind, NodeAlias(l.NodeID), l.ElectionEventID, l.BallotBoxID))
}

// Signed is a payload that can be signed. SignedContent must not include
// the signature itself.
type Signed interface {
	Label() ContextLabel
	SignedContent() ([]byte, error)
}

// SignatureService signs payloads as this node and verifies those of
// other nodes.
type SignatureService interface {
	Sign(payload Signed) (*elgamal.Signature, error)
	Verify(alias string, payload Signed, sig *elgamal.Signature) error
}

// SchnorrSignatureService signs with a width 1 key in the encryption
// group and verifies against a keyring of node aliases.
type SchnorrSignatureService struct {
	alias   string
	key     *elgamal.PrivateKey
	keyring map[string]*elgamal.PublicKey
}

var _ SignatureService = (*SchnorrSignatureService)(nil)

// NewSchnorrSignatureService creates the service for node nodeID. The
// keyring must contain a key for every node, including this one.
func NewSchnorrSignatureService(nodeID int, key *elgamal.PrivateKey, keyring map[string]*elgamal.PublicKey) (*SchnorrSignatureService, error) {
	if err := validateNodeID(nodeID); err != nil {
		return nil, err
	}
	if key == nil || key.Width() != 1 {
		return nil, validationf("signing key must have width 1")
	}
	ring := make(map[string]*elgamal.PublicKey, len(keyring))
	for alias, pk := range keyring {
		if pk == nil || pk.Width() != 1 {
			return nil, validationf("verification key for %s must have width 1", alias)
		}
		ring[alias] = pk
	}
	alias := NodeAlias(nodeID)
	if own, ok := ring[alias]; !ok || !own.Y.Equal(key.Y) {
		return nil, validationf("keyring does not hold the signing key of %s", alias)
	}
	return &SchnorrSignatureService{alias: alias, key: key, keyring: ring}, nil
}

func message(payload Signed) ([]byte, error) {
	content, err := payload.SignedContent()
	if err != nil {
		return nil, err
	}
	return append(payload.Label().Bytes(), content...), nil
}

// Sign the payload with this node's key. The payload's label must name
// this node.
func (s *SchnorrSignatureService) Sign(payload Signed) (*elgamal.Signature, error) {
	if alias := NodeAlias(payload.Label().NodeID); alias != s.alias {
		return nil, fmt.Errorf("%s cannot sign a payload labelled for %s", s.alias, alias)
	}
	msg, err := message(payload)
	if err != nil {
		return nil, err
	}
	return s.key.CreateSignature(msg)
}

// Verify the payload was signed by alias
func (s *SchnorrSignatureService) Verify(alias string, payload Signed, sig *elgamal.Signature) error {
	pk, ok := s.keyring[alias]
	if !ok {
		return fmt.Errorf("%w: unknown signer %s", ErrBadSignature, alias)
	}
	if sig == nil {
		return fmt.Errorf("%w: missing signature from %s", ErrBadSignature, alias)
	}
	msg, err := message(payload)
	if err != nil {
		return err
	}
	if err := pk.VerifySignature(sig, msg); err != nil {
		return fmt.Errorf("%w: %s: %s", ErrBadSignature, alias, err)
	}
	return nil
}

package tally

import (
	"encoding/json"
	"fmt"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/crypto/mixnet"
)

// VotesHashPayload is a node's signed commitment to the confirmed votes
// of a ballot box.
type VotesHashPayload struct {
	ElectionEventID string             `json:"electionEventId"`
	BallotBoxID     string             `json:"ballotBoxId"`
	NodeID          int                `json:"nodeId"`
	VotesHash       string             `json:"votesHash"`
	Signature       *elgamal.Signature `json:"signature,omitempty"`
}

var _ Signed = (*VotesHashPayload)(nil)

func (p *VotesHashPayload) Label() ContextLabel {
	return ContextLabel{Kind: LabelVotesHash, NodeID: p.NodeID, ElectionEventID: p.ElectionEventID, BallotBoxID: p.BallotBoxID}
}

func (p *VotesHashPayload) SignedContent() ([]byte, error) {
	c := *p
	c.Signature = nil
	return CanonicalJSON.Marshal(&c)
}

// MixResult is what a node persists once it has mixed a ballot box.
type MixResult struct {
	Shuffle     *mixnet.VerifiableShuffle
	Decryptions *elgamal.VerifiableDecryptions
}

type jsonMixResult struct {
	Shuffle     *mixnet.VerifiableShuffle      `json:"verifiableShuffle"`
	Decryptions *elgamal.VerifiableDecryptions `json:"verifiableDecryptions"`
}

func (r *MixResult) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonMixResult{Shuffle: r.Shuffle, Decryptions: r.Decryptions})
}

// DecodeMixResult reads a stored mix result, every value is checked to be
// in grp.
func DecodeMixResult(b []byte, grp *elgamal.Group) (*MixResult, error) {
	var raw struct {
		Shuffle     json.RawMessage `json:"verifiableShuffle"`
		Decryptions json.RawMessage `json:"verifiableDecryptions"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	vs, err := mixnet.DecodeVerifiableShuffle(raw.Shuffle, grp)
	if err != nil {
		return nil, fmt.Errorf("shuffle: %w", err)
	}
	vd, err := elgamal.DecodeVerifiableDecryptions(raw.Decryptions, grp)
	if err != nil {
		return nil, fmt.Errorf("decryptions: %w", err)
	}
	return &MixResult{Shuffle: vs, Decryptions: vd}, nil
}

// ShufflePayload is the signed output of one node, the input for every
// node after it.
type ShufflePayload struct {
	Group           *elgamal.Group
	ElectionEventID string
	BallotBoxID     string
	NodeID          int
	Shuffle         *mixnet.VerifiableShuffle
	Decryptions     *elgamal.VerifiableDecryptions
	Signature       *elgamal.Signature
}

var _ Signed = (*ShufflePayload)(nil)

type jsonShufflePayload struct {
	Group           *elgamal.Group                 `json:"encryptionGroup"`
	ElectionEventID string                         `json:"electionEventId"`
	BallotBoxID     string                         `json:"ballotBoxId"`
	NodeID          int                            `json:"nodeId"`
	Shuffle         *mixnet.VerifiableShuffle      `json:"verifiableShuffle"`
	Decryptions     *elgamal.VerifiableDecryptions `json:"verifiableDecryptions"`
	Signature       *elgamal.Signature             `json:"signature,omitempty"`
}

func (p *ShufflePayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonShufflePayload{
		Group:           p.Group,
		ElectionEventID: p.ElectionEventID,
		BallotBoxID:     p.BallotBoxID,
		NodeID:          p.NodeID,
		Shuffle:         p.Shuffle,
		Decryptions:     p.Decryptions,
		Signature:       p.Signature,
	})
}

// UnmarshalJSON only parses the payload. Ranges and group membership are
// checked when the payload is verified, so a tampered value surfaces as
// an invalid proof rather than a decoding failure.
func (p *ShufflePayload) UnmarshalJSON(b []byte) error {
	var j jsonShufflePayload
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	*p = ShufflePayload(j)
	return nil
}

func (p *ShufflePayload) Label() ContextLabel {
	return ContextLabel{Kind: LabelShuffle, NodeID: p.NodeID, ElectionEventID: p.ElectionEventID, BallotBoxID: p.BallotBoxID}
}

func (p *ShufflePayload) SignedContent() ([]byte, error) {
	c := *p
	c.Signature = nil
	return CanonicalJSON.Marshal(&c)
}

// BallotBoxPayload carries the confirmed votes a node mixed
type BallotBoxPayload struct {
	Group           *elgamal.Group             `json:"encryptionGroup"`
	ElectionEventID string                     `json:"electionEventId"`
	BallotBoxID     string                     `json:"ballotBoxId"`
	NodeID          int                        `json:"nodeId"`
	ConfirmedVotes  []*EncryptedVerifiableVote `json:"confirmedEncryptedVotes"`
	Signature       *elgamal.Signature         `json:"signature,omitempty"`
}

var _ Signed = (*BallotBoxPayload)(nil)

func (p *BallotBoxPayload) Label() ContextLabel {
	return ContextLabel{Kind: LabelBallotBox, NodeID: p.NodeID, ElectionEventID: p.ElectionEventID, BallotBoxID: p.BallotBoxID}
}

func (p *BallotBoxPayload) SignedContent() ([]byte, error) {
	c := *p
	c.Signature = nil
	return CanonicalJSON.Marshal(&c)
}

// MixDecryptRequest asks node NodeID to mix a ballot box. It carries the
// votes hash commitments of all four nodes and the shuffle payloads of
// nodes 1 to NodeID-1.
type MixDecryptRequest struct {
	ElectionEventID          string              `json:"electionEventId"`
	BallotBoxID              string              `json:"ballotBoxId"`
	NodeID                   int                 `json:"nodeId"`
	VotesHashes              []*VotesHashPayload `json:"votesHashes"`
	PrecedingShufflePayloads []*ShufflePayload   `json:"precedingShufflePayloads"`
}

// Validate checks the identifiers of the request
func (r *MixDecryptRequest) Validate() error {
	if err := ValidateID("election event id", r.ElectionEventID); err != nil {
		return err
	}
	if err := ValidateID("ballot box id", r.BallotBoxID); err != nil {
		return err
	}
	if err := validateNodeID(r.NodeID); err != nil {
		return err
	}
	for i, p := range r.PrecedingShufflePayloads {
		if p == nil {
			return validationf("shuffle payload %d is missing", i)
		}
	}
	return nil
}

// MixDecryptResponse is a node's signed answer to a MixDecryptRequest
type MixDecryptResponse struct {
	BallotBoxPayload *BallotBoxPayload `json:"controlComponentBallotBoxPayload"`
	ShufflePayload   *ShufflePayload   `json:"controlComponentShufflePayload"`
}

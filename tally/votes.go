package tally

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

// VoteProof is a challenge/response proof attached to a vote at casting
// time. It is carried and hashed here but verified by the vote casting
// service.
type VoteProof struct {
	E *big.Int
	Z crypto.BigIntSlice
}

type jsonVoteProof struct {
	E string             `json:"e"`
	Z crypto.BigIntSlice `json:"z"`
}

func (p *VoteProof) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonVoteProof{E: crypto.BigIntToJSON(p.E), Z: p.Z})
}

func (p *VoteProof) UnmarshalJSON(b []byte) (err error) {
	var j jsonVoteProof
	if err = json.Unmarshal(b, &j); err != nil {
		return err
	}
	if p.E, err = crypto.BigIntFromJSON(j.E); err != nil {
		return err
	}
	p.Z = j.Z
	return nil
}

// EncryptedVerifiableVote is one confirmed vote
type EncryptedVerifiableVote struct {
	ElectionEventID                   string              `json:"electionEventId"`
	VerificationCardSetID             string              `json:"verificationCardSetId"`
	VerificationCardID                string              `json:"verificationCardId"`
	EncryptedVote                     *elgamal.Ciphertext `json:"encryptedVote"`
	ExponentiatedEncryptedVote        *elgamal.Ciphertext `json:"exponentiatedEncryptedVote"`
	EncryptedPartialChoiceReturnCodes *elgamal.Ciphertext `json:"encryptedPartialChoiceReturnCodes"`
	ExponentiationProof               *VoteProof          `json:"exponentiationProof"`
	PlaintextEqualityProof            *VoteProof          `json:"plaintextEqualityProof"`
}

// Validate checks identifiers and that every value is in grp
func (v *EncryptedVerifiableVote) Validate(grp *elgamal.Group) error {
	if err := ValidateID("election event id", v.ElectionEventID); err != nil {
		return err
	}
	if err := ValidateID("verification card set id", v.VerificationCardSetID); err != nil {
		return err
	}
	if err := ValidateID("verification card id", v.VerificationCardID); err != nil {
		return err
	}
	cts := map[string]*elgamal.Ciphertext{
		"encrypted vote":                        v.EncryptedVote,
		"exponentiated encrypted vote":          v.ExponentiatedEncryptedVote,
		"encrypted partial choice return codes": v.EncryptedPartialChoiceReturnCodes,
	}
	for name, ct := range cts {
		if ct == nil {
			return validationf("vote %s: missing %s", v.VerificationCardID, name)
		}
		if err := ct.Validate(grp); err != nil {
			return validationf("vote %s: %s: %s", v.VerificationCardID, name, err)
		}
	}
	for name, p := range map[string]*VoteProof{"exponentiation proof": v.ExponentiationProof, "plaintext equality proof": v.PlaintextEqualityProof} {
		if p == nil || !grp.IsExponent(p.E) {
			return validationf("vote %s: invalid %s", v.VerificationCardID, name)
		}
		for _, z := range p.Z {
			if !grp.IsExponent(z) {
				return validationf("vote %s: invalid %s", v.VerificationCardID, name)
			}
		}
	}
	return nil
}

func (v *EncryptedVerifiableVote) appendTo(t *crypto.Transcript) {
	t.Label(v.ElectionEventID).Label(v.VerificationCardSetID).Label(v.VerificationCardID)
	for _, ct := range []*elgamal.Ciphertext{v.EncryptedVote, v.ExponentiatedEncryptedVote, v.EncryptedPartialChoiceReturnCodes} {
		t.Int(ct.Gamma).Ints(ct.Phis)
	}
	for _, p := range []*VoteProof{v.ExponentiationProof, v.PlaintextEqualityProof} {
		t.Int(p.E).Ints(p.Z)
	}
}

// SortVotes returns a copy of the votes ordered by verification card id.
// Duplicate cards are rejected.
func SortVotes(votes []*EncryptedVerifiableVote) ([]*EncryptedVerifiableVote, error) {
	sorted := make([]*EncryptedVerifiableVote, len(votes))
	copy(sorted, votes)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].VerificationCardID < sorted[j].VerificationCardID
	})
	for i := 1; i < len(sorted); i++ {
		if sorted[i].VerificationCardID == sorted[i-1].VerificationCardID {
			return nil, validationf("verification card %s confirmed more than once", sorted[i].VerificationCardID)
		}
	}
	return sorted, nil
}

// VotesHash is the base64 SHA3-256 digest of the votes, already sorted by
// SortVotes, for the given ballot box.
func VotesHash(grp *elgamal.Group, electionEventID, ballotBoxID string, sorted []*EncryptedVerifiableVote) string {
	t := grp.Transcript("ccmix:confirmed-votes").Label(electionEventID).Label(ballotBoxID).Uint(uint64(len(sorted)))
	for _, v := range sorted {
		v.appendTo(t)
	}
	return base64.StdEncoding.EncodeToString(t.Sum())
}

// DecodeVotes reads a JSON list of votes and validates them against grp.
func DecodeVotes(b []byte, grp *elgamal.Group) ([]*EncryptedVerifiableVote, error) {
	var votes []*EncryptedVerifiableVote
	if err := json.Unmarshal(b, &votes); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err)
	}
	for _, v := range votes {
		if err := v.Validate(grp); err != nil {
			return nil, err
		}
	}
	return votes, nil
}

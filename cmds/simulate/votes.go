package simulate

import (
	"encoding/json"
	"os"
	"sort"
	"strings"

	"github.com/google/uuid"
	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/crypto/random"
	"github.com/thechriswalker/go-ccmix/tally"
)

// number of distinct choices a simulated voter picks from
const choices = 4

// square returns x^2 mod p, which is always in the order q subgroup
func square(grp *elgamal.Group, x int64) *big.Int {
	y := big.NewInt(x)
	y.Mul(y, y)
	return y.Mod(y, grp.P)
}

// castVotes encrypts n random votes of width delta under the election key.
// The proofs are random values, they are never checked during the tally.
func castVotes(grp *elgamal.Group, electionKey *elgamal.PublicKey, electionEventID string, delta, n int) ([]*tally.EncryptedVerifiableVote, []string, error) {
	pk, err := electionKey.Compress(delta)
	if err != nil {
		return nil, nil, err
	}
	proof := func() *tally.VoteProof {
		return &tally.VoteProof{E: grp.RandomExponent(), Z: []*big.Int{grp.RandomExponent()}}
	}
	votes := make([]*tally.EncryptedVerifiableVote, n)
	expected := make([]string, 0, n)
	for i := range votes {
		m := make([]*big.Int, delta)
		m[0] = square(grp, 2+random.Int(big.NewInt(choices)).Int64())
		for j := 1; j < delta; j++ {
			m[j] = square(grp, int64(100+i*delta+j))
		}
		ct, err := pk.Encrypt(m, nil)
		if err != nil {
			return nil, nil, err
		}
		one, err := pk.Encrypt(elgamal.Ones(delta), nil)
		if err != nil {
			return nil, nil, err
		}
		votes[i] = &tally.EncryptedVerifiableVote{
			ElectionEventID:                   electionEventID,
			VerificationCardSetID:             uuid.New().String(),
			VerificationCardID:                uuid.New().String(),
			EncryptedVote:                     ct,
			ExponentiatedEncryptedVote:        one,
			EncryptedPartialChoiceReturnCodes: one.Copy(),
			ExponentiationProof:               proof(),
			PlaintextEqualityProof:            proof(),
		}
		expected = append(expected, plaintextKey(m))
	}
	// small ballot boxes are padded with encryptions of ones
	for len(expected) < 2 {
		expected = append(expected, plaintextKey(elgamal.Ones(delta)))
	}
	sort.Strings(expected)
	return votes, expected, nil
}

func writeVotes(path string, votes []*tally.EncryptedVerifiableVote) error {
	b, err := json.Marshal(votes)
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func plaintextKey(m []*big.Int) string {
	parts := make([]string, len(m))
	for i, x := range m {
		parts[i] = x.String()
	}
	return strings.Join(parts, ",")
}

func plaintextKeys(ms [][]*big.Int) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = plaintextKey(m)
	}
	sort.Strings(out)
	return out
}

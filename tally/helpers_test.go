package tally

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	big "github.com/ncw/gmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
)

var quiet = WithLogger(zerolog.Nop())

// p = 23, q = 11, g = 3
func toyGroup(t *testing.T) *elgamal.Group {
	t.Helper()
	grp, err := elgamal.NewGroup(big.NewInt(23), big.NewInt(11), big.NewInt(3))
	require.NoError(t, err)
	return grp
}

var bigGroup = elgamal.GenerateGroup(128)

type fixture struct {
	grp         *elgamal.Group
	ee, bb      string
	keys        [NodeCount]*elgamal.KeyPair
	pubs        [NodeCount]*elgamal.PublicKey
	signing     [NodeCount]*elgamal.KeyPair
	electionKey *elgamal.PublicKey
	box         *BallotBox
}

func newFixture(t *testing.T, grp *elgamal.Group, width int) *fixture {
	t.Helper()
	f := &fixture{
		grp: grp,
		ee:  uuid.New().String(),
		bb:  uuid.New().String(),
	}
	for i := range f.keys {
		seed := []byte(fmt.Sprintf("node-%d-seed", i+1))
		f.keys[i] = elgamal.DeriveKeyPair(grp, seed, "mixing", width)
		f.pubs[i] = f.keys[i].Public()
		f.signing[i] = elgamal.DeriveKeyPair(grp, seed, "signing", 1)
	}
	var err error
	f.electionKey, err = elgamal.CombinePublicKeys(f.pubs[:]...)
	require.NoError(t, err)
	f.box = &BallotBox{
		ID:              f.bb,
		ElectionEventID: f.ee,
		IsTest:          true,
		FinishTime:      time.Now().Add(time.Hour),
		GracePeriod:     10 * time.Minute,
		PrimesMappingTable: PrimesMappingTable{
			{ActualVotingOption: "yes", EncodedVotingOption: 4, SemanticInformation: "YES"},
			{ActualVotingOption: "no", EncodedVotingOption: 9, SemanticInformation: "NO"},
		},
	}
	return f
}

func (f *fixture) vote(t *testing.T, msg ...int64) *EncryptedVerifiableVote {
	t.Helper()
	m := make([]*big.Int, len(msg))
	for i, x := range msg {
		m[i] = big.NewInt(x)
		require.True(t, f.grp.IsMember(m[i]), "%d is not a group member", x)
	}
	pk, err := f.electionKey.Compress(len(msg))
	require.NoError(t, err)
	ct, err := pk.Encrypt(m, nil)
	require.NoError(t, err)
	one, err := pk.Encrypt(elgamal.Ones(len(msg)), nil)
	require.NoError(t, err)
	proof := func() *VoteProof {
		return &VoteProof{E: f.grp.RandomExponent(), Z: []*big.Int{f.grp.RandomExponent()}}
	}
	return &EncryptedVerifiableVote{
		ElectionEventID:                   f.ee,
		VerificationCardSetID:             uuid.New().String(),
		VerificationCardID:                uuid.New().String(),
		EncryptedVote:                     ct,
		ExponentiatedEncryptedVote:        one,
		EncryptedPartialChoiceReturnCodes: one.Copy(),
		ExponentiationProof:               proof(),
		PlaintextEqualityProof:            proof(),
	}
}

func (f *fixture) context(t *testing.T, nodeID int) *ChainContext {
	t.Helper()
	cc, err := NewChainContext(f.grp, f.ee, f.bb, nodeID, f.box.Delta(), f.pubs, f.electionKey)
	require.NoError(t, err)
	return cc
}

func (f *fixture) initial(t *testing.T, votes ...*EncryptedVerifiableVote) elgamal.CiphertextVector {
	t.Helper()
	ic, err := ComputeInitialCiphertexts(f.grp, f.ee, f.box, f.electionKey, votes)
	require.NoError(t, err)
	return ic.Ciphertexts
}

func (f *fixture) chain(t *testing.T, nodeID int, store storage.Store, opts ...Option) *MixDecryptChain {
	t.Helper()
	c, err := NewMixDecryptChain(nodeID, f.keys[nodeID-1], store, append([]Option{quiet}, opts...)...)
	require.NoError(t, err)
	return c
}

// run nodes 1..upTo in order, each with its own store, and return their
// shuffle payloads.
func (f *fixture) run(t *testing.T, initial elgamal.CiphertextVector, upTo int) []*ShufflePayload {
	t.Helper()
	var payloads []*ShufflePayload
	for k := 1; k <= upTo; k++ {
		res, err := f.chain(t, k, storage.NewMemoryStore()).Process(context.Background(), f.context(t, k), initial, payloads)
		require.NoError(t, err, "node %d", k)
		payloads = append(payloads, &ShufflePayload{
			Group:           f.grp,
			ElectionEventID: f.ee,
			BallotBoxID:     f.bb,
			NodeID:          k,
			Shuffle:         res.Shuffle,
			Decryptions:     res.Decryptions,
		})
	}
	return payloads
}

func (f *fixture) signers(t *testing.T) [NodeCount]*SchnorrSignatureService {
	t.Helper()
	ring := map[string]*elgamal.PublicKey{}
	for i, kp := range f.signing {
		ring[NodeAlias(i+1)] = kp.Public()
	}
	var out [NodeCount]*SchnorrSignatureService
	for i, kp := range f.signing {
		s, err := NewSchnorrSignatureService(i+1, kp.Secret(), ring)
		require.NoError(t, err)
		out[i] = s
	}
	return out
}

func plaintexts(xs [][]*big.Int) []int64 {
	out := make([]int64, 0, len(xs))
	for _, x := range xs {
		for _, m := range x {
			out = append(out, m.Int64())
		}
	}
	return out
}

package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	big "github.com/ncw/gmp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/thechriswalker/go-ccmix/crypto"
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
	"github.com/thechriswalker/go-ccmix/tally"
)

type testNet struct {
	grp     *elgamal.Group
	ee, bb  string
	clients [tally.NodeCount]*Client
}

func toyElection(t *testing.T, msgs ...int64) *testNet {
	t.Helper()
	grp, err := elgamal.NewGroup(big.NewInt(23), big.NewInt(11), big.NewInt(3))
	require.NoError(t, err)
	n := &testNet{grp: grp, ee: uuid.New().String(), bb: uuid.New().String()}

	var keys, signing [tally.NodeCount]*elgamal.KeyPair
	var pubs [tally.NodeCount]*elgamal.PublicKey
	ring := map[string]*elgamal.PublicKey{}
	for i := range keys {
		seed := []byte(fmt.Sprintf("ccm%d", i+1))
		keys[i] = elgamal.DeriveKeyPair(grp, seed, "mixing", 1)
		pubs[i] = keys[i].Public()
		signing[i] = elgamal.DeriveKeyPair(grp, seed, "signing", 1)
		ring[tally.NodeAlias(i+1)] = signing[i].Public()
	}
	electionKey, err := elgamal.CombinePublicKeys(pubs[:]...)
	require.NoError(t, err)

	boxes := tally.StaticBallotBoxes{n.bb: {
		ID:              n.bb,
		ElectionEventID: n.ee,
		IsTest:          true,
		FinishTime:      time.Now().Add(time.Hour),
		PrimesMappingTable: tally.PrimesMappingTable{
			{ActualVotingOption: "yes", EncodedVotingOption: 4},
			{ActualVotingOption: "no", EncodedVotingOption: 9},
		},
	}}
	votes := tally.NewStaticVotes()
	for _, m := range msgs {
		ct, err := electionKey.Encrypt([]*big.Int{big.NewInt(m)}, nil)
		require.NoError(t, err)
		one, err := electionKey.Encrypt(elgamal.Ones(1), nil)
		require.NoError(t, err)
		proof := func() *tally.VoteProof {
			return &tally.VoteProof{E: grp.RandomExponent(), Z: []*big.Int{grp.RandomExponent()}}
		}
		votes.Add(n.bb, &tally.EncryptedVerifiableVote{
			ElectionEventID:                   n.ee,
			VerificationCardSetID:             uuid.New().String(),
			VerificationCardID:                uuid.New().String(),
			EncryptedVote:                     ct,
			ExponentiatedEncryptedVote:        one,
			EncryptedPartialChoiceReturnCodes: one.Copy(),
			ExponentiationProof:               proof(),
			PlaintextEqualityProof:            proof(),
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	for i := range keys {
		signer, err := tally.NewSchnorrSignatureService(i+1, signing[i].Secret(), ring)
		require.NoError(t, err)
		svc, err := tally.NewService(tally.ServiceConfig{
			NodeID:      i + 1,
			Group:       grp,
			Keys:        keys[i],
			NodeKeys:    pubs,
			Store:       storage.NewMemoryStore(),
			Signer:      signer,
			BallotBoxes: boxes,
			Votes:       votes,
		}, tally.WithLogger(zerolog.Nop()))
		require.NoError(t, err)

		lis := bufconn.Listen(1 << 20)
		go Serve(ctx, lis, svc)
		client, err := Dial(ctx, "bufnet", grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) {
			return lis.Dial()
		}))
		require.NoError(t, err)
		t.Cleanup(func() { client.Close() })
		n.clients[i] = client
	}
	return n
}

func (n *testNet) commitments(t *testing.T) []*tally.VotesHashPayload {
	t.Helper()
	out := make([]*tally.VotesHashPayload, tally.NodeCount)
	for i, c := range n.clients {
		p, err := c.VotesHash(context.Background(), n.ee, n.bb)
		require.NoError(t, err)
		out[i] = p
	}
	return out
}

func TestMixDecryptOverGRPC(t *testing.T) {
	n := toyElection(t, 4, 9)
	ctx := context.Background()
	commitments := n.commitments(t)

	var preceding []*tally.ShufflePayload
	for i, c := range n.clients {
		resp, err := c.MixDecrypt(ctx, &tally.MixDecryptRequest{
			ElectionEventID:          n.ee,
			BallotBoxID:              n.bb,
			NodeID:                   i + 1,
			VotesHashes:              commitments,
			PrecedingShufflePayloads: preceding,
		})
		require.NoError(t, err, "node %d", i+1)
		require.NotNil(t, resp.ShufflePayload)
		require.Len(t, resp.BallotBoxPayload.ConfirmedVotes, 2)
		preceding = append(preceding, resp.ShufflePayload)
	}

	var got []int64
	for _, m := range tally.CombineDecryptions(preceding[3].Decryptions.Ciphertexts) {
		got = append(got, m[0].Int64())
	}
	sort.Slice(got, func(i, j int) bool { return got[i] < got[j] })
	assert.Equal(t, []int64{4, 9}, got)

	replayed, err := n.clients[2].Replay(ctx, n.ee, n.bb)
	require.NoError(t, err)
	want, err := json.Marshal(preceding[2].Shuffle)
	require.NoError(t, err)
	got2, err := json.Marshal(replayed.ShufflePayload.Shuffle)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(got2))
}

func TestErrorsCrossTheWire(t *testing.T) {
	n := toyElection(t, 4)
	ctx := context.Background()

	_, err := n.clients[0].Replay(ctx, n.ee, n.bb)
	assert.ErrorIs(t, err, tally.ErrNotFound)

	_, err = n.clients[1].MixDecrypt(ctx, &tally.MixDecryptRequest{
		ElectionEventID: n.ee,
		BallotBoxID:     n.bb,
		NodeID:          2,
		VotesHashes:     n.commitments(t),
	})
	assert.ErrorIs(t, err, tally.ErrWrongPayloadCount)
	assert.ErrorIs(t, err, tally.ErrValidation)

	_, err = n.clients[0].VotesHash(ctx, n.ee, "not-a-uuid")
	assert.ErrorIs(t, err, tally.ErrValidation)
}

func TestTamperedProofIsFatalOverGRPC(t *testing.T) {
	n := toyElection(t, 4, 9)
	ctx := context.Background()
	commitments := n.commitments(t)

	first, err := n.clients[0].MixDecrypt(ctx, &tally.MixDecryptRequest{
		ElectionEventID: n.ee,
		BallotBoxID:     n.bb,
		NodeID:          1,
		VotesHashes:     commitments,
	})
	require.NoError(t, err)

	b, err := json.Marshal(first.ShufflePayload)
	require.NoError(t, err)
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &m))
	proof := m["verifiableDecryptions"].(map[string]interface{})["decryptionProofs"].([]interface{})[0].(map[string]interface{})
	e, err := crypto.BigIntFromJSON(proof["e"].(string))
	require.NoError(t, err)
	proof["e"] = crypto.BigIntToJSON(e.Add(e, n.grp.Q))
	b, err = json.Marshal(m)
	require.NoError(t, err)
	tampered := new(tally.ShufflePayload)
	require.NoError(t, json.Unmarshal(b, tampered))

	_, err = n.clients[1].MixDecrypt(ctx, &tally.MixDecryptRequest{
		ElectionEventID:          n.ee,
		BallotBoxID:              n.bb,
		NodeID:                   2,
		VotesHashes:              commitments,
		PrecedingShufflePayloads: []*tally.ShufflePayload{tampered},
	})
	assert.ErrorIs(t, err, tally.ErrInvalidProof)
	assert.True(t, tally.IsFatal(err))
}

func TestStatusMapping(t *testing.T) {
	for _, tc := range []struct {
		err  error
		code codes.Code
	}{
		{tally.ErrMixingNotAllowed, codes.FailedPrecondition},
		{fmt.Errorf("payload of node 2: %w", tally.ErrInvalidProof), codes.Aborted},
		{fmt.Errorf("%w: hashes differ", tally.ErrVoteSetDivergence), codes.Aborted},
		{fmt.Errorf("payload of node 3: %w", tally.ErrMalformedCiphertexts), codes.InvalidArgument},
		{fmt.Errorf("%w: box", tally.ErrNotFound), codes.NotFound},
	} {
		st := toStatus(tc.err)
		assert.Equal(t, tc.code, status.Code(st), tc.err.Error())
		back := fromStatus(st)
		for _, ce := range codeErrors {
			assert.Equal(t, errors.Is(tc.err, ce.err), errors.Is(back, ce.err), "%s as %s", tc.err, ce.err)
		}
	}
	assert.Equal(t, codes.Internal, status.Code(toStatus(fmt.Errorf("disk on fire"))))
	assert.Nil(t, toStatus(nil))
	assert.Nil(t, fromStatus(nil))
}

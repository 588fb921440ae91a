package tally

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	hashA = "q83vEjRWeJq83vEjRWeJq83vEjRWeJq83vEjRWeJq8w="
	hashB = "3q2+7wAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA="
)

func TestAllHashesAgree(t *testing.T) {
	assert.True(t, AllHashesAgree([NodeCount]string{hashA, hashA, hashA, hashA}))
	assert.False(t, AllHashesAgree([NodeCount]string{hashA, hashA, hashB, hashA}))
	assert.False(t, AllHashesAgree([NodeCount]string{hashA, hashA, "", hashA}))
	assert.False(t, AllHashesAgree([NodeCount]string{}))
}

func TestRecordAndCheck(t *testing.T) {
	f := newFixture(t, toyGroup(t), 1)
	l := NewLedger(f.signers(t)[0])
	require.NoError(t, l.RecordAndCheck(1, f.ee, f.bb, hashA))
	require.NoError(t, l.RecordAndCheck(1, f.ee, f.bb, hashA))
	require.NoError(t, l.RecordAndCheck(2, f.ee, f.bb, hashB))

	err := l.RecordAndCheck(1, f.ee, f.bb, hashB)
	assert.ErrorIs(t, err, ErrVoteSetDivergence)
	assert.True(t, IsFatal(err))

	assert.Equal(t, [NodeCount]string{hashA, hashB, "", ""}, l.Hashes(f.ee, f.bb))
	assert.Equal(t, [NodeCount]string{}, l.Hashes(f.ee, f.ee))
	assert.ErrorIs(t, l.RecordAndCheck(0, f.ee, f.bb, hashA), ErrValidation)
}

func TestCheckCommitments(t *testing.T) {
	f := newFixture(t, bigGroup, 1)
	signers := f.signers(t)

	commit := func(hashes ...string) []*VotesHashPayload {
		out := make([]*VotesHashPayload, len(hashes))
		for i, h := range hashes {
			p := &VotesHashPayload{ElectionEventID: f.ee, BallotBoxID: f.bb, NodeID: i + 1, VotesHash: h}
			sig, err := signers[i].Sign(p)
			require.NoError(t, err)
			p.Signature = sig
			out[i] = p
		}
		return out
	}

	// a fresh ledger each time, as each would be a separate request
	check := func(cs []*VotesHashPayload, own string) error {
		return NewLedger(signers[1]).CheckCommitments(f.ee, f.bb, cs, own)
	}

	assert.NoError(t, check(commit(hashA, hashA, hashA, hashA), hashA))

	err := check(commit(hashA, hashA, hashB, hashA), hashA)
	assert.ErrorIs(t, err, ErrVoteSetDivergence)

	assert.ErrorIs(t, check(commit(hashA, hashA, hashA, hashA), hashB), ErrVoteSetDivergence)

	forged := commit(hashA, hashA, hashA, hashA)
	forged[3].VotesHash = hashB
	assert.ErrorIs(t, check(forged, hashA), ErrVoteSetDivergence)

	resigned := commit(hashA, hashA, hashA, hashA)
	resigned[2].Signature = resigned[1].Signature
	assert.ErrorIs(t, check(resigned, hashA), ErrVoteSetDivergence)

	missing := check(commit(hashA, hashA, hashA), hashA)
	assert.ErrorIs(t, missing, ErrValidation)
	assert.False(t, IsFatal(missing), "a missing commitment can be resent")

	dup := commit(hashA, hashA, hashA, hashA)
	dup[3] = dup[2]
	assert.ErrorIs(t, check(dup, hashA), ErrValidation)

	wrongBox := commit(hashA, hashA, hashA, hashA)
	wrongBox[0].BallotBoxID = f.ee
	assert.ErrorIs(t, check(wrongBox, hashA), ErrValidation)
	assert.False(t, IsFatal(check(wrongBox, hashA)))
}

func TestSignatureBindsContext(t *testing.T) {
	f := newFixture(t, bigGroup, 1)
	signers := f.signers(t)
	p := &VotesHashPayload{ElectionEventID: f.ee, BallotBoxID: f.bb, NodeID: 1, VotesHash: hashA}
	sig, err := signers[0].Sign(p)
	require.NoError(t, err)
	require.NoError(t, signers[2].Verify("ccm1", p, sig))

	assert.ErrorIs(t, signers[2].Verify("ccm2", p, sig), ErrBadSignature)
	assert.ErrorIs(t, signers[2].Verify("ccm9", p, sig), ErrBadSignature)

	moved := *p
	moved.BallotBoxID = f.ee
	assert.ErrorIs(t, signers[2].Verify("ccm1", &moved, sig), ErrBadSignature)

	_, err = signers[1].Sign(p)
	assert.Error(t, err, "ccm2 must not sign for ccm1")
}

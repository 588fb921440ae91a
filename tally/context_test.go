package tally

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	big "github.com/ncw/gmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

func TestValidateID(t *testing.T) {
	id := uuid.New().String()
	assert.NoError(t, ValidateID("id", id))
	assert.NoError(t, ValidateID("id", strings.ReplaceAll(id, "-", "")))
	for _, bad := range []string{"", "not-a-uuid", id[:30]} {
		assert.ErrorIs(t, ValidateID("id", bad), ErrValidation, bad)
	}
}

func TestNewChainContext(t *testing.T) {
	f := newFixture(t, toyGroup(t), 1)
	cc := f.context(t, 2)
	assert.Equal(t, 2, cc.NodeID())
	assert.Equal(t, 1, cc.Delta())
	assert.True(t, cc.RemainingKey(1).Y.Equal(cc.ElectionKey().Y))
	assert.True(t, cc.RemainingKey(4).Y.Equal(cc.NodeKey(4).Y))
	assert.Equal(t, []string{f.ee, f.bb, "ccm3"}, cc.Aux(3))

	other, err := elgamal.NewPublicKey(f.grp, []*big.Int{f.grp.Mul(f.electionKey.Y[0], f.grp.G)})
	require.NoError(t, err)
	var missing [NodeCount]*elgamal.PublicKey
	copy(missing[:], f.pubs[:3])

	cases := map[string]func() (*ChainContext, error){
		"nil group": func() (*ChainContext, error) {
			return NewChainContext(nil, f.ee, f.bb, 1, 1, f.pubs, f.electionKey)
		},
		"bad election event": func() (*ChainContext, error) {
			return NewChainContext(f.grp, "x", f.bb, 1, 1, f.pubs, f.electionKey)
		},
		"bad ballot box": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, "", 1, 1, f.pubs, f.electionKey)
		},
		"node 0": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, f.bb, 0, 1, f.pubs, f.electionKey)
		},
		"node 5": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, f.bb, 5, 1, f.pubs, f.electionKey)
		},
		"delta 0": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, f.bb, 1, 0, f.pubs, f.electionKey)
		},
		"delta wider than keys": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, f.bb, 1, 2, f.pubs, f.electionKey)
		},
		"missing node key": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, f.bb, 1, 1, missing, f.electionKey)
		},
		"wrong election key": func() (*ChainContext, error) {
			return NewChainContext(f.grp, f.ee, f.bb, 1, 1, f.pubs, other)
		},
	}
	for name, build := range cases {
		cc, err := build()
		assert.Nil(t, cc, name)
		assert.ErrorIs(t, err, ErrValidation, name)
	}
}

func TestChainContextCompressesKeys(t *testing.T) {
	f := newFixture(t, toyGroup(t), 3)
	cc := f.context(t, 1)
	require.Equal(t, 1, cc.Delta())
	for k := 1; k <= NodeCount; k++ {
		assert.Equal(t, 1, cc.NodeKey(k).Width())
	}
	want, err := f.electionKey.Compress(1)
	require.NoError(t, err)
	assert.True(t, want.Y.Equal(cc.ElectionKey().Y))
}

func TestPrimesMappingTableDelta(t *testing.T) {
	assert.Equal(t, 1, PrimesMappingTable{}.GetDelta())
	table := PrimesMappingTable{
		{ActualVotingOption: "a", EncodedVotingOption: 2},
		{ActualVotingOption: "w1", EncodedVotingOption: 3, WriteIn: true},
		{ActualVotingOption: "w2", EncodedVotingOption: 5, WriteIn: true},
	}
	assert.Equal(t, 3, table.GetDelta())
}

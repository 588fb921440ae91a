package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
	"github.com/thechriswalker/go-ccmix/tally"
)

// Node is a bootstrapped control component
type Node struct {
	Config  *NodeConfig
	Group   *elgamal.Group
	Store   storage.Store
	Service *tally.Service
}

// Close releases the store
func (n *Node) Close() error {
	return n.Store.Close()
}

// Bootstrap derives the keys, checks them against the published ones, opens
// the store and builds the service.
func Bootstrap(cfg *NodeConfig, opts ...tally.Option) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	grp, err := cfg.Group.ParseGroup()
	if err != nil {
		return nil, err
	}
	mixing, signing, err := cfg.Keys(grp)
	if err != nil {
		return nil, err
	}

	var nodeKeys [tally.NodeCount]*elgamal.PublicKey
	keyring := map[string]*elgamal.PublicKey{}
	for _, p := range cfg.Nodes {
		mk, sk, err := p.keys(grp)
		if err != nil {
			return nil, err
		}
		nodeKeys[p.ID-1] = mk
		keyring[tally.NodeAlias(p.ID)] = sk
	}
	own := keyring[tally.NodeAlias(cfg.NodeID)]
	if !own.Y.Equal(signing.Public().Y) {
		return nil, fmt.Errorf("signing_seed does not match the signing_key published for node %d", cfg.NodeID)
	}
	if !nodeKeys[cfg.NodeID-1].Y.Equal(mixing.Public().Y) {
		return nil, fmt.Errorf("key_seed does not match the mixing_key published for node %d", cfg.NodeID)
	}

	signer, err := tally.NewSchnorrSignatureService(cfg.NodeID, signing.Secret(), keyring)
	if err != nil {
		return nil, err
	}
	boxes := tally.StaticBallotBoxes{}
	for _, b := range cfg.BallotBoxes {
		boxes[b.ID] = b.ballotBox()
	}
	store, err := storage.Open(cfg.Storage, cfg.DataDir)
	if err != nil {
		return nil, err
	}
	svc, err := tally.NewService(tally.ServiceConfig{
		NodeID:      cfg.NodeID,
		Group:       grp,
		Keys:        mixing,
		NodeKeys:    nodeKeys,
		Store:       store,
		Signer:      signer,
		BallotBoxes: boxes,
		Votes:       &DirVotes{Dir: cfg.VotesDir, Group: grp},
	}, opts...)
	if err != nil {
		store.Close()
		return nil, err
	}
	return &Node{Config: cfg, Group: grp, Store: store, Service: svc}, nil
}

// DirVotes reads the confirmed votes of a ballot box from
// <Dir>/<ballotBoxId>.json. A missing file means no confirmed votes.
type DirVotes struct {
	Dir   string
	Group *elgamal.Group
}

var _ tally.VoteSource = (*DirVotes)(nil)

func (d *DirVotes) Path(ballotBoxID string) string {
	return filepath.Join(d.Dir, ballotBoxID+".json")
}

func (d *DirVotes) ConfirmedVotes(ctx context.Context, electionEventID, ballotBoxID string) ([]*tally.EncryptedVerifiableVote, error) {
	if err := tally.ValidateID("ballot box id", ballotBoxID); err != nil {
		return nil, err
	}
	b, err := os.ReadFile(d.Path(ballotBoxID))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	votes, err := tally.DecodeVotes(b, d.Group)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.Path(ballotBoxID), err)
	}
	out := votes[:0]
	for _, v := range votes {
		if v.ElectionEventID == electionEventID {
			out = append(out, v)
		}
	}
	return out, nil
}

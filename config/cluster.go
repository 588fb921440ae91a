package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/tally"
)

func randomSeed() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}

// NewCluster creates matching configs for all four nodes with fresh seeds.
// Each node gets its own sub directory of baseDir for data.
func NewCluster(grp *elgamal.Group, keyWidth int, backend, baseDir, votesDir string, boxes []BallotBoxConfig) ([tally.NodeCount]*NodeConfig, error) {
	var cfgs [tally.NodeCount]*NodeConfig
	peers := make([]PeerConfig, tally.NodeCount)
	for i := range cfgs {
		cfg := &NodeConfig{
			NodeID:      i + 1,
			ListenAddr:  "localhost:0",
			DataDir:     filepath.Join(baseDir, tally.NodeAlias(i+1)),
			Storage:     backend,
			Group:       GroupToConfig(grp),
			KeySeed:     randomSeed(),
			KeyWidth:    keyWidth,
			SigningSeed: randomSeed(),
			VotesDir:    votesDir,
			BallotBoxes: boxes,
		}
		mixing, signing, err := cfg.Keys(grp)
		if err != nil {
			return cfgs, err
		}
		peers[i] = PeerFor(i+1, "", mixing.Public(), signing.Public())
		cfgs[i] = cfg
	}
	for _, cfg := range cfgs {
		cfg.Nodes = append([]PeerConfig(nil), peers...)
		if err := cfg.Validate(); err != nil {
			return cfgs, fmt.Errorf("generated config for node %d: %w", cfg.NodeID, err)
		}
	}
	return cfgs, nil
}

// ElectionKey is the product of the published mixing keys
func (cfg *NodeConfig) ElectionKey(grp *elgamal.Group) (*elgamal.PublicKey, error) {
	keys := make([]*elgamal.PublicKey, 0, len(cfg.Nodes))
	for _, p := range cfg.Nodes {
		mk, _, err := p.keys(grp)
		if err != nil {
			return nil, err
		}
		keys = append(keys, mk)
	}
	return elgamal.CombinePublicKeys(keys...)
}

// Package config reads the TOML file a control component node is run from
// and bootstraps the node from it.
package config

import (
	"encoding/hex"
	"fmt"
	"io"
	"time"

	"github.com/BurntSushi/toml"
	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
	"github.com/thechriswalker/go-ccmix/tally"
)

// Duration is a time.Duration written as "15m" in TOML
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(b []byte) (err error) {
	d.Duration, err = time.ParseDuration(string(b))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// GroupConfig holds the group parameters in hex
type GroupConfig struct {
	P string `toml:"p"`
	Q string `toml:"q"`
	G string `toml:"g"`
}

// PeerConfig is the public part of a node
type PeerConfig struct {
	ID         int      `toml:"id"`
	Address    string   `toml:"address"`
	MixingKey  []string `toml:"mixing_key"`
	SigningKey string   `toml:"signing_key"`
}

// BallotBoxConfig describes one ballot box
type BallotBoxConfig struct {
	ID              string    `toml:"id"`
	ElectionEventID string    `toml:"election_event_id"`
	Test            bool      `toml:"test"`
	FinishTime      time.Time `toml:"finish_time"`
	GracePeriod     Duration  `toml:"grace_period"`
	WriteIns        int       `toml:"write_ins"`
}

// NodeConfig is the whole config of one node
type NodeConfig struct {
	NodeID      int               `toml:"node_id"`
	ListenAddr  string            `toml:"listen_addr"`
	DataDir     string            `toml:"data_dir"`
	Storage     string            `toml:"storage"`
	Group       GroupConfig       `toml:"group"`
	KeySeed     string            `toml:"key_seed"`
	KeyWidth    int               `toml:"key_width"`
	SigningSeed string            `toml:"signing_seed"`
	VotesDir    string            `toml:"votes_dir"`
	Nodes       []PeerConfig      `toml:"nodes"`
	BallotBoxes []BallotBoxConfig `toml:"ballot_boxes"`
}

// Load reads and validates a config file. Unknown keys are an error.
func Load(path string) (*NodeConfig, error) {
	cfg := &NodeConfig{
		ListenAddr: "localhost:0",
		DataDir:    ".",
		Storage:    storage.BackendSQLite,
		KeyWidth:   1,
	}
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config %s: unknown keys %v", path, undecoded)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// Write the config as TOML
func (cfg *NodeConfig) Write(w io.Writer) error {
	return toml.NewEncoder(w).Encode(cfg)
}

// Validate checks everything that can be checked without deriving keys
func (cfg *NodeConfig) Validate() error {
	if cfg.NodeID < 1 || cfg.NodeID > tally.NodeCount {
		return fmt.Errorf("node_id must be between 1 and %d", tally.NodeCount)
	}
	if cfg.KeyWidth < 1 {
		return fmt.Errorf("key_width must be at least 1")
	}
	if _, err := hex.DecodeString(cfg.KeySeed); err != nil || cfg.KeySeed == "" {
		return fmt.Errorf("key_seed must be non-empty hex")
	}
	if _, err := hex.DecodeString(cfg.SigningSeed); err != nil || cfg.SigningSeed == "" {
		return fmt.Errorf("signing_seed must be non-empty hex")
	}
	if len(cfg.Nodes) != tally.NodeCount {
		return fmt.Errorf("expected %d [[nodes]], got %d", tally.NodeCount, len(cfg.Nodes))
	}
	seen := map[int]bool{}
	for _, n := range cfg.Nodes {
		if n.ID < 1 || n.ID > tally.NodeCount || seen[n.ID] {
			return fmt.Errorf("[[nodes]] ids must be 1 to %d, each once", tally.NodeCount)
		}
		seen[n.ID] = true
		if len(n.MixingKey) < 1 {
			return fmt.Errorf("node %d has no mixing_key", n.ID)
		}
	}
	for _, b := range cfg.BallotBoxes {
		if err := b.ballotBox().Validate(); err != nil {
			return err
		}
		if b.WriteIns < 0 || b.WriteIns+1 > cfg.KeyWidth {
			return fmt.Errorf("ballot box %s: %d write-ins need a key_width of at least %d", b.ID, b.WriteIns, b.WriteIns+1)
		}
	}
	return nil
}

func (b BallotBoxConfig) ballotBox() *tally.BallotBox {
	table := tally.PrimesMappingTable{{ActualVotingOption: "choices", SemanticInformation: "encoded choices"}}
	for i := 0; i < b.WriteIns; i++ {
		table = append(table, tally.PrimesMappingEntry{
			ActualVotingOption:  fmt.Sprintf("write-in-%d", i+1),
			SemanticInformation: "write-in",
			WriteIn:             true,
		})
	}
	return &tally.BallotBox{
		ID:                 b.ID,
		ElectionEventID:    b.ElectionEventID,
		IsTest:             b.Test,
		FinishTime:         b.FinishTime,
		GracePeriod:        b.GracePeriod.Duration,
		PrimesMappingTable: table,
	}
}

func parseHex(name, s string) (*big.Int, error) {
	x, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("%s: %q is not hex", name, s)
	}
	return x, nil
}

// Hex formats x for a config file
func Hex(x *big.Int) string {
	return hex.EncodeToString(x.Bytes())
}

// ParseGroup builds the validated group
func (g GroupConfig) ParseGroup() (*elgamal.Group, error) {
	p, err := parseHex("group.p", g.P)
	if err != nil {
		return nil, err
	}
	q, err := parseHex("group.q", g.Q)
	if err != nil {
		return nil, err
	}
	gen, err := parseHex("group.g", g.G)
	if err != nil {
		return nil, err
	}
	return elgamal.NewGroup(p, q, gen)
}

// GroupToConfig is the inverse of ParseGroup
func GroupToConfig(grp *elgamal.Group) GroupConfig {
	return GroupConfig{P: Hex(grp.P), Q: Hex(grp.Q), G: Hex(grp.G)}
}

// Keys derives the mixing and signing key pairs of this node from its seeds
func (cfg *NodeConfig) Keys(grp *elgamal.Group) (mixing, signing *elgamal.KeyPair, err error) {
	mixingSeed, err := hex.DecodeString(cfg.KeySeed)
	if err != nil {
		return nil, nil, err
	}
	signingSeed, err := hex.DecodeString(cfg.SigningSeed)
	if err != nil {
		return nil, nil, err
	}
	mixing = elgamal.DeriveKeyPair(grp, mixingSeed, tally.NodeAlias(cfg.NodeID)+":mixing", cfg.KeyWidth)
	signing = elgamal.DeriveKeyPair(grp, signingSeed, tally.NodeAlias(cfg.NodeID)+":signing", 1)
	return mixing, signing, nil
}

// PeerFor builds the public [[nodes]] entry for a node from its keys
func PeerFor(nodeID int, address string, mixing, signing *elgamal.PublicKey) PeerConfig {
	p := PeerConfig{ID: nodeID, Address: address, SigningKey: Hex(signing.Y[0])}
	for _, y := range mixing.Y {
		p.MixingKey = append(p.MixingKey, Hex(y))
	}
	return p
}

func (p PeerConfig) keys(grp *elgamal.Group) (mixing, signing *elgamal.PublicKey, err error) {
	ys := make([]*big.Int, len(p.MixingKey))
	for i, s := range p.MixingKey {
		if ys[i], err = parseHex(fmt.Sprintf("node %d mixing_key[%d]", p.ID, i), s); err != nil {
			return nil, nil, err
		}
	}
	if mixing, err = elgamal.NewPublicKey(grp, ys); err != nil {
		return nil, nil, fmt.Errorf("node %d mixing_key: %w", p.ID, err)
	}
	y, err := parseHex(fmt.Sprintf("node %d signing_key", p.ID), p.SigningKey)
	if err != nil {
		return nil, nil, err
	}
	if signing, err = elgamal.NewPublicKey(grp, []*big.Int{y}); err != nil {
		return nil, nil, fmt.Errorf("node %d signing_key: %w", p.ID, err)
	}
	return mixing, signing, nil
}

// Peer returns the [[nodes]] entry for a node id
func (cfg *NodeConfig) Peer(nodeID int) (PeerConfig, bool) {
	for _, p := range cfg.Nodes {
		if p.ID == nodeID {
			return p, true
		}
	}
	return PeerConfig{}, false
}

package keys

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/thechriswalker/go-ccmix/config"
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
	"github.com/thechriswalker/go-ccmix/tally"
)

// Register the key and config commands
func Register(rootCmd *cobra.Command) {
	var keysCmd = &cobra.Command{
		Use:   "keys",
		Short: "Node keys and configs",
		Long:  "Create the configs of a four node cluster, or print the public entry of one node",
	}
	rootCmd.AddCommand(keysCmd)

	var outDir, backend, votesDir string
	var bits, width, writeIns, boxes, basePort int
	var test bool
	var grace time.Duration

	clusterCmd := &cobra.Command{
		Use:   "cluster",
		Short: "Create a group, seeds and configs for all four nodes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if writeIns+1 > width {
				width = writeIns + 1
			}
			log.Info().Int("bits", bits).Msg("Generating encryption group")
			grp := elgamal.GenerateGroup(bits)

			electionEventID := uuid.New().String()
			finish := time.Now().UTC().Truncate(time.Second)
			bbs := make([]config.BallotBoxConfig, boxes)
			for i := range bbs {
				bbs[i] = config.BallotBoxConfig{
					ID:              uuid.New().String(),
					ElectionEventID: electionEventID,
					Test:            test,
					FinishTime:      finish,
					GracePeriod:     config.Duration{Duration: grace},
					WriteIns:        writeIns,
				}
			}
			cfgs, err := config.NewCluster(grp, width, backend, filepath.Join(outDir, "data"), votesDir, bbs)
			if err != nil {
				return err
			}
			for i, cfg := range cfgs {
				cfg.ListenAddr = fmt.Sprintf("localhost:%d", basePort+i)
			}
			for _, cfg := range cfgs {
				for i := range cfg.Nodes {
					cfg.Nodes[i].Address = cfgs[cfg.Nodes[i].ID-1].ListenAddr
				}
			}
			if err := os.MkdirAll(outDir, 0o755); err != nil {
				return err
			}
			for _, cfg := range cfgs {
				path := filepath.Join(outDir, tally.NodeAlias(cfg.NodeID)+".toml")
				if err := writeFile(path, cfg); err != nil {
					return err
				}
				log.Info().Str("file", path).Int("node", cfg.NodeID).Msg("Wrote node config")
			}
			log.Info().Str("election_event", electionEventID).Int("ballot_boxes", boxes).Msg("Cluster ready")
			return nil
		},
	}
	clusterCmd.Flags().StringVar(&outDir, "out", ".", "Directory to write ccm1.toml to ccm4.toml into")
	clusterCmd.Flags().StringVar(&backend, "storage", storage.BackendSQLite, "Storage backend: memory, sqlite or bolt")
	clusterCmd.Flags().StringVar(&votesDir, "votes-dir", "votes", "Directory the nodes read <ballotBoxId>.json votes from")
	clusterCmd.Flags().IntVar(&bits, "bits", 256, "Size of the safe prime p in bits")
	clusterCmd.Flags().IntVar(&width, "key-width", 1, "Number of elements in each mixing key")
	clusterCmd.Flags().IntVar(&writeIns, "write-ins", 0, "Write-in options per ballot box")
	clusterCmd.Flags().IntVar(&boxes, "ballot-boxes", 1, "Number of ballot boxes to create")
	clusterCmd.Flags().IntVar(&basePort, "base-port", 7101, "Node k listens on base-port+k-1")
	clusterCmd.Flags().BoolVar(&test, "test", false, "Mark the ballot boxes as test boxes, mixable at once")
	clusterCmd.Flags().DurationVar(&grace, "grace-period", 15*time.Minute, "Grace period after the finish time before mixing is allowed")
	keysCmd.AddCommand(clusterCmd)

	var configFile string
	publicCmd := &cobra.Command{
		Use:   "public",
		Short: "Print the public [[nodes]] entry derived from a node config's seeds",
		RunE: func(cmd *cobra.Command, args []string) error {
			// the [[nodes]] table may not be written yet, so no config.Load
			cfg := &config.NodeConfig{KeyWidth: 1}
			if _, err := toml.DecodeFile(configFile, cfg); err != nil {
				return err
			}
			grp, err := cfg.Group.ParseGroup()
			if err != nil {
				return err
			}
			mixing, signing, err := cfg.Keys(grp)
			if err != nil {
				return err
			}
			out := struct {
				Nodes []config.PeerConfig `toml:"nodes"`
			}{
				Nodes: []config.PeerConfig{config.PeerFor(cfg.NodeID, cfg.ListenAddr, mixing.Public(), signing.Public())},
			}
			return toml.NewEncoder(os.Stdout).Encode(out)
		},
	}
	publicCmd.Flags().StringVar(&configFile, "config", "ccmix.toml", "The path to the node's TOML config file")
	keysCmd.AddCommand(publicCmd)
}

func writeFile(path string, cfg *config.NodeConfig) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := cfg.Write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

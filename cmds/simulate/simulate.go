package simulate

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/thechriswalker/go-ccmix/config"
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/protocol"
	"github.com/thechriswalker/go-ccmix/storage"
	"github.com/thechriswalker/go-ccmix/tally"
)

type boxResult struct {
	BallotBoxID string   `json:"ballotBoxId"`
	Votes       int      `json:"votes"`
	Plaintexts  []string `json:"plaintexts"`
	Audited     bool     `json:"audited"`
	Matches     bool     `json:"matchesCast"`
}

type simulation struct {
	grp             *elgamal.Group
	electionEventID string
	boxes           []config.BallotBoxConfig
	votes           int
	expected        map[string][]string
	nodes           [tally.NodeCount]*config.Node
	mixers          [tally.NodeCount]protocol.Mixer
}

// Register the simulation command
func Register(rootCmd *cobra.Command) {
	var bits, boxes, votes, writeIns, concurrency int
	var backend, dataDir string
	var inProcess, progress bool

	var cmd = &cobra.Command{
		Use:   "simulate",
		Short: "Run all four control components in one process",
		Long:  "Create a cluster, cast random votes, pass every ballot box through nodes 1 to 4 and audit the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bits < 32 {
				return fmt.Errorf("--bits must be at least 32")
			}
			if concurrency < 1 {
				return fmt.Errorf("--concurrency must be at least 1")
			}
			if dataDir == "" {
				dir, err := os.MkdirTemp("", "ccmix-sim-")
				if err != nil {
					return err
				}
				defer os.RemoveAll(dir)
				dataDir = dir
			}
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			start := time.Now()
			sim, err := setup(bits, boxes, votes, writeIns, backend, dataDir)
			if err != nil {
				return err
			}
			defer sim.close()
			if !inProcess {
				if err := sim.serve(ctx); err != nil {
					return err
				}
			}
			log.Info().Dur("setup_ms", time.Since(start)).Msg("Cluster ready")

			bar := newProgress(len(sim.boxes), progress)
			bar.Start()
			var payloads map[string][]*tally.ShufflePayload
			if inProcess {
				payloads, err = sim.runBatched(ctx, bar)
			} else {
				payloads, err = sim.runConcurrent(ctx, concurrency, bar)
			}
			bar.Finish()
			if err != nil {
				return err
			}
			log.Info().Dur("mix_ms", time.Since(start)).Msg("All ballot boxes mixed and decrypted")

			results, err := sim.audit(ctx, payloads)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		},
	}

	cmd.Flags().IntVar(&bits, "bits", 128, "Size of the safe prime p in bits")
	cmd.Flags().IntVar(&boxes, "ballot-boxes", 3, "Number of ballot boxes")
	cmd.Flags().IntVar(&votes, "votes", 10, "Confirmed votes per ballot box")
	cmd.Flags().IntVar(&writeIns, "write-ins", 0, "Write-in options per ballot box")
	cmd.Flags().IntVar(&concurrency, "concurrency", 2, "Ballot boxes mixed at once")
	cmd.Flags().StringVar(&backend, "storage", storage.BackendMemory, "Storage backend: memory, sqlite or bolt")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for votes and node data (a temporary directory if empty)")
	cmd.Flags().BoolVar(&inProcess, "in-process", false, "Call the nodes directly, one batch per node, instead of over gRPC")
	cmd.Flags().BoolVar(&progress, "progress", true, "Show a progress bar")
	rootCmd.AddCommand(cmd)
}

func setup(bits, boxes, votes, writeIns int, backend, dataDir string) (*simulation, error) {
	log.Info().Int("bits", bits).Msg("Generating encryption group")
	sim := &simulation{
		grp:             elgamal.GenerateGroup(bits),
		electionEventID: uuid.New().String(),
		votes:           votes,
		expected:        map[string][]string{},
	}
	for i := 0; i < boxes; i++ {
		sim.boxes = append(sim.boxes, config.BallotBoxConfig{
			ID:              uuid.New().String(),
			ElectionEventID: sim.electionEventID,
			Test:            true,
			FinishTime:      time.Now().UTC(),
			WriteIns:        writeIns,
		})
	}
	votesDir := filepath.Join(dataDir, "votes")
	if err := os.MkdirAll(votesDir, 0o755); err != nil {
		return nil, err
	}
	cfgs, err := config.NewCluster(sim.grp, writeIns+1, backend, dataDir, votesDir, sim.boxes)
	if err != nil {
		return nil, err
	}
	electionKey, err := cfgs[0].ElectionKey(sim.grp)
	if err != nil {
		return nil, err
	}
	src := &config.DirVotes{Dir: votesDir, Group: sim.grp}
	for _, b := range sim.boxes {
		cast, expected, err := castVotes(sim.grp, electionKey, sim.electionEventID, writeIns+1, votes)
		if err != nil {
			return nil, err
		}
		if err := writeVotes(src.Path(b.ID), cast); err != nil {
			return nil, err
		}
		sim.expected[b.ID] = expected
	}
	for i, cfg := range cfgs {
		n, err := config.Bootstrap(cfg, tally.WithLogger(log.Logger.With().Int("node", cfg.NodeID).Logger()))
		if err != nil {
			sim.close()
			return nil, err
		}
		sim.nodes[i] = n
		sim.mixers[i] = n.Service
	}
	return sim, nil
}

// serve every node on a local port and talk to it through a gRPC client
func (sim *simulation) serve(ctx context.Context) error {
	for i, n := range sim.nodes {
		lis, err := net.Listen("tcp", n.Config.ListenAddr)
		if err != nil {
			return err
		}
		go func(svc *tally.Service) {
			if err := protocol.Serve(ctx, lis, svc); err != nil {
				log.Error().Err(err).Msg("Node stopped serving")
			}
		}(n.Service)
		client, err := protocol.Dial(ctx, lis.Addr().String())
		if err != nil {
			return err
		}
		sim.mixers[i] = client
	}
	return nil
}

func (sim *simulation) close() {
	for i, n := range sim.nodes {
		if c, ok := sim.mixers[i].(*protocol.Client); ok {
			c.Close()
		}
		if n != nil {
			n.Close()
		}
	}
}

func (sim *simulation) commitments(ctx context.Context, ballotBoxID string) ([]*tally.VotesHashPayload, error) {
	out := make([]*tally.VotesHashPayload, tally.NodeCount)
	for i, m := range sim.mixers {
		p, err := m.VotesHash(ctx, sim.electionEventID, ballotBoxID)
		if err != nil {
			return nil, fmt.Errorf("votes hash of %s: %w", tally.NodeAlias(i+1), err)
		}
		out[i] = p
	}
	return out, nil
}

// mixBox passes one ballot box through nodes 1 to 4
func (sim *simulation) mixBox(ctx context.Context, ballotBoxID string) ([]*tally.ShufflePayload, error) {
	commitments, err := sim.commitments(ctx, ballotBoxID)
	if err != nil {
		return nil, err
	}
	var preceding []*tally.ShufflePayload
	for i, m := range sim.mixers {
		resp, err := m.MixDecrypt(ctx, &tally.MixDecryptRequest{
			ElectionEventID:          sim.electionEventID,
			BallotBoxID:              ballotBoxID,
			NodeID:                   i + 1,
			VotesHashes:              commitments,
			PrecedingShufflePayloads: preceding,
		})
		if err != nil {
			return nil, fmt.Errorf("ballot box %s at %s: %w", ballotBoxID, tally.NodeAlias(i+1), err)
		}
		preceding = append(preceding, resp.ShufflePayload)
	}
	return preceding, nil
}

func (sim *simulation) runConcurrent(ctx context.Context, concurrency int, bar *maybeProgress) (map[string][]*tally.ShufflePayload, error) {
	results := make([][]*tally.ShufflePayload, len(sim.boxes))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, b := range sim.boxes {
		i, id := i, b.ID
		g.Go(func() error {
			payloads, err := sim.mixBox(ctx, id)
			if err != nil {
				return err
			}
			results[i] = payloads
			bar.Increment()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := make(map[string][]*tally.ShufflePayload, len(sim.boxes))
	for i, b := range sim.boxes {
		out[b.ID] = results[i]
	}
	return out, nil
}

// runBatched hands every ballot box to node 1 in one batch, then node 2
// and so on.
func (sim *simulation) runBatched(ctx context.Context, bar *maybeProgress) (map[string][]*tally.ShufflePayload, error) {
	commitments := make(map[string][]*tally.VotesHashPayload, len(sim.boxes))
	out := make(map[string][]*tally.ShufflePayload, len(sim.boxes))
	for _, b := range sim.boxes {
		c, err := sim.commitments(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		commitments[b.ID] = c
	}
	for k, n := range sim.nodes {
		reqs := make([]*tally.MixDecryptRequest, len(sim.boxes))
		for i, b := range sim.boxes {
			reqs[i] = &tally.MixDecryptRequest{
				ElectionEventID:          sim.electionEventID,
				BallotBoxID:              b.ID,
				NodeID:                   k + 1,
				VotesHashes:              commitments[b.ID],
				PrecedingShufflePayloads: out[b.ID],
			}
		}
		resps, errs := n.Service.MixDecryptBatch(ctx, reqs)
		for i, b := range sim.boxes {
			if errs[i] != nil {
				return nil, fmt.Errorf("ballot box %s at %s: %w", b.ID, tally.NodeAlias(k+1), errs[i])
			}
			out[b.ID] = append(out[b.ID], resps[i].ShufflePayload)
			if k == tally.NodeCount-1 {
				bar.Increment()
			}
		}
	}
	return out, nil
}

// audit re-verifies every ballot box from the outside and checks the
// plaintexts against what was cast.
func (sim *simulation) audit(ctx context.Context, payloads map[string][]*tally.ShufflePayload) ([]*boxResult, error) {
	auditor := sim.nodes[tally.NodeCount-1].Service
	results := make([]*boxResult, 0, len(sim.boxes))
	for _, b := range sim.boxes {
		box, ic, err := auditor.InitialCiphertexts(ctx, sim.electionEventID, b.ID)
		if err != nil {
			return nil, err
		}
		cc, err := auditor.ChainContext(sim.electionEventID, b.ID, box.Delta())
		if err != nil {
			return nil, err
		}
		ps := payloads[b.ID]
		got := plaintextKeys(tally.CombineDecryptions(ps[len(ps)-1].Decryptions.Ciphertexts))
		audited, err := tally.Audit(cc, ic.Ciphertexts, ps, tally.WithLogger(log.Logger))
		if err != nil {
			log.Error().Err(err).Str("ballot_box", b.ID).Msg("Audit failed")
		}
		res := &boxResult{
			BallotBoxID: b.ID,
			Votes:       sim.votes,
			Plaintexts:  got,
			Audited:     err == nil && equal(plaintextKeys(audited), got),
			Matches:     equal(got, sim.expected[b.ID]),
		}
		if !res.Matches {
			log.Error().Str("ballot_box", b.ID).Msg("Decrypted plaintexts differ from the cast votes")
		}
		results = append(results, res)
	}
	return results, nil
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

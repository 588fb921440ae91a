package simulate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thechriswalker/go-ccmix/storage"
	"github.com/thechriswalker/go-ccmix/tally"
)

func TestSimulation(t *testing.T) {
	for _, tc := range []struct {
		name      string
		inProcess bool
		writeIns  int
		votes     int
		backend   string
	}{
		{"grpc", false, 0, 3, storage.BackendMemory},
		{"in process with write-ins", true, 1, 3, storage.BackendBolt},
		{"single vote is padded", false, 0, 1, storage.BackendSQLite},
	} {
		t.Run(tc.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			sim, err := setup(64, 2, tc.votes, tc.writeIns, tc.backend, t.TempDir())
			require.NoError(t, err)
			defer sim.close()

			bar := newProgress(len(sim.boxes), false)
			var ps map[string][]*tally.ShufflePayload
			if tc.inProcess {
				ps, err = sim.runBatched(ctx, bar)
			} else {
				require.NoError(t, sim.serve(ctx))
				ps, err = sim.runConcurrent(ctx, 2, bar)
			}
			require.NoError(t, err)

			results, err := sim.audit(ctx, ps)
			require.NoError(t, err)
			require.Len(t, results, 2)
			want := tc.votes
			if want < 2 {
				want = 2
			}
			for _, r := range results {
				assert.True(t, r.Audited, r.BallotBoxID)
				assert.True(t, r.Matches, r.BallotBoxID)
				assert.Len(t, r.Plaintexts, want)
			}
		})
	}
}

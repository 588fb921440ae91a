package tally

import (
	"fmt"
	"sync"
)

type ledgerKey struct {
	electionEventID string
	ballotBoxID     string
}

// Ledger collects the votes hash commitments of the four nodes and
// refuses to let mixing start unless they all agree.
type Ledger struct {
	signer SignatureService
	mu     sync.Mutex
	hashes map[ledgerKey]*[NodeCount]string
}

func NewLedger(signer SignatureService) *Ledger {
	return &Ledger{signer: signer, hashes: map[ledgerKey]*[NodeCount]string{}}
}

// RecordAndCheck records the hash committed by nodeID. Recording the same
// hash again is fine, a different one is a divergence.
func (l *Ledger) RecordAndCheck(nodeID int, electionEventID, ballotBoxID, hash string) error {
	if err := validateNodeID(nodeID); err != nil {
		return err
	}
	if hash == "" {
		return validationf("empty votes hash from node %d", nodeID)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	k := ledgerKey{electionEventID, ballotBoxID}
	row, ok := l.hashes[k]
	if !ok {
		row = new([NodeCount]string)
		l.hashes[k] = row
	}
	switch prev := row[nodeID-1]; prev {
	case "":
		row[nodeID-1] = hash
	case hash:
	default:
		return fmt.Errorf("%w: node %d committed to %s and then %s for ballot box %s",
			ErrVoteSetDivergence, nodeID, prev, hash, ballotBoxID)
	}
	return nil
}

// Hashes returns what has been recorded for the ballot box so far, empty
// strings for nodes not yet seen.
func (l *Ledger) Hashes(electionEventID, ballotBoxID string) [NodeCount]string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if row, ok := l.hashes[ledgerKey{electionEventID, ballotBoxID}]; ok {
		return *row
	}
	return [NodeCount]string{}
}

// AllHashesAgree is true when all four hashes are present and identical
func AllHashesAgree(hashes [NodeCount]string) bool {
	for _, h := range hashes {
		if h == "" || h != hashes[0] {
			return false
		}
	}
	return true
}

// CheckCommitments verifies the signed commitments of all four nodes and
// that they agree with the hash this node derived itself. A missing,
// duplicated or mislabelled commitment is a validation error: it shows
// a malformed request, not a node that saw different votes, and the
// request can be resent without halting the tally. A bad signature or a
// differing hash is a divergence.
func (l *Ledger) CheckCommitments(electionEventID, ballotBoxID string, commitments []*VotesHashPayload, ownHash string) error {
	if len(commitments) != NodeCount {
		return validationf("expected %d votes hash commitments, got %d", NodeCount, len(commitments))
	}
	var seen [NodeCount]bool
	for _, c := range commitments {
		if c == nil {
			return validationf("missing votes hash commitment")
		}
		if err := validateNodeID(c.NodeID); err != nil {
			return err
		}
		if seen[c.NodeID-1] {
			return validationf("duplicate votes hash commitment from node %d", c.NodeID)
		}
		seen[c.NodeID-1] = true
		if c.ElectionEventID != electionEventID || c.BallotBoxID != ballotBoxID {
			return validationf("votes hash commitment from node %d is for %s/%s", c.NodeID, c.ElectionEventID, c.BallotBoxID)
		}
	}
	var hashes [NodeCount]string
	for _, c := range commitments {
		if err := l.signer.Verify(NodeAlias(c.NodeID), c, c.Signature); err != nil {
			return fmt.Errorf("%w: commitment of node %d: %s", ErrVoteSetDivergence, c.NodeID, err)
		}
		hashes[c.NodeID-1] = c.VotesHash
	}
	if !AllHashesAgree(hashes) {
		return fmt.Errorf("%w: ballot box %s hashes %v", ErrVoteSetDivergence, ballotBoxID, hashes)
	}
	if hashes[0] != ownHash {
		return fmt.Errorf("%w: ballot box %s: nodes committed to %s, locally derived %s",
			ErrVoteSetDivergence, ballotBoxID, hashes[0], ownHash)
	}
	// only an agreeing set is recorded, it must match any set seen before
	for i, h := range hashes {
		if err := l.RecordAndCheck(i+1, electionEventID, ballotBoxID, h); err != nil {
			return err
		}
	}
	return nil
}

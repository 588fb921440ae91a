package tally

import (
	"context"
	"sync"
	"time"
)

// BallotBox is the tally-relevant metadata of one ballot box
type BallotBox struct {
	ID                 string             `json:"ballotBoxId"`
	ElectionEventID    string             `json:"electionEventId"`
	IsTest             bool               `json:"test"`
	FinishTime         time.Time          `json:"finishTime"`
	GracePeriod        time.Duration      `json:"gracePeriod"`
	PrimesMappingTable PrimesMappingTable `json:"primesMappingTable"`
}

// MixingAllowed is true for test ballot boxes, and for real ones once the
// grace period after the election has passed.
func (b *BallotBox) MixingAllowed(now time.Time) bool {
	return b.IsTest || now.After(b.FinishTime.Add(b.GracePeriod))
}

// Delta is the ciphertext width for votes in this ballot box
func (b *BallotBox) Delta() int {
	return b.PrimesMappingTable.GetDelta()
}

// Validate checks the identifiers of the ballot box
func (b *BallotBox) Validate() error {
	if err := ValidateID("ballot box id", b.ID); err != nil {
		return err
	}
	if err := ValidateID("election event id", b.ElectionEventID); err != nil {
		return err
	}
	if b.GracePeriod < 0 {
		return validationf("ballot box %s has a negative grace period", b.ID)
	}
	return nil
}

// PrimesMappingEntry maps one voting option to its encoding
type PrimesMappingEntry struct {
	ActualVotingOption  string `json:"actualVotingOption"`
	EncodedVotingOption int64  `json:"encodedVotingOption"`
	SemanticInformation string `json:"semanticInformation"`
	WriteIn             bool   `json:"writeIn,omitempty"`
}

// PrimesMappingTable is the voting option table of a ballot box
type PrimesMappingTable []PrimesMappingEntry

// GetDelta is one slot for the encoded choices plus one per write-in
func (t PrimesMappingTable) GetDelta() int {
	delta := 1
	for _, e := range t {
		if e.WriteIn {
			delta++
		}
	}
	return delta
}

// BallotBoxMetadata looks up ballot boxes by id
type BallotBoxMetadata interface {
	Lookup(ctx context.Context, ballotBoxID string) (*BallotBox, error)
}

// StaticBallotBoxes is a fixed set of ballot boxes
type StaticBallotBoxes map[string]*BallotBox

func (s StaticBallotBoxes) Lookup(ctx context.Context, ballotBoxID string) (*BallotBox, error) {
	b, ok := s[ballotBoxID]
	if !ok {
		return nil, validationf("unknown ballot box %s", ballotBoxID)
	}
	return b, nil
}

// VoteSource provides the confirmed votes of a ballot box
type VoteSource interface {
	ConfirmedVotes(ctx context.Context, electionEventID, ballotBoxID string) ([]*EncryptedVerifiableVote, error)
}

// StaticVotes holds confirmed votes in memory, keyed by ballot box id
type StaticVotes struct {
	mu    sync.RWMutex
	votes map[string][]*EncryptedVerifiableVote
}

func NewStaticVotes() *StaticVotes {
	return &StaticVotes{votes: map[string][]*EncryptedVerifiableVote{}}
}

// Add confirms votes in a ballot box
func (s *StaticVotes) Add(ballotBoxID string, votes ...*EncryptedVerifiableVote) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.votes[ballotBoxID] = append(s.votes[ballotBoxID], votes...)
}

func (s *StaticVotes) ConfirmedVotes(ctx context.Context, electionEventID, ballotBoxID string) ([]*EncryptedVerifiableVote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*EncryptedVerifiableVote, 0, len(s.votes[ballotBoxID]))
	for _, v := range s.votes[ballotBoxID] {
		if v.ElectionEventID == electionEventID {
			out = append(out, v)
		}
	}
	return out, nil
}

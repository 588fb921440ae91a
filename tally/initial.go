package tally

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
)

// minimum number of ciphertexts the mix-net accepts
const minCiphertexts = 2

// InitialCiphertexts is the input of node 1's shuffle and the commitment
// to the votes it was derived from. Votes holds those votes sorted by
// verification card id.
type InitialCiphertexts struct {
	VotesHash   string
	Votes       []*EncryptedVerifiableVote
	Ciphertexts elgamal.CiphertextVector
}

type jsonInitial struct {
	VotesHash   string                     `json:"votesHash"`
	Votes       []*EncryptedVerifiableVote `json:"confirmedVotes"`
	Ciphertexts elgamal.CiphertextVector   `json:"ciphertexts"`
}

// Encode the initial ciphertexts without the group
func (ic *InitialCiphertexts) Encode() ([]byte, error) {
	return json.Marshal(jsonInitial{VotesHash: ic.VotesHash, Votes: ic.Votes, Ciphertexts: ic.Ciphertexts})
}

// DecodeInitialCiphertexts reads stored initial ciphertexts for grp
func DecodeInitialCiphertexts(b []byte, grp *elgamal.Group) (*InitialCiphertexts, error) {
	var raw struct {
		VotesHash   string          `json:"votesHash"`
		Votes       json.RawMessage `json:"confirmedVotes"`
		Ciphertexts json.RawMessage `json:"ciphertexts"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, err
	}
	v, err := elgamal.DecodeCiphertextVector(raw.Ciphertexts, grp)
	if err != nil {
		return nil, err
	}
	if len(raw.Votes) == 0 {
		return nil, fmt.Errorf("initial ciphertexts: missing confirmed votes")
	}
	votes, err := DecodeVotes(raw.Votes, grp)
	if err != nil {
		return nil, err
	}
	if votes == nil {
		votes = []*EncryptedVerifiableVote{}
	}
	return &InitialCiphertexts{VotesHash: raw.VotesHash, Votes: votes, Ciphertexts: v}, nil
}

// Deriver turns the confirmed votes of a ballot box into the initial
// ciphertext vector, exactly once per ballot box.
type Deriver struct {
	store storage.Store
	opts  *options
}

func NewDeriver(store storage.Store, opts ...Option) *Deriver {
	return &Deriver{store: store, opts: applyOptions(opts)}
}

// Stored reads back the initial ciphertexts of the ballot box. It fails
// with storage.ErrNotFound if they were never derived.
func (d *Deriver) Stored(ctx context.Context, grp *elgamal.Group, electionEventID, ballotBoxID string) (*InitialCiphertexts, error) {
	rec, err := d.store.Get(ctx, initialKey(electionEventID, ballotBoxID))
	if err != nil {
		return nil, err
	}
	return DecodeInitialCiphertexts(rec.Data, grp)
}

func initialKey(electionEventID, ballotBoxID string) storage.Key {
	return storage.Key{
		Kind:            storage.KindInitialCiphertexts,
		ElectionEventID: electionEventID,
		BallotBoxID:     ballotBoxID,
	}
}

// Derive returns the initial ciphertexts of the ballot box. The first
// successful call stores its result, every later call returns the stored
// value even if the votes given differ.
func (d *Deriver) Derive(
	ctx context.Context,
	grp *elgamal.Group,
	electionEventID string,
	box *BallotBox,
	electionKey *elgamal.PublicKey,
	votes []*EncryptedVerifiableVote,
) (*InitialCiphertexts, error) {
	if box.ElectionEventID != electionEventID {
		return nil, validationf("ballot box %s belongs to election event %s, not %s", box.ID, box.ElectionEventID, electionEventID)
	}
	now := d.opts.now()
	if !box.MixingAllowed(now) {
		return nil, fmt.Errorf("%w: ballot box %s closes at %s with a grace period of %s (now %s)",
			ErrMixingNotAllowed, box.ID, box.FinishTime.Format(time.RFC3339), box.GracePeriod, now.Format(time.RFC3339))
	}
	key := initialKey(electionEventID, box.ID)
	if ic, err := d.Stored(ctx, grp, electionEventID, box.ID); err == nil {
		return ic, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("reading initial ciphertexts: %w", err)
	}

	ic, err := ComputeInitialCiphertexts(grp, electionEventID, box, electionKey, votes)
	if err != nil {
		return nil, err
	}
	data, err := ic.Encode()
	if err != nil {
		return nil, err
	}
	rec, created, err := storage.PutIfAbsent(ctx, d.store, key, data)
	if err != nil {
		return nil, fmt.Errorf("storing initial ciphertexts: %w", err)
	}
	if !created {
		d.opts.logger.Info().
			Str("electionEventId", electionEventID).
			Str("ballotBoxId", box.ID).
			Msg("Initial ciphertexts already stored, using stored value")
		return DecodeInitialCiphertexts(rec.Data, grp)
	}
	d.opts.logger.Info().
		Str("electionEventId", electionEventID).
		Str("ballotBoxId", box.ID).
		Int("votes", len(votes)).
		Str("votesHash", ic.VotesHash).
		Msg("Initial ciphertexts derived")
	return ic, nil
}

// ComputeInitialCiphertexts is the pure part of Derive: it sorts the votes,
// hashes them and builds the ciphertext vector, padding with trivial
// encryptions of ones up to the mix-net minimum.
func ComputeInitialCiphertexts(
	grp *elgamal.Group,
	electionEventID string,
	box *BallotBox,
	electionKey *elgamal.PublicKey,
	votes []*EncryptedVerifiableVote,
) (*InitialCiphertexts, error) {
	delta := box.Delta()
	if electionKey == nil || !electionKey.Group.SameOrder(grp) {
		return nil, validationf("election public key is missing or from a group of different order")
	}
	if electionKey.Width() < delta {
		return nil, validationf("election public key width %d is smaller than delta %d", electionKey.Width(), delta)
	}
	pk, err := electionKey.Compress(delta)
	if err != nil {
		return nil, err
	}
	for _, v := range votes {
		if v.ElectionEventID != electionEventID {
			return nil, validationf("vote %s belongs to election event %s", v.VerificationCardID, v.ElectionEventID)
		}
		if err := v.Validate(grp); err != nil {
			return nil, err
		}
	}
	sorted, err := SortVotes(votes)
	if err != nil {
		return nil, err
	}
	ic := &InitialCiphertexts{
		VotesHash:   VotesHash(grp, electionEventID, box.ID, sorted),
		Votes:       sorted,
		Ciphertexts: make(elgamal.CiphertextVector, 0, len(sorted)+minCiphertexts),
	}
	for _, v := range sorted {
		ct := v.EncryptedVote
		switch {
		case ct.Width() < delta:
			return nil, fmt.Errorf("%w: vote %s has width %d, delta is %d", ErrMalformedCiphertexts, v.VerificationCardID, ct.Width(), delta)
		case ct.Width() > delta:
			if ct, err = ct.Compress(grp, delta); err != nil {
				return nil, err
			}
		default:
			ct = ct.Copy()
		}
		ic.Ciphertexts = append(ic.Ciphertexts, ct)
	}
	for len(ic.Ciphertexts) < minCiphertexts {
		// trivial encryption with randomness 1, identical on every node
		pad, err := pk.Encrypt(elgamal.Ones(delta), big.NewInt(1))
		if err != nil {
			return nil, err
		}
		ic.Ciphertexts = append(ic.Ciphertexts, pad)
	}
	return ic, nil
}

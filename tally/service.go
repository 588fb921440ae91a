package tally

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
)

// ServiceConfig is everything a node needs to answer mix-decrypt requests
type ServiceConfig struct {
	NodeID      int
	Group       *elgamal.Group
	Keys        *elgamal.KeyPair
	NodeKeys    [NodeCount]*elgamal.PublicKey
	Store       storage.Store
	Signer      SignatureService
	BallotBoxes BallotBoxMetadata
	Votes       VoteSource
}

// Service handles the requests of one control component node
type Service struct {
	cfg         ServiceConfig
	electionKey *elgamal.PublicKey
	deriver     *Deriver
	ledger      *Ledger
	chain       *MixDecryptChain
	opts        *options
}

// NewService checks the config and wires up the node
func NewService(cfg ServiceConfig, opts ...Option) (*Service, error) {
	if cfg.Group == nil {
		return nil, validationf("missing encryption group")
	}
	if cfg.Signer == nil || cfg.BallotBoxes == nil || cfg.Votes == nil {
		return nil, validationf("signer, ballot boxes and votes are all required")
	}
	for i, pk := range cfg.NodeKeys {
		if pk == nil {
			return nil, validationf("missing public key of node %d", i+1)
		}
	}
	electionKey, err := elgamal.CombinePublicKeys(cfg.NodeKeys[:]...)
	if err != nil {
		return nil, validationf("%s", err)
	}
	chain, err := NewMixDecryptChain(cfg.NodeID, cfg.Keys, cfg.Store, opts...)
	if err != nil {
		return nil, err
	}
	if !cfg.Keys.Public().Y.Equal(cfg.NodeKeys[cfg.NodeID-1].Y) {
		return nil, validationf("mixing key of node %d does not match its published key", cfg.NodeID)
	}
	return &Service{
		cfg:         cfg,
		electionKey: electionKey,
		deriver:     NewDeriver(cfg.Store, opts...),
		ledger:      NewLedger(cfg.Signer),
		chain:       chain,
		opts:        applyOptions(opts),
	}, nil
}

// NodeID is this node's position in the chain
func (s *Service) NodeID() int { return s.cfg.NodeID }

// Group is the encryption group the node works in
func (s *Service) Group() *elgamal.Group { return s.cfg.Group }

// ElectionKey is the product of the four node keys
func (s *Service) ElectionKey() *elgamal.PublicKey { return s.electionKey }

// Ledger holds the votes hashes this node has seen
func (s *Service) Ledger() *Ledger { return s.ledger }

func validateIDs(electionEventID, ballotBoxID string) error {
	if err := ValidateID("election event id", electionEventID); err != nil {
		return err
	}
	return ValidateID("ballot box id", ballotBoxID)
}

// InitialCiphertexts derives, or reads back, the initial ciphertexts of
// the ballot box.
func (s *Service) InitialCiphertexts(ctx context.Context, electionEventID, ballotBoxID string) (*BallotBox, *InitialCiphertexts, error) {
	if err := validateIDs(electionEventID, ballotBoxID); err != nil {
		return nil, nil, err
	}
	box, err := s.cfg.BallotBoxes.Lookup(ctx, ballotBoxID)
	if err != nil {
		return nil, nil, err
	}
	if err := box.Validate(); err != nil {
		return nil, nil, err
	}
	votes, err := s.cfg.Votes.ConfirmedVotes(ctx, electionEventID, ballotBoxID)
	if err != nil {
		return nil, nil, fmt.Errorf("loading confirmed votes: %w", err)
	}
	ic, err := s.deriver.Derive(ctx, s.cfg.Group, electionEventID, box, s.electionKey, votes)
	if err != nil {
		return nil, nil, err
	}
	return box, ic, nil
}

// VotesHash returns this node's signed commitment to the confirmed votes
func (s *Service) VotesHash(ctx context.Context, electionEventID, ballotBoxID string) (*VotesHashPayload, error) {
	_, ic, err := s.InitialCiphertexts(ctx, electionEventID, ballotBoxID)
	if err != nil {
		return nil, err
	}
	p := &VotesHashPayload{
		ElectionEventID: electionEventID,
		BallotBoxID:     ballotBoxID,
		NodeID:          s.cfg.NodeID,
		VotesHash:       ic.VotesHash,
	}
	if err := s.ledger.RecordAndCheck(s.cfg.NodeID, electionEventID, ballotBoxID, ic.VotesHash); err != nil {
		return nil, err
	}
	if p.Signature, err = s.cfg.Signer.Sign(p); err != nil {
		return nil, fmt.Errorf("signing votes hash: %w", err)
	}
	return p, nil
}

// ChainContext builds the context of this node for a ballot box
func (s *Service) ChainContext(electionEventID, ballotBoxID string, delta int) (*ChainContext, error) {
	return NewChainContext(s.cfg.Group, electionEventID, ballotBoxID, s.cfg.NodeID, delta, s.cfg.NodeKeys, s.electionKey)
}

// MixDecrypt verifies the nodes before this one, mixes and partially
// decrypts the ballot box and returns the signed payloads. A ballot box
// that was already mixed is replayed from storage.
func (s *Service) MixDecrypt(ctx context.Context, req *MixDecryptRequest) (*MixDecryptResponse, error) {
	if req == nil {
		return nil, validationf("missing request")
	}
	logger := s.opts.logger.With().
		Str("trace", xid.New().String()).
		Str("electionEventId", req.ElectionEventID).
		Str("ballotBoxId", req.BallotBoxID).
		Int("node", s.cfg.NodeID).
		Logger()
	resp, err := s.mixDecrypt(ctx, logger, req)
	if err != nil {
		s.logFailure(logger, err)
		return nil, err
	}
	return resp, nil
}

func (s *Service) logFailure(logger zerolog.Logger, err error) {
	if IsFatal(err) {
		logger.Error().Err(err).Bool("fatal", true).Msg("Tally of ballot box halted")
		return
	}
	logger.Warn().Err(err).Msg("Mix-decrypt request rejected")
}

func (s *Service) mixDecrypt(ctx context.Context, logger zerolog.Logger, req *MixDecryptRequest) (*MixDecryptResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.NodeID != s.cfg.NodeID {
		return nil, validationf("request is for node %d, this is node %d", req.NodeID, s.cfg.NodeID)
	}
	resp, err := s.Replay(ctx, req.ElectionEventID, req.BallotBoxID)
	if err == nil {
		logger.Info().Msg("Ballot box already mixed, replaying stored result")
		return resp, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	box, ic, err := s.InitialCiphertexts(ctx, req.ElectionEventID, req.BallotBoxID)
	if err != nil {
		return nil, err
	}
	if err := s.ledger.CheckCommitments(req.ElectionEventID, req.BallotBoxID, req.VotesHashes, ic.VotesHash); err != nil {
		return nil, err
	}
	for _, p := range req.PrecedingShufflePayloads {
		// out of range payloads are left for the chain to reject
		if p.NodeID < 1 || p.NodeID >= s.cfg.NodeID {
			continue
		}
		if err := s.cfg.Signer.Verify(NodeAlias(p.NodeID), p, p.Signature); err != nil {
			return nil, fmt.Errorf("%w: shuffle payload of node %d: %s", ErrInvalidProof, p.NodeID, err)
		}
	}
	cc, err := s.ChainContext(req.ElectionEventID, req.BallotBoxID, box.Delta())
	if err != nil {
		return nil, err
	}
	res, err := s.chain.Process(ctx, cc, ic.Ciphertexts, req.PrecedingShufflePayloads)
	if err != nil {
		return nil, err
	}
	logger.Info().Int("ciphertexts", len(ic.Ciphertexts)).Msg("Ballot box mixed and partially decrypted")
	return s.respond(req.ElectionEventID, req.BallotBoxID, ic.Votes, res)
}

// Replay rebuilds the response for a ballot box this node has already
// mixed. Only stored state is read, the vote source is not consulted.
// The payloads are signed afresh on every call.
func (s *Service) Replay(ctx context.Context, electionEventID, ballotBoxID string) (*MixDecryptResponse, error) {
	if err := validateIDs(electionEventID, ballotBoxID); err != nil {
		return nil, err
	}
	res, err := s.chain.Stored(ctx, electionEventID, ballotBoxID, s.cfg.Group)
	if err != nil {
		return nil, err
	}
	ic, err := s.deriver.Stored(ctx, s.cfg.Group, electionEventID, ballotBoxID)
	if err != nil {
		// a mix result is only ever stored after the initial ciphertexts
		return nil, fmt.Errorf("reading confirmed votes of mixed ballot box %s: %s", ballotBoxID, err)
	}
	return s.respond(electionEventID, ballotBoxID, ic.Votes, res)
}

func (s *Service) respond(electionEventID, ballotBoxID string, sorted []*EncryptedVerifiableVote, res *MixResult) (*MixDecryptResponse, error) {
	var err error
	bbp := &BallotBoxPayload{
		Group:           s.cfg.Group,
		ElectionEventID: electionEventID,
		BallotBoxID:     ballotBoxID,
		NodeID:          s.cfg.NodeID,
		ConfirmedVotes:  sorted,
	}
	if bbp.Signature, err = s.cfg.Signer.Sign(bbp); err != nil {
		return nil, fmt.Errorf("signing ballot box payload: %w", err)
	}
	sp := &ShufflePayload{
		Group:           s.cfg.Group,
		ElectionEventID: electionEventID,
		BallotBoxID:     ballotBoxID,
		NodeID:          s.cfg.NodeID,
		Shuffle:         res.Shuffle,
		Decryptions:     res.Decryptions,
	}
	if sp.Signature, err = s.cfg.Signer.Sign(sp); err != nil {
		return nil, fmt.Errorf("signing shuffle payload: %w", err)
	}
	return &MixDecryptResponse{BallotBoxPayload: bbp, ShufflePayload: sp}, nil
}

// MixDecryptBatch handles requests for independent ballot boxes
// concurrently. errs[i] is the error of reqs[i], one failing ballot box
// does not stop the others.
func (s *Service) MixDecryptBatch(ctx context.Context, reqs []*MixDecryptRequest) ([]*MixDecryptResponse, []error) {
	resps := make([]*MixDecryptResponse, len(reqs))
	errs := make([]error, len(reqs))
	var g errgroup.Group
	g.SetLimit(s.opts.concurrency)
	for i := range reqs {
		i := i
		g.Go(func() error {
			resps[i], errs[i] = s.MixDecrypt(ctx, reqs[i])
			return nil
		})
	}
	g.Wait()
	return resps, errs
}

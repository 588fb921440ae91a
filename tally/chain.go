package tally

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
	"github.com/thechriswalker/go-ccmix/storage"
)

// State of one node's mix-decrypt run for a ballot box
type State uint8

const (
	AwaitingPredecessors State = iota
	Verified
	Mixing
	Persisted
)

func (s State) String() string {
	switch s {
	case AwaitingPredecessors:
		return "AwaitingPredecessors"
	case Verified:
		return "Verified"
	case Mixing:
		return "Mixing"
	case Persisted:
		return "Persisted"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Transition is passed to the observer on every state change
type Transition struct {
	ElectionEventID string
	BallotBoxID     string
	NodeID          int
	From, To        State
}

// MixDecryptChain is one node's link in the chain: it verifies the work of
// the nodes before it, shuffles and partially decrypts, and persists the
// result exactly once.
type MixDecryptChain struct {
	nodeID int
	keys   *elgamal.KeyPair
	store  storage.Store
	opts   *options
}

// NewMixDecryptChain creates the chain for node nodeID with its mixing key
// pair. The key pair may be wider than any delta it is used with.
func NewMixDecryptChain(nodeID int, keys *elgamal.KeyPair, store storage.Store, opts ...Option) (*MixDecryptChain, error) {
	if err := validateNodeID(nodeID); err != nil {
		return nil, err
	}
	if keys == nil || keys.Secret() == nil {
		return nil, validationf("node %d: missing mixing key pair", nodeID)
	}
	if store == nil {
		return nil, validationf("node %d: missing store", nodeID)
	}
	return &MixDecryptChain{nodeID: nodeID, keys: keys, store: store, opts: applyOptions(opts)}, nil
}

func (c *MixDecryptChain) NodeID() int {
	return c.nodeID
}

func (c *MixDecryptChain) initialState() State {
	if c.nodeID == 1 {
		return Verified
	}
	return AwaitingPredecessors
}

func mixKey(electionEventID, ballotBoxID string, nodeID int) storage.Key {
	return storage.Key{
		Kind:            storage.KindMixResult,
		ElectionEventID: electionEventID,
		BallotBoxID:     ballotBoxID,
		NodeID:          nodeID,
	}
}

// Stored returns the persisted result for the ballot box, or ErrNotFound.
func (c *MixDecryptChain) Stored(ctx context.Context, electionEventID, ballotBoxID string, grp *elgamal.Group) (*MixResult, error) {
	rec, err := c.store.Get(ctx, mixKey(electionEventID, ballotBoxID, c.nodeID))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: node %d has no result for ballot box %s", ErrNotFound, c.nodeID, ballotBoxID)
	}
	if err != nil {
		return nil, fmt.Errorf("reading mix result: %w", err)
	}
	res, err := DecodeMixResult(rec.Data, grp)
	if err != nil {
		return nil, fmt.Errorf("decoding stored mix result for ballot box %s: %w", ballotBoxID, err)
	}
	return res, nil
}

// State reports where this node is for the ballot box, as far as can be
// seen from storage.
func (c *MixDecryptChain) State(ctx context.Context, electionEventID, ballotBoxID string) (State, error) {
	_, err := c.store.Get(ctx, mixKey(electionEventID, ballotBoxID, c.nodeID))
	switch {
	case err == nil:
		return Persisted, nil
	case errors.Is(err, storage.ErrNotFound):
		return c.initialState(), nil
	}
	return c.initialState(), err
}

func (c *MixDecryptChain) transition(cc *ChainContext, state *State, to State) {
	from := *state
	*state = to
	c.opts.logger.Debug().
		Str("electionEventId", cc.ElectionEventID()).
		Str("ballotBoxId", cc.BallotBoxID()).
		Int("node", c.nodeID).
		Str("from", from.String()).
		Str("to", to.String()).
		Msg("Chain state transition")
	if c.opts.observer != nil {
		c.opts.observer(Transition{
			ElectionEventID: cc.ElectionEventID(),
			BallotBoxID:     cc.BallotBoxID(),
			NodeID:          c.nodeID,
			From:            from,
			To:              to,
		})
	}
}

func (c *MixDecryptChain) checkContext(cc *ChainContext) error {
	if cc == nil {
		return validationf("missing chain context")
	}
	if cc.NodeID() != c.nodeID {
		return validationf("context is for node %d, this is node %d", cc.NodeID(), c.nodeID)
	}
	return nil
}

// Process runs verify, mix and persist for the ballot box, or returns the
// persisted result if there is one. Node 1 never verifies. When two calls
// race, both return the result that was stored first.
func (c *MixDecryptChain) Process(ctx context.Context, cc *ChainContext, initial elgamal.CiphertextVector, preceding []*ShufflePayload) (*MixResult, error) {
	if err := c.checkContext(cc); err != nil {
		return nil, err
	}
	stored, err := c.Stored(ctx, cc.ElectionEventID(), cc.BallotBoxID(), cc.Group())
	if err == nil {
		return stored, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	state := c.initialState()
	input := initial
	if c.nodeID == 1 {
		if len(preceding) != 0 {
			return nil, fmt.Errorf("%w: node 1 expects no shuffle payloads, got %d", ErrWrongPayloadCount, len(preceding))
		}
		if err := cc.checkVector(initial); err != nil {
			return nil, err
		}
	} else {
		if input, err = c.Verify(cc, preceding, initial); err != nil {
			return nil, err
		}
		c.transition(cc, &state, Verified)
	}

	res, err := c.Mix(cc, input)
	if err != nil {
		return nil, err
	}
	c.transition(cc, &state, Mixing)

	data, err := json.Marshal(res)
	if err != nil {
		return nil, err
	}
	rec, created, err := storage.PutIfAbsent(ctx, c.store, mixKey(cc.ElectionEventID(), cc.BallotBoxID(), c.nodeID), data)
	if err != nil {
		return nil, fmt.Errorf("persisting mix result: %w", err)
	}
	if !created {
		c.opts.logger.Info().
			Str("electionEventId", cc.ElectionEventID()).
			Str("ballotBoxId", cc.BallotBoxID()).
			Int("node", c.nodeID).
			Msg("Mix result already persisted by a concurrent run, using stored value")
		if res, err = DecodeMixResult(rec.Data, cc.Group()); err != nil {
			return nil, err
		}
	}
	c.transition(cc, &state, Persisted)
	return res, nil
}

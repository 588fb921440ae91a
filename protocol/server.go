package protocol

import (
	"context"
	"net"

	"github.com/rs/zerolog/log"
	"google.golang.org/grpc"
	"google.golang.org/grpc/peer"

	"github.com/thechriswalker/go-ccmix/tally"
)

// Mixer is what a node offers to the other nodes and to the orchestrator.
// *tally.Service and *Client both implement it.
type Mixer interface {
	MixDecrypt(ctx context.Context, req *tally.MixDecryptRequest) (*tally.MixDecryptResponse, error)
	Replay(ctx context.Context, electionEventID, ballotBoxID string) (*tally.MixDecryptResponse, error)
	VotesHash(ctx context.Context, electionEventID, ballotBoxID string) (*tally.VotesHashPayload, error)
}

var _ Mixer = (*tally.Service)(nil)

// Server is the gRPC face of a node's Mixer
type Server struct {
	api Mixer
}

var _ mixDecryptServer = (*Server)(nil)

func NewServer(api Mixer) *Server {
	return &Server{api: api}
}

// Register the server with a grpc.Server
func (s *Server) Register(gs *grpc.Server) {
	gs.RegisterService(&serviceDesc, s)
}

func (s *Server) seenPeer(ctx context.Context, method string) {
	if client, ok := peer.FromContext(ctx); ok {
		log.Debug().Str("peer", client.Addr.String()).Str("method", method).Msg("Request from peer")
	}
}

func (s *Server) MixDecrypt(ctx context.Context, req *tally.MixDecryptRequest) (*tally.MixDecryptResponse, error) {
	s.seenPeer(ctx, "MixDecrypt")
	resp, err := s.api.MixDecrypt(ctx, req)
	return resp, toStatus(err)
}

func (s *Server) Replay(ctx context.Context, ref *BallotBoxRef) (*tally.MixDecryptResponse, error) {
	s.seenPeer(ctx, "Replay")
	resp, err := s.api.Replay(ctx, ref.ElectionEventID, ref.BallotBoxID)
	return resp, toStatus(err)
}

func (s *Server) VotesHash(ctx context.Context, ref *BallotBoxRef) (*tally.VotesHashPayload, error) {
	s.seenPeer(ctx, "VotesHash")
	p, err := s.api.VotesHash(ctx, ref.ElectionEventID, ref.BallotBoxID)
	return p, toStatus(err)
}

// Serve the api on lis until ctx is done
func Serve(ctx context.Context, lis net.Listener, api Mixer, opts ...grpc.ServerOption) error {
	gs := grpc.NewServer(opts...)
	NewServer(api).Register(gs)
	go func() {
		<-ctx.Done()
		gs.GracefulStop()
	}()
	log.Info().Str("addr", lis.Addr().String()).Msg("Serving mix-decrypt requests")
	if err := gs.Serve(lis); err != nil && err != grpc.ErrServerStopped {
		return err
	}
	return nil
}

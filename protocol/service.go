package protocol

import (
	"context"

	"google.golang.org/grpc"

	"github.com/thechriswalker/go-ccmix/tally"
)

const serviceName = "ccmix.v1.MixDecrypt"

// BallotBoxRef names a ballot box in Replay and VotesHash calls
type BallotBoxRef struct {
	ElectionEventID string `json:"electionEventId"`
	BallotBoxID     string `json:"ballotBoxId"`
}

// mixDecryptServer is the handler type of the service descriptor
type mixDecryptServer interface {
	MixDecrypt(context.Context, *tally.MixDecryptRequest) (*tally.MixDecryptResponse, error)
	Replay(context.Context, *BallotBoxRef) (*tally.MixDecryptResponse, error)
	VotesHash(context.Context, *BallotBoxRef) (*tally.VotesHashPayload, error)
}

func mixDecryptHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(tally.MixDecryptRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(mixDecryptServer).MixDecrypt(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/MixDecrypt"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(mixDecryptServer).MixDecrypt(ctx, req.(*tally.MixDecryptRequest))
	})
}

func replayHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BallotBoxRef)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(mixDecryptServer).Replay(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/Replay"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(mixDecryptServer).Replay(ctx, req.(*BallotBoxRef))
	})
}

func votesHashHandler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(BallotBoxRef)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(mixDecryptServer).VotesHash(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/VotesHash"}
	return interceptor(ctx, in, info, func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(mixDecryptServer).VotesHash(ctx, req.(*BallotBoxRef))
	})
}

var serviceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*mixDecryptServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "MixDecrypt", Handler: mixDecryptHandler},
		{MethodName: "Replay", Handler: replayHandler},
		{MethodName: "VotesHash", Handler: votesHashHandler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "ccmix/v1",
}

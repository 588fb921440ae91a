package protocol

import (
	"context"

	"google.golang.org/grpc"

	"github.com/thechriswalker/go-ccmix/tally"
)

// Client calls a remote node
type Client struct {
	conn *grpc.ClientConn
}

var _ Mixer = (*Client)(nil)

// Dial connects to the node at addr. The connection is insecure unless
// options say otherwise.
func Dial(ctx context.Context, addr string, opts ...grpc.DialOption) (*Client, error) {
	opts = append([]grpc.DialOption{
		grpc.WithInsecure(),
		grpc.WithDefaultCallOptions(grpc.CallContentSubtype(CodecName)),
	}, opts...)
	conn, err := grpc.DialContext(ctx, addr, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) invoke(ctx context.Context, method string, in, out interface{}) error {
	return fromStatus(c.conn.Invoke(ctx, "/"+serviceName+"/"+method, in, out))
}

func (c *Client) MixDecrypt(ctx context.Context, req *tally.MixDecryptRequest) (*tally.MixDecryptResponse, error) {
	out := new(tally.MixDecryptResponse)
	if err := c.invoke(ctx, "MixDecrypt", req, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Replay(ctx context.Context, electionEventID, ballotBoxID string) (*tally.MixDecryptResponse, error) {
	out := new(tally.MixDecryptResponse)
	if err := c.invoke(ctx, "Replay", &BallotBoxRef{ElectionEventID: electionEventID, BallotBoxID: ballotBoxID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VotesHash(ctx context.Context, electionEventID, ballotBoxID string) (*tally.VotesHashPayload, error) {
	out := new(tally.VotesHashPayload)
	if err := c.invoke(ctx, "VotesHash", &BallotBoxRef{ElectionEventID: electionEventID, BallotBoxID: ballotBoxID}, out); err != nil {
		return nil, err
	}
	return out, nil
}

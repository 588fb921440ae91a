package protocol

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/thechriswalker/go-ccmix/tally"
)

var codeErrors = []struct {
	err  error
	code codes.Code
}{
	// most specific first
	{tally.ErrWrongPayloadCount, codes.InvalidArgument},
	{tally.ErrPayloadMismatch, codes.InvalidArgument},
	{tally.ErrMalformedCiphertexts, codes.InvalidArgument},
	{tally.ErrValidation, codes.InvalidArgument},
	{tally.ErrMixingNotAllowed, codes.FailedPrecondition},
	{tally.ErrNotFound, codes.NotFound},
	{tally.ErrVoteSetDivergence, codes.Aborted},
	{tally.ErrInvalidProof, codes.Aborted},
}

// toStatus turns a tally error into a gRPC status. The message always
// starts with the sentinel's text so the client can recover it.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	for _, ce := range codeErrors {
		if errors.Is(err, ce.err) {
			msg := err.Error()
			if !strings.HasPrefix(msg, ce.err.Error()) {
				msg = ce.err.Error() + ": " + msg
			}
			return status.Error(ce.code, msg)
		}
	}
	return status.Error(codes.Internal, err.Error())
}

// fromStatus maps a gRPC status back onto the tally sentinels
func fromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}
	msg := st.Message()
	for _, ce := range codeErrors {
		if ce.code == st.Code() && strings.HasPrefix(msg, ce.err.Error()) {
			return fmt.Errorf("%w%s", ce.err, msg[len(ce.err.Error()):])
		}
	}
	switch st.Code() {
	case codes.InvalidArgument:
		return fmt.Errorf("%w: %s", tally.ErrValidation, msg)
	case codes.FailedPrecondition:
		return fmt.Errorf("%w: %s", tally.ErrMixingNotAllowed, msg)
	case codes.NotFound:
		return fmt.Errorf("%w: %s", tally.ErrNotFound, msg)
	}
	return err
}

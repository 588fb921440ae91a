package tally

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation covers malformed or missing identifiers, widths and
	// counts. It is raised before any cryptographic work.
	ErrValidation = errors.New("validation failed")

	ErrWrongPayloadCount    = fmt.Errorf("%w: wrong shuffle payload count", ErrValidation)
	ErrPayloadMismatch      = fmt.Errorf("%w: shuffle payload context mismatch", ErrValidation)
	ErrMalformedCiphertexts = fmt.Errorf("%w: malformed ciphertexts", ErrValidation)

	// ErrMixingNotAllowed means the ballot box is not yet eligible, retry
	// later.
	ErrMixingNotAllowed = errors.New("mixing not allowed")

	// ErrVoteSetDivergence means the nodes disagree on the confirmed votes.
	ErrVoteSetDivergence = errors.New("vote set divergence")

	// ErrInvalidProof means a shuffle argument or decryption proof failed.
	ErrInvalidProof = errors.New("invalid proof")

	// ErrNotFound means there is nothing stored to replay
	ErrNotFound = errors.New("nothing to replay")
)

// IsFatal reports whether the error must halt the tally of its ballot box.
func IsFatal(err error) bool {
	return errors.Is(err, ErrVoteSetDivergence) || errors.Is(err, ErrInvalidProof)
}

func validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrValidation}, args...)...)
}

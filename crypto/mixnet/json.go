package mixnet

import (
	"encoding/json"
	"fmt"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto"
	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

type jsonArgument struct {
	C      crypto.BigIntSlice `json:"c"`
	CHat   crypto.BigIntSlice `json:"cHat"`
	T      crypto.BigIntSlice `json:"t"` // t1, t2, t3, t4gamma
	T4Phis crypto.BigIntSlice `json:"t4phis"`
	THat   crypto.BigIntSlice `json:"tHat"`
	S      crypto.BigIntSlice `json:"s"` // s1, s2, s3, s4
	SHat   crypto.BigIntSlice `json:"sHat"`
	SPrime crypto.BigIntSlice `json:"sPrime"`
}

func (a *ShuffleArgument) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonArgument{
		C:      a.C,
		CHat:   a.CHat,
		T:      crypto.BigIntSlice{a.T1, a.T2, a.T3, a.T4Gamma},
		T4Phis: a.T4Phis,
		THat:   a.THat,
		S:      crypto.BigIntSlice{a.S1, a.S2, a.S3, a.S4},
		SHat:   a.SHat,
		SPrime: a.SPrime,
	})
}

func (a *ShuffleArgument) UnmarshalJSON(b []byte) error {
	var j jsonArgument
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	if len(j.T) != 4 || len(j.S) != 4 {
		return fmt.Errorf("ShuffleArgument: expected 4 commitments and 4 responses, got %d and %d", len(j.T), len(j.S))
	}
	*a = ShuffleArgument{
		C:       j.C,
		CHat:    j.CHat,
		T1:      j.T[0],
		T2:      j.T[1],
		T3:      j.T[2],
		T4Gamma: j.T[3],
		T4Phis:  j.T4Phis,
		THat:    j.THat,
		S1:      j.S[0],
		S2:      j.S[1],
		S3:      j.S[2],
		S4:      j.S[3],
		SHat:    j.SHat,
		SPrime:  j.SPrime,
	}
	return nil
}

type jsonShuffle struct {
	Ciphertexts elgamal.CiphertextVector `json:"ciphertexts"`
	Argument    *ShuffleArgument         `json:"shuffleArgument"`
}

func (vs *VerifiableShuffle) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonShuffle{Ciphertexts: vs.Ciphertexts, Argument: vs.Argument})
}

func (vs *VerifiableShuffle) UnmarshalJSON(b []byte) error {
	var j jsonShuffle
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	vs.Ciphertexts, vs.Argument = j.Ciphertexts, j.Argument
	return nil
}

// DecodeVerifiableShuffle reads a shuffle and checks that the ciphertexts
// and the argument values are in range for grp.
func DecodeVerifiableShuffle(b []byte, grp *elgamal.Group) (*VerifiableShuffle, error) {
	vs := new(VerifiableShuffle)
	if err := json.Unmarshal(b, vs); err != nil {
		return nil, err
	}
	if err := vs.Validate(grp); err != nil {
		return nil, err
	}
	return vs, nil
}

// Validate checks the shape and ranges of the shuffle against grp.
func (vs *VerifiableShuffle) Validate(grp *elgamal.Group) error {
	if vs.Argument == nil {
		return fmt.Errorf("%w: missing shuffle argument", ErrArgumentInvalid)
	}
	if err := vs.Ciphertexts.Validate(grp); err != nil {
		return err
	}
	width, _ := vs.Ciphertexts.Width()
	return vs.Argument.Validate(grp, len(vs.Ciphertexts), width)
}

// Values lists every integer in the argument in a fixed order. The
// pointers are shared with the argument.
func (a *ShuffleArgument) Values() []*big.Int {
	out := []*big.Int{a.T1, a.T2, a.T3, a.T4Gamma, a.S1, a.S2, a.S3, a.S4}
	for _, s := range []crypto.BigIntSlice{a.C, a.CHat, a.T4Phis, a.THat, a.SHat, a.SPrime} {
		out = append(out, s...)
	}
	return out
}

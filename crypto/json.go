package crypto

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	big "github.com/ncw/gmp"
)

// BigIntToJSON encodes the absolute value of x as unpadded base64url bytes.
func BigIntToJSON(x *big.Int) string {
	return base64.RawURLEncoding.EncodeToString(x.Bytes())
}

// BigIntFromJSON is the inverse of BigIntToJSON
func BigIntFromJSON(s string) (*big.Int, error) {
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("Expecting unpadded base64url encoded data, got: %q", s)
	}
	return new(big.Int).SetBytes(b), nil
}

// BigIntSlice is a slice of *big.Int that (un)marshals as a JSON array of
// base64url strings.
type BigIntSlice []*big.Int

func (s BigIntSlice) MarshalJSON() ([]byte, error) {
	strs := make([]string, len(s))
	for i, n := range s {
		if n == nil {
			return nil, fmt.Errorf("BigIntSlice: nil element at index %d", i)
		}
		strs[i] = BigIntToJSON(n)
	}
	return json.Marshal(strs)
}

func (s *BigIntSlice) UnmarshalJSON(b []byte) error {
	var strs []string
	if err := json.Unmarshal(b, &strs); err != nil {
		return err
	}
	bs := make(BigIntSlice, len(strs))
	for i := range strs {
		n, err := BigIntFromJSON(strs[i])
		if err != nil {
			return fmt.Errorf("BigIntSlice[%d]: %w", i, err)
		}
		bs[i] = n
	}
	*s = bs
	return nil
}

// Copy returns a deep copy of the slice.
func (s BigIntSlice) Copy() BigIntSlice {
	c := make(BigIntSlice, len(s))
	for i, n := range s {
		c[i] = new(big.Int).Set(n)
	}
	return c
}

// Equal reports whether both slices hold the same values in the same order.
func (s BigIntSlice) Equal(o BigIntSlice) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i].Cmp(o[i]) != 0 {
			return false
		}
	}
	return true
}

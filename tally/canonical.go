package tally

import (
	"bytes"
	"encoding/json"
	"io"
)

type canonicalJSON struct{}

// Encode the object in its canonical representation to the output stream given
func (c canonicalJSON) Encode(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "")
	enc.SetEscapeHTML(false)
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	var t interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	// keep numbers as written, float64 would lose large ids
	dec.UseNumber()
	if err := dec.Decode(&t); err != nil {
		return err
	}
	// t is map[string]interface instead of struct, so the keys will be sorted.
	return enc.Encode(t)
}

// Marshal returns the canonical encoding of v
func (c canonicalJSON) Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.Encode(&buf, v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// CanonicalJSON is the encoding payloads are signed in.
//
// The rules are: sort keys, minimal whitespace, a trailing newline
// and otherwise the Go json.Encoder rules. Big integers are base64url
// strings without padding.
var CanonicalJSON = canonicalJSON{}

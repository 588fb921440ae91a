package elgamal

import (
	"encoding/json"
	"fmt"

	"github.com/thechriswalker/go-ccmix/crypto"
)

// big.Ints are encoded as unpadded base64url strings of their big-endian
// bytes. None of the ciphertext or proof encodings embed the group: the
// bytes are only meaningful together with the group they were produced
// in, which the Decode* functions take explicitly and validate against.

type jsonGroup struct {
	P string `json:"p"`
	Q string `json:"q"`
	G string `json:"g"`
}

func (grp *Group) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonGroup{
		P: crypto.BigIntToJSON(grp.P),
		Q: crypto.BigIntToJSON(grp.Q),
		G: crypto.BigIntToJSON(grp.G),
	})
}

func (grp *Group) UnmarshalJSON(b []byte) (err error) {
	var j jsonGroup
	if err = json.Unmarshal(b, &j); err != nil {
		return err
	}
	if grp.P, err = crypto.BigIntFromJSON(j.P); err != nil {
		return err
	}
	if grp.Q, err = crypto.BigIntFromJSON(j.Q); err != nil {
		return err
	}
	if grp.G, err = crypto.BigIntFromJSON(j.G); err != nil {
		return err
	}
	// now validate that those params are actually valid
	return grp.Validate()
}

type jsonCiphertext struct {
	Gamma string             `json:"gamma"`
	Phis  crypto.BigIntSlice `json:"phis"`
}

func (ct *Ciphertext) MarshalJSON() ([]byte, error) {
	if ct.Gamma == nil {
		return nil, fmt.Errorf("Ciphertext: nil gamma")
	}
	return json.Marshal(jsonCiphertext{Gamma: crypto.BigIntToJSON(ct.Gamma), Phis: ct.Phis})
}

func (ct *Ciphertext) UnmarshalJSON(b []byte) (err error) {
	var j jsonCiphertext
	if err = json.Unmarshal(b, &j); err != nil {
		return err
	}
	if ct.Gamma, err = crypto.BigIntFromJSON(j.Gamma); err != nil {
		return err
	}
	ct.Phis = j.Phis
	return nil
}

type jsonProof struct {
	E string             `json:"e"`
	Z crypto.BigIntSlice `json:"z"`
}

func (p *DecryptionProof) MarshalJSON() ([]byte, error) {
	if p.E == nil {
		return nil, fmt.Errorf("DecryptionProof: nil challenge")
	}
	return json.Marshal(jsonProof{E: crypto.BigIntToJSON(p.E), Z: p.Z})
}

func (p *DecryptionProof) UnmarshalJSON(b []byte) (err error) {
	var j jsonProof
	if err = json.Unmarshal(b, &j); err != nil {
		return err
	}
	if p.E, err = crypto.BigIntFromJSON(j.E); err != nil {
		return err
	}
	p.Z = j.Z
	return nil
}

type jsonDecryptions struct {
	Ciphertexts CiphertextVector   `json:"ciphertexts"`
	Proofs      []*DecryptionProof `json:"decryptionProofs"`
}

func (vd *VerifiableDecryptions) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonDecryptions{Ciphertexts: vd.Ciphertexts, Proofs: vd.Proofs})
}

func (vd *VerifiableDecryptions) UnmarshalJSON(b []byte) error {
	var j jsonDecryptions
	if err := json.Unmarshal(b, &j); err != nil {
		return err
	}
	vd.Ciphertexts, vd.Proofs = j.Ciphertexts, j.Proofs
	return nil
}

type jsonSignature struct {
	C string `json:"c"`
	R string `json:"r"`
}

func (sig *Signature) MarshalJSON() ([]byte, error) {
	return json.Marshal(jsonSignature{C: crypto.BigIntToJSON(sig.C), R: crypto.BigIntToJSON(sig.R)})
}

func (sig *Signature) UnmarshalJSON(b []byte) (err error) {
	var j jsonSignature
	if err = json.Unmarshal(b, &j); err != nil {
		return err
	}
	if sig.C, err = crypto.BigIntFromJSON(j.C); err != nil {
		return err
	}
	sig.R, err = crypto.BigIntFromJSON(j.R)
	return err
}

// DecodeCiphertextVector reads a ciphertext vector and checks every
// element belongs to grp and all widths agree.
func DecodeCiphertextVector(b []byte, grp *Group) (CiphertextVector, error) {
	var v CiphertextVector
	if err := json.Unmarshal(b, &v); err != nil {
		return nil, err
	}
	if err := v.Validate(grp); err != nil {
		return nil, err
	}
	return v, nil
}

// DecodeVerifiableDecryptions reads decryptions and validates the
// ciphertexts and proof ranges against grp.
func DecodeVerifiableDecryptions(b []byte, grp *Group) (*VerifiableDecryptions, error) {
	vd := new(VerifiableDecryptions)
	if err := json.Unmarshal(b, vd); err != nil {
		return nil, err
	}
	if err := vd.Validate(grp); err != nil {
		return nil, err
	}
	return vd, nil
}

// Validate checks that every value in the decryptions is in range for grp.
func (vd *VerifiableDecryptions) Validate(grp *Group) error {
	if len(vd.Ciphertexts) != len(vd.Proofs) {
		return fmt.Errorf("VerifiableDecryptions: %d ciphertexts but %d proofs", len(vd.Ciphertexts), len(vd.Proofs))
	}
	if err := vd.Ciphertexts.Validate(grp); err != nil {
		return err
	}
	for i, p := range vd.Proofs {
		if p == nil || !grp.IsExponent(p.E) {
			return fmt.Errorf("proof[%d]: challenge out of range", i)
		}
		for j, z := range p.Z {
			if !grp.IsExponent(z) {
				return fmt.Errorf("proof[%d]: z[%d] out of range", i, j)
			}
		}
	}
	return nil
}

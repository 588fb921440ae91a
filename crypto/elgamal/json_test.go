package elgamal

import (
	"encoding/json"
	"testing"

	big "github.com/ncw/gmp"
)

func TestDecodeCiphertextVectorChecksGroup(t *testing.T) {
	grp := toyGroup()
	v := CiphertextVector{
		{Gamma: big.NewInt(3), Phis: ints(4)},
		{Gamma: big.NewInt(9), Phis: ints(2)},
	}
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	back, err := DecodeCiphertextVector(b, grp)
	if err != nil {
		t.Fatal(err)
	}
	if !back.Equal(v) {
		t.Fatal("decoded vector differs")
	}

	// 5 is not a quadratic residue mod 23
	bad := CiphertextVector{{Gamma: big.NewInt(5), Phis: ints(4)}}
	b, _ = json.Marshal(bad)
	if _, err := DecodeCiphertextVector(b, grp); err == nil {
		t.Fatal("non-member accepted")
	}

	mixed := CiphertextVector{{Gamma: big.NewInt(3), Phis: ints(4)}, {Gamma: big.NewInt(3), Phis: ints(4, 9)}}
	b, _ = json.Marshal(mixed)
	if _, err := DecodeCiphertextVector(b, grp); err == nil {
		t.Fatal("mixed widths accepted")
	}
}

func TestGroupJSONValidates(t *testing.T) {
	b, _ := json.Marshal(toyGroup())
	var grp Group
	if err := json.Unmarshal(b, &grp); err != nil {
		t.Fatal(err)
	}
	if !grp.Equal(toyGroup()) {
		t.Fatal("group changed through JSON")
	}
	b, _ = json.Marshal(&Group{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(5)})
	if err := json.Unmarshal(b, &grp); err == nil {
		t.Fatal("invalid group accepted")
	}
}

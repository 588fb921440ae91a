package mixnet

import (
	"encoding/json"
	"errors"
	"testing"

	big "github.com/ncw/gmp"

	"github.com/thechriswalker/go-ccmix/crypto/elgamal"
)

var testGroup = elgamal.GenerateGroup(128)

func encryptAll(t *testing.T, pk *elgamal.PublicKey, n int) elgamal.CiphertextVector {
	t.Helper()
	v := make(elgamal.CiphertextVector, n)
	for i := range v {
		msg := make([]*big.Int, pk.Width())
		for k := range msg {
			msg[k] = pk.GExp(big.NewInt(int64(10*i + k + 1)))
		}
		ct, err := pk.Encrypt(msg, nil)
		if err != nil {
			t.Fatal(err)
		}
		v[i] = ct
	}
	return v
}

func TestShuffleIsPermutationOfPlaintexts(t *testing.T) {
	kp := elgamal.GenerateKeyPair(testGroup, 2)
	in := encryptAll(t, kp.Public(), 5)
	s, err := GenShuffle(kp.Public(), in)
	if err != nil {
		t.Fatal(err)
	}
	for i, j := range s.Permutation {
		want, _ := kp.Secret().Decrypt(in[j])
		got, _ := kp.Secret().Decrypt(s.Ciphertexts[i])
		for k := range want {
			if want[k].Cmp(got[k]) != 0 {
				t.Fatalf("output %d does not decrypt to input %d", i, j)
			}
		}
		if s.Ciphertexts[i].Equal(in[j]) {
			t.Fatalf("output %d was not re-encrypted", i)
		}
	}
}

func TestShuffleArgument(t *testing.T) {
	for _, tc := range []struct{ n, width int }{{2, 1}, {3, 2}, {8, 3}} {
		kp := elgamal.GenerateKeyPair(testGroup, tc.width)
		in := encryptAll(t, kp.Public(), tc.n)
		vs, err := GenVerifiableShuffle(kp.Public(), in, "ee", "bb")
		if err != nil {
			t.Fatal(err)
		}
		if err := VerifyShuffle(kp.Public(), in, vs, "ee", "bb"); err != nil {
			t.Fatalf("n=%d width=%d: valid shuffle rejected: %s", tc.n, tc.width, err)
		}
		if err := VerifyShuffle(kp.Public(), in, vs, "ee", "other"); err == nil {
			t.Fatalf("n=%d width=%d: shuffle verified with different aux", tc.n, tc.width)
		}
	}
}

func TestShuffleArgumentRejectsWrongInput(t *testing.T) {
	kp := elgamal.GenerateKeyPair(testGroup, 1)
	in := encryptAll(t, kp.Public(), 4)
	vs, err := GenVerifiableShuffle(kp.Public(), in)
	if err != nil {
		t.Fatal(err)
	}
	other := encryptAll(t, kp.Public(), 4)
	if err := VerifyShuffle(kp.Public(), other, vs); err == nil {
		t.Fatal("shuffle verified against a different input")
	}
	otherKey := elgamal.GenerateKeyPair(testGroup, 1)
	if err := VerifyShuffle(otherKey.Public(), in, vs); err == nil {
		t.Fatal("shuffle verified under a different key")
	}
	// replacing an output with a fresh encryption of the same plaintext
	swapped := vs.Ciphertexts.Copy()
	swapped[0], _ = kp.Public().Reencrypt(swapped[0], nil)
	if err := VerifyShuffle(kp.Public(), in, &VerifiableShuffle{Ciphertexts: swapped, Argument: vs.Argument}); err == nil {
		t.Fatal("shuffle verified with a modified output")
	}
}

func TestShuffleArgumentTamperEveryValue(t *testing.T) {
	kp := elgamal.GenerateKeyPair(testGroup, 2)
	in := encryptAll(t, kp.Public(), 3)
	vs, err := GenVerifiableShuffle(kp.Public(), in)
	if err != nil {
		t.Fatal(err)
	}
	b, err := json.Marshal(vs)
	if err != nil {
		t.Fatal(err)
	}
	n := len(vs.Argument.Values())
	for i := 0; i < n; i++ {
		cp, err := DecodeVerifiableShuffle(b, testGroup)
		if err != nil {
			t.Fatal(err)
		}
		x := cp.Argument.Values()[i]
		x.Add(x, big.NewInt(1))
		if err := VerifyShuffle(kp.Public(), in, cp); !errors.Is(err, ErrArgumentInvalid) {
			t.Fatalf("tampered value %d: expected ErrArgumentInvalid, got %v", i, err)
		}
	}
}

func TestTooFewCiphertexts(t *testing.T) {
	kp := elgamal.GenerateKeyPair(testGroup, 1)
	in := encryptAll(t, kp.Public(), 1)
	if _, err := GenVerifiableShuffle(kp.Public(), in); !errors.Is(err, ErrTooFewCiphertexts) {
		t.Fatalf("expected ErrTooFewCiphertexts, got %v", err)
	}
}

func TestDecodeVerifiableShuffle(t *testing.T) {
	kp := elgamal.GenerateKeyPair(testGroup, 1)
	in := encryptAll(t, kp.Public(), 2)
	vs, _ := GenVerifiableShuffle(kp.Public(), in)
	b, _ := json.Marshal(vs)
	back, err := DecodeVerifiableShuffle(b, testGroup)
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyShuffle(kp.Public(), in, back); err != nil {
		t.Fatalf("decoded shuffle rejected: %s", err)
	}
	small := &elgamal.Group{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(3)}
	if _, err := DecodeVerifiableShuffle(b, small); err == nil {
		t.Fatal("shuffle decoded in the wrong group")
	}
}

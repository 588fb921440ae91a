package elgamal

import (
	"errors"
	"testing"

	big "github.com/ncw/gmp"
)

func TestDecryptionProof(t *testing.T) {
	grp := GenerateGroup(128)
	kp := GenerateKeyPair(grp, 2)
	msg := []*big.Int{grp.GExp(big.NewInt(7)), grp.GExp(big.NewInt(11))}
	ct, _ := kp.Public().Encrypt(msg, nil)
	out, _ := kp.Secret().PartialDecrypt(ct)

	proof, err := ProveDecryption(kp.Secret(), ct, out, "ee", "bb", "1")
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyDecryptionProof(kp.Public(), ct, out, proof, "ee", "bb", "1"); err != nil {
		t.Fatalf("valid proof rejected: %s", err)
	}
	if err := VerifyDecryptionProof(kp.Public(), ct, out, proof, "ee", "bb", "2"); err == nil {
		t.Fatal("proof verified under different auxiliary data")
	}

	other := GenerateKeyPair(grp, 2)
	if err := VerifyDecryptionProof(other.Public(), ct, out, proof, "ee", "bb", "1"); err == nil {
		t.Fatal("proof verified against a different key")
	}

	tampered := &DecryptionProof{E: new(big.Int).Add(proof.E, bigOne), Z: proof.Z}
	if err := VerifyDecryptionProof(kp.Public(), ct, out, tampered, "ee", "bb", "1"); !errors.Is(err, ErrProofInvalid) {
		t.Fatalf("tampered challenge: expected ErrProofInvalid, got %v", err)
	}
	for i := range proof.Z {
		z := proof.Z.Copy()
		z[i].Add(z[i], bigOne)
		z[i].Mod(z[i], grp.Q)
		tampered := &DecryptionProof{E: proof.E, Z: z}
		if err := VerifyDecryptionProof(kp.Public(), ct, out, tampered, "ee", "bb", "1"); !errors.Is(err, ErrProofInvalid) {
			t.Fatalf("tampered z[%d]: expected ErrProofInvalid, got %v", i, err)
		}
	}

	// claiming a different plaintext must fail
	wrong := out.Copy()
	wrong.Phis[0] = grp.Mul(wrong.Phis[0], grp.G)
	if err := VerifyDecryptionProof(kp.Public(), ct, wrong, proof, "ee", "bb", "1"); err == nil {
		t.Fatal("proof verified for wrong decryption")
	}
}

func TestVerifiableDecryptions(t *testing.T) {
	grp := smallGroup()
	kp := GenerateKeyPair(grp, 1)
	in := make(CiphertextVector, 3)
	for i := range in {
		in[i], _ = kp.Public().Encrypt(ints(int64(4*(i+1)*(i+1))), nil)
	}
	vd, err := GenVerifiableDecryptions(kp.Secret(), in, "aux")
	if err != nil {
		t.Fatal(err)
	}
	if err := VerifyDecryptions(kp.Public(), in, vd, "aux"); err != nil {
		t.Fatalf("valid decryptions rejected: %s", err)
	}
	short := &VerifiableDecryptions{Ciphertexts: vd.Ciphertexts[:2], Proofs: vd.Proofs[:2]}
	if err := VerifyDecryptions(kp.Public(), in, short, "aux"); err == nil {
		t.Fatal("short decryptions accepted")
	}
}

func TestSchnorrSignature(t *testing.T) {
	grp := smallGroup()
	kp := GenerateKeyPair(grp, 1)
	m := []byte("hello")
	sig, err := kp.Secret().CreateSignature(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := kp.Public().VerifySignature(sig, m); err != nil {
		t.Logf("Error: %s", err)
		t.Fatal("signature verification failed")
	}
	if err := kp.Public().VerifySignature(sig, []byte("hellp")); err == nil {
		t.Fatal("signature verified for a different message")
	}
	wide := GenerateKeyPair(grp, 2)
	if _, err := wide.Secret().CreateSignature(m); err == nil {
		t.Fatal("signing with a wide key should fail")
	}
}

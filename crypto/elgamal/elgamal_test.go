package elgamal

import (
	"testing"

	big "github.com/ncw/gmp"
)

// p = 2q + 1 with q = 11, g = 3 generates the quadratic residues.
func toyGroup() *Group {
	return &Group{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(3)}
}

// p = 2039, q = 1019, g = 4
func smallGroup() *Group {
	return &Group{P: big.NewInt(2039), Q: big.NewInt(1019), G: big.NewInt(4)}
}

func ints(xs ...int64) []*big.Int {
	out := make([]*big.Int, len(xs))
	for i, x := range xs {
		out[i] = big.NewInt(x)
	}
	return out
}

func TestGroupValidate(t *testing.T) {
	for _, grp := range []*Group{toyGroup(), smallGroup()} {
		if err := grp.Validate(); err != nil {
			t.Fatalf("%s should be valid: %s", grp, err)
		}
	}
	bad := []*Group{
		{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(1)},  // trivial generator
		{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(5)},  // not in the subgroup
		{P: big.NewInt(25), Q: big.NewInt(11), G: big.NewInt(3)},  // p not prime
		{P: big.NewInt(23), Q: big.NewInt(7), G: big.NewInt(3)},   // q does not divide p-1
		{P: big.NewInt(23), Q: big.NewInt(11), G: big.NewInt(23)}, // g out of range
	}
	for i, grp := range bad {
		if err := grp.Validate(); err == nil {
			t.Logf("bad group %d validated: %s", i, grp)
			t.Fail()
		}
	}
}

func TestMembership(t *testing.T) {
	grp := toyGroup()
	residues := map[int64]bool{1: true, 2: true, 3: true, 4: true, 6: true, 8: true, 9: true, 12: true, 13: true, 16: true, 18: true}
	for x := int64(0); x < 25; x++ {
		if got := grp.IsMember(big.NewInt(x)); got != residues[x] {
			t.Logf("IsMember(%d) = %v", x, got)
			t.Fail()
		}
	}
}

func TestEncryptDecrypt(t *testing.T) {
	grp := smallGroup()
	kp := GenerateKeyPair(grp, 3)
	msg := ints(16, 64, 256)
	ct, err := kp.Public().Encrypt(msg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := ct.Validate(grp); err != nil {
		t.Fatal(err)
	}
	pt, err := kp.Secret().Decrypt(ct)
	if err != nil {
		t.Fatal(err)
	}
	for i := range msg {
		if pt[i].Cmp(msg[i]) != 0 {
			t.Fatalf("slot %d: expected %s got %s", i, msg[i], pt[i])
		}
	}
	if _, err := kp.Public().Encrypt(ints(16), nil); err == nil {
		t.Fatal("encrypting a message of the wrong width should fail")
	}
}

func TestReencryptKeepsPlaintext(t *testing.T) {
	grp := smallGroup()
	kp := GenerateKeyPair(grp, 2)
	msg := ints(4, 16)
	ct, _ := kp.Public().Encrypt(msg, nil)
	re, err := kp.Public().Reencrypt(ct, big.NewInt(5))
	if err != nil {
		t.Fatal(err)
	}
	if re.Equal(ct) {
		t.Fatal("re-encryption did not change the ciphertext")
	}
	pt, _ := kp.Secret().Decrypt(re)
	for i := range msg {
		if pt[i].Cmp(msg[i]) != 0 {
			t.Fatalf("slot %d: expected %s got %s", i, msg[i], pt[i])
		}
	}
}

func TestSequentialPartialDecryption(t *testing.T) {
	grp := smallGroup()
	keys := make([]*KeyPair, 4)
	pks := make([]*PublicKey, 4)
	for i := range keys {
		keys[i] = GenerateKeyPair(grp, 2)
		pks[i] = keys[i].Public()
	}
	combined, err := CombinePublicKeys(pks...)
	if err != nil {
		t.Fatal(err)
	}
	msg := ints(9, 81)
	ct, _ := combined.Encrypt(msg, nil)
	for _, kp := range keys {
		ct, err = kp.Secret().PartialDecrypt(ct)
		if err != nil {
			t.Fatal(err)
		}
	}
	for i := range msg {
		if ct.Phis[i].Cmp(msg[i]) != 0 {
			t.Fatalf("slot %d: expected %s got %s", i, msg[i], ct.Phis[i])
		}
	}
}

func TestCompress(t *testing.T) {
	grp := smallGroup()
	kp := GenerateKeyPair(grp, 4)
	cpk, err := kp.Public().Compress(2)
	if err != nil {
		t.Fatal(err)
	}
	csk, err := kp.Secret().Compress(2)
	if err != nil {
		t.Fatal(err)
	}
	for i := range cpk.Y {
		if grp.GExp(csk.X[i]).Cmp(cpk.Y[i]) != 0 {
			t.Fatalf("compressed keys do not match at %d", i)
		}
	}
	if !csk.PublicKey.Equal(cpk) {
		t.Fatal("compressed private key carries a different public key")
	}

	// a wide ciphertext compresses to an encryption under the compressed key
	msg := ints(4, 16, 64, 256)
	ct, _ := kp.Public().Encrypt(msg, nil)
	cct, err := ct.Compress(grp, 2)
	if err != nil {
		t.Fatal(err)
	}
	pt, _ := csk.Decrypt(cct)
	if pt[0].Cmp(msg[0]) != 0 || pt[1].Cmp(grp.Mul(msg[1], msg[2], msg[3])) != 0 {
		t.Fatalf("unexpected compressed plaintext %v", pt)
	}

	if _, err := kp.Public().Compress(5); err == nil {
		t.Fatal("compressing to a larger width should fail")
	}
	if _, err := kp.Public().Compress(0); err == nil {
		t.Fatal("compressing to width 0 should fail")
	}
}

func TestDeriveKeyPairDeterministic(t *testing.T) {
	grp := smallGroup()
	a := DeriveKeyPair(grp, []byte("seed"), "mix", 3)
	b := DeriveKeyPair(grp, []byte("seed"), "mix", 3)
	c := DeriveKeyPair(grp, []byte("seed"), "sig", 3)
	if !a.Public().Equal(b.Public()) {
		t.Fatal("derivation is not deterministic")
	}
	if a.Public().Equal(c.Public()) {
		t.Fatal("labels should separate derived keys")
	}
}

func TestCombineRejectsMismatchedKeys(t *testing.T) {
	a := GenerateKeyPair(smallGroup(), 2).Public()
	b := GenerateKeyPair(smallGroup(), 3).Public()
	c := GenerateKeyPair(toyGroup(), 2).Public()
	if _, err := CombinePublicKeys(a, b); err == nil {
		t.Fatal("width mismatch should fail")
	}
	if _, err := CombinePublicKeys(a, c); err == nil {
		t.Fatal("group order mismatch should fail")
	}
}

func TestGenerators(t *testing.T) {
	grp := smallGroup()
	hs := grp.Generators("test", 10)
	again := grp.Generators("test", 10)
	for i, h := range hs {
		if !grp.IsMember(h) || h.Cmp(bigOne) == 0 {
			t.Fatalf("generator %d is not a non-trivial member: %s", i, h)
		}
		if h.Cmp(again[i]) != 0 {
			t.Fatalf("generator %d is not deterministic", i)
		}
	}
}

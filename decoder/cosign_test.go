package decoder

import "testing"

func TestCosignParseMatchesMultisigTemplate(t *testing.T) {
	primary := make([]byte, 20)
	cosigner := make([]byte, 20)
	for i := range primary {
		primary[i] = byte(i + 1)
		cosigner[i] = byte(i + 50)
	}
	script := []byte{byte(len(primary))}
	script = append(script, primary...)
	script = append(script, byte(len(cosigner)))
	script = append(script, cosigner...)
	script = append(script, opCheckMultiSig)

	tx := txoTestFixture(t, script, 1)
	res := Cosign{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	cd, ok := res.Data.(*CosignData)
	if !ok {
		t.Fatalf("Data type = %T, want *CosignData", res.Data)
	}
	if string(cd.PrimaryPubKeyHash) != string(primary) {
		t.Fatal("PrimaryPubKeyHash mismatch")
	}
	if string(cd.CosignerPubKeyHash) != string(cosigner) {
		t.Fatal("CosignerPubKeyHash mismatch")
	}
	if res.Owner == nil {
		t.Fatal("expected owner to be set")
	}
}

func TestCosignParseRejectsMissingMultisigOpcode(t *testing.T) {
	primary := make([]byte, 20)
	cosigner := make([]byte, 20)
	script := []byte{byte(len(primary))}
	script = append(script, primary...)
	script = append(script, byte(len(cosigner)))
	script = append(script, cosigner...)

	tx := txoTestFixture(t, script, 1)
	if res := (Cosign{}).Parse(tx); res != nil {
		t.Fatal("expected no match without a trailing OP_CHECKMULTISIG")
	}
}

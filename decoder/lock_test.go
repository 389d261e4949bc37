package decoder

import "testing"

func TestLockParseMatchesTimelockTemplate(t *testing.T) {
	pkh := make([]byte, 20)
	for i := range pkh {
		pkh[i] = byte(i + 1)
	}
	script := []byte{0x01, 0x64, opCheckLockTimeVerify, opDrop}
	script = append(script, p2pkhScript(pkh)...)

	tx := txoTestFixture(t, script, 5000)
	res := Lock{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	ld, ok := res.Data.(*LockData)
	if !ok {
		t.Fatalf("Data type = %T, want *LockData", res.Data)
	}
	if ld.UntilBlock != 100 {
		t.Fatalf("UntilBlock = %d, want 100", ld.UntilBlock)
	}
	if res.Basket == nil || *res.Basket != "lock" {
		t.Fatalf("Basket = %v, want lock", res.Basket)
	}
	if len(res.Tags) != 1 || res.Tags[0] != "lock:until:100" {
		t.Fatalf("Tags = %v, want [lock:until:100]", res.Tags)
	}
}

func TestLockParseRejectsShortScript(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x01, 0x64, opCheckLockTimeVerify}, 5000)
	if res := (Lock{}).Parse(tx); res != nil {
		t.Fatal("expected no match for a truncated script")
	}
}

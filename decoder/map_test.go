package decoder

import "testing"

func opReturnScript(pushes ...[]byte) []byte {
	b := []byte{0x6a}
	for _, p := range pushes {
		b = append(b, byte(len(p)))
		b = append(b, p...)
	}
	return b
}

func TestMapParseDecodesKeyValuePairs(t *testing.T) {
	script := opReturnScript(
		[]byte(bitcomMAP),
		[]byte("SET"),
		[]byte("app"),
		[]byte("myapp"),
		[]byte("type"),
		[]byte("post"),
	)
	tx := txoTestFixture(t, script, 0)

	res := Map{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	md, ok := res.Data.(*MapData)
	if !ok {
		t.Fatalf("Data type = %T, want *MapData", res.Data)
	}
	if md.Cmd != "SET" {
		t.Fatalf("Cmd = %q, want SET", md.Cmd)
	}
	if md.Data["app"] != "myapp" || md.Data["type"] != "post" {
		t.Fatalf("Data = %v, unexpected contents", md.Data)
	}
}

func TestMapParseRejectsNonMapFrame(t *testing.T) {
	script := opReturnScript([]byte("not-a-protocol"), []byte("x"))
	tx := txoTestFixture(t, script, 0)
	if res := (Map{}).Parse(tx); res != nil {
		t.Fatal("expected no match for a non-MAP frame")
	}
}

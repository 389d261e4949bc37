package decoder

import "testing"

func buildEnvelopeScript(contentType string, content []byte) []byte {
	b := []byte{opFalse, opIf, 0x03, 'o', 'r', 'd'}
	b = append(b, 0x01, 0xaa) // field tag marker (Code==1, value unused)
	b = append(b, byte(len(contentType)))
	b = append(b, []byte(contentType)...)
	b = append(b, opFalse) // body separator
	b = append(b, byte(len(content)))
	b = append(b, content...)
	b = append(b, opEndIf)
	return b
}

func TestInscriptionParseDecodesEnvelope(t *testing.T) {
	script := buildEnvelopeScript("text/plain", []byte("hello"))
	tx := txoTestFixture(t, script, 1)

	res := Inscription{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	id, ok := res.Data.(*InscriptionData)
	if !ok {
		t.Fatalf("Data type = %T, want *InscriptionData", res.Data)
	}
	if id.File == nil {
		t.Fatal("expected a decoded file")
	}
	if id.File.Type != "text/plain" {
		t.Fatalf("Type = %q, want text/plain", id.File.Type)
	}
	if string(id.File.Content) != "hello" {
		t.Fatalf("Content = %q, want hello", id.File.Content)
	}
	if id.File.Size != 5 {
		t.Fatalf("Size = %d, want 5", id.File.Size)
	}
}

func TestInscriptionParseRejectsNonOneSat(t *testing.T) {
	script := buildEnvelopeScript("text/plain", []byte("hello"))
	tx := txoTestFixture(t, script, 2)
	if res := (Inscription{}).Parse(tx); res != nil {
		t.Fatal("expected no match for a non-1-sat output")
	}
}

func TestInscriptionParseRejectsMissingEnvelope(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x6a, 0x01, 0x02}, 1)
	if res := (Inscription{}).Parse(tx); res != nil {
		t.Fatal("expected no match without an ordinal envelope")
	}
}

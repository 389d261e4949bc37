package decoder

import (
	"testing"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

func TestOpNSParseDecodesName(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x6a}, 1)
	tx.Data[InscriptionTag] = txo.IndexData{Data: &InscriptionData{
		File: &InscriptionFile{Type: opnsContentType, Content: []byte(`{"p":"opns","op":"register","name":"satoshi"}`)},
	}}

	res := OpNS{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	od, ok := res.Data.(*OpNSData)
	if !ok {
		t.Fatalf("Data type = %T, want *OpNSData", res.Data)
	}
	if od.Name != "satoshi" || od.Op != "register" {
		t.Fatalf("unexpected OpNSData: %+v", od)
	}
	if len(res.Tags) != 1 || res.Tags[0] != "name:satoshi" {
		t.Fatalf("Tags = %v, want [name:satoshi]", res.Tags)
	}
	if res.Basket == nil || *res.Basket != "opns" {
		t.Fatalf("Basket = %v, want opns", res.Basket)
	}
}

func TestOpNSParseRejectsWithoutInscription(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x6a}, 1)
	if res := (OpNS{}).Parse(tx); res != nil {
		t.Fatal("expected no match without an inscription payload")
	}
}

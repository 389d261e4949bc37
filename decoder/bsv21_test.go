package decoder

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

func bsv21InscriptionTxo(t *testing.T, payload string) *txo.Txo {
	tx := txoTestFixture(t, []byte{0x6a}, 1)
	tx.Data[InscriptionTag] = txo.IndexData{Data: &InscriptionData{
		File: &InscriptionFile{Type: bsv21ContentType, Content: []byte(payload)},
	}}
	return tx
}

func TestBsv21ParseTransfer(t *testing.T) {
	payload, err := json.Marshal(bsv21payload{P: "bsv-20", Op: "transfer", ID: "tok1", Amt: "42"})
	if err != nil {
		t.Fatal(err)
	}
	tx := bsv21InscriptionTxo(t, string(payload))

	res := Bsv21{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	bd, ok := res.Data.(*Bsv21Data)
	if !ok {
		t.Fatalf("Data type = %T, want *Bsv21Data", res.Data)
	}
	if bd.TokenID != "tok1" || bd.Amount != 42 || bd.Op != Bsv21OpTransfer {
		t.Fatalf("unexpected Bsv21Data: %+v", bd)
	}
	if res.Basket == nil || *res.Basket != "bsv21" {
		t.Fatalf("Basket = %v, want bsv21", res.Basket)
	}
}

func TestBsv21ParseDeployUsesOwnOutpointAsTokenID(t *testing.T) {
	payload, err := json.Marshal(bsv21payload{P: "bsv-20", Op: "deploy+mint", Amt: "1000"})
	if err != nil {
		t.Fatal(err)
	}
	tx := bsv21InscriptionTxo(t, string(payload))

	res := Bsv21{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	bd := res.Data.(*Bsv21Data)
	if bd.TokenID != tx.Outpoint.String() {
		t.Fatalf("TokenID = %q, want %q", bd.TokenID, tx.Outpoint.String())
	}
}

func TestBsv21ParseRejectsWithoutInscription(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x6a}, 1)
	if res := (Bsv21{}).Parse(tx); res != nil {
		t.Fatal("expected no match without an inscription payload")
	}
}

type fakeBsv21Client struct {
	txErr   error
	details *client.TokenDetails
}

func (f *fakeBsv21Client) Tx(ctx context.Context, tokenID, txid string) (*client.TokenTx, error) {
	if f.txErr != nil {
		return nil, f.txErr
	}
	return &client.TokenTx{}, nil
}

func (f *fakeBsv21Client) Details(ctx context.Context, tokenID string) (*client.TokenDetails, error) {
	return f.details, nil
}

func TestBsv21SummarizeMarksInvalidWithoutInputs(t *testing.T) {
	out := bsv21InscriptionTxo(t, `{"p":"bsv-20","op":"transfer","id":"tok1","amt":"10"}`)
	res := Bsv21{}.Parse(out)
	out.Data[Bsv21Tag] = txo.IndexData{Data: res.Data}

	ctx := &txo.ParseContext{Txos: []*txo.Txo{out}}
	b := Bsv21{Overlay: &fakeBsv21Client{details: &client.TokenDetails{Sym: "TOK", Dec: 8}}}
	if _, err := b.Summarize(context.Background(), ctx, false); err != nil {
		t.Fatal(err)
	}
	bd := out.Data[Bsv21Tag].Data.(*Bsv21Data)
	if bd.Status != Bsv21StatusInvalid {
		t.Fatalf("Status = %v, want invalid (no matching input)", bd.Status)
	}
	if bd.Sym != "TOK" || bd.Dec != 8 {
		t.Fatalf("expected token details to be merged, got %+v", bd)
	}
}

func TestBsv21SummarizeTagsGenesisOutputValid(t *testing.T) {
	out := bsv21InscriptionTxo(t, `{"p":"bsv-20","op":"deploy+mint","amt":"1000"}`)
	res := Bsv21{}.Parse(out)
	out.Data[Bsv21Tag] = txo.IndexData{Data: res.Data}

	ctx := &txo.ParseContext{Txos: []*txo.Txo{out}}
	b := Bsv21{}
	if _, err := b.Summarize(context.Background(), ctx, false); err != nil {
		t.Fatal(err)
	}
	entry := out.Data[Bsv21Tag]
	bd := entry.Data.(*Bsv21Data)
	if bd.Status != Bsv21StatusValid {
		t.Fatalf("Status = %v, want valid for a genesis output", bd.Status)
	}
	wantTags := []string{
		"id:" + bd.TokenID,
		"id:" + bd.TokenID + ":valid",
		"amt:1000",
	}
	if len(entry.Tags) != len(wantTags) {
		t.Fatalf("Tags = %v, want %v", entry.Tags, wantTags)
	}
	for i, tag := range wantTags {
		if entry.Tags[i] != tag {
			t.Fatalf("Tags[%d] = %q, want %q", i, entry.Tags[i], tag)
		}
	}
}

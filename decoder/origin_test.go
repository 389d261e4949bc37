package decoder

import (
	"context"
	"testing"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/outpoint"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

func TestOriginParseClaims1SatBasket(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x6a}, 1)
	res := Origin{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	if res.Basket == nil || *res.Basket != "1sat" {
		t.Fatalf("Basket = %v, want 1sat", res.Basket)
	}
}

func TestOriginParseRejectsNonOneSat(t *testing.T) {
	tx := txoTestFixture(t, []byte{0x6a}, 2)
	if res := (Origin{}).Parse(tx); res != nil {
		t.Fatal("expected no match for a non-1-sat output")
	}
}

type fakeOrdFS struct {
	meta    *client.Metadata
	metaErr error
	content *client.Content
}

func (f *fakeOrdFS) Metadata(ctx context.Context, op string) (*client.Metadata, error) {
	if f.metaErr != nil {
		return nil, f.metaErr
	}
	return f.meta, nil
}

func (f *fakeOrdFS) Fetch(ctx context.Context, op string) (*client.Content, error) {
	return f.content, nil
}

func TestOriginSummarizeInheritsOnTransfer(t *testing.T) {
	spendOp, err := outpoint.FromString("bb00000000000000000000000000000000000000000000000000000000000000_0")
	if err != nil {
		t.Fatal(err)
	}
	spend := txo.NewTxo(spendOp, nil, 1)

	out := txoTestFixture(t, []byte{0x6a}, 1)
	res := Origin{}.Parse(out)
	out.Data[OriginTag] = txo.IndexData{Data: res.Data}

	sourceOrigin := "cc00000000000000000000000000000000000000000000000000000000000000_0"
	ordfs := &fakeOrdFS{
		meta: &client.Metadata{
			Origin:        &sourceOrigin,
			Sequence:      5,
			ContentType:   "text/plain",
			ContentLength: 5,
			Map:           map[string]string{"app": "x"},
		},
		content: &client.Content{Body: []byte("hi")},
	}

	ctx := &txo.ParseContext{Txos: []*txo.Txo{out}, Spends: []*txo.Txo{spend}}
	o := Origin{OrdFS: ordfs}
	if _, err := o.Summarize(context.Background(), ctx, false); err != nil {
		t.Fatal(err)
	}

	od := out.Data[OriginTag].Data.(*OriginData)
	if !od.IsTransfer {
		t.Fatal("expected IsTransfer to be true")
	}
	if od.Outpoint != sourceOrigin {
		t.Fatalf("Outpoint = %q, want %q", od.Outpoint, sourceOrigin)
	}
	if od.Sequence != 6 {
		t.Fatalf("Sequence = %d, want 6", od.Sequence)
	}
	if od.Map["app"] != "x" {
		t.Fatalf("Map = %v, want inherited app=x", od.Map)
	}
	content := out.Data[OriginTag].Content
	if content == nil || *content != "hi" {
		t.Fatalf("Content = %v, want hi", content)
	}
}

// perOutpointOrdFS answers Metadata per-outpoint, letting a test make the
// source lookup succeed while a parent lookup 404s (or vice versa).
type perOutpointOrdFS struct {
	meta map[string]*client.Metadata
}

func (f *perOutpointOrdFS) Metadata(ctx context.Context, op string) (*client.Metadata, error) {
	if m, ok := f.meta[op]; ok {
		return m, nil
	}
	return nil, &client.HTTPError{Status: 404}
}

func (f *perOutpointOrdFS) Fetch(ctx context.Context, op string) (*client.Content, error) {
	return nil, &client.HTTPError{Status: 404}
}

func TestOriginSummarizeClearsParentOn404(t *testing.T) {
	spendOp, err := outpoint.FromString("bb00000000000000000000000000000000000000000000000000000000000000_0")
	if err != nil {
		t.Fatal(err)
	}
	spend := txo.NewTxo(spendOp, nil, 1)

	out := txoTestFixture(t, []byte{0x6a}, 1)
	res := Origin{}.Parse(out)
	out.Data[OriginTag] = txo.IndexData{Data: res.Data}

	var parentTxid [32]byte
	parentTxid[0] = 0xaa
	parentOutpoint := outpoint.FromPair(parentTxid, 3)
	parentBytes := append(append([]byte{}, parentTxid[:]...), 0, 0, 0, 3)
	out.Data[InscriptionTag] = txo.IndexData{Data: &InscriptionData{Parent: parentBytes}}

	sourceOrigin := "cc00000000000000000000000000000000000000000000000000000000000000_0"
	ordfs := &perOutpointOrdFS{
		meta: map[string]*client.Metadata{
			spend.Outpoint.String(): {
				Origin:        &sourceOrigin,
				Sequence:      5,
				ContentType:   "text/plain",
				ContentLength: 5,
			},
		},
	}

	ctx := &txo.ParseContext{Txos: []*txo.Txo{out}, Spends: []*txo.Txo{spend}}
	o := Origin{OrdFS: ordfs}
	if _, err := o.Summarize(context.Background(), ctx, false); err != nil {
		t.Fatal(err)
	}

	od := out.Data[OriginTag].Data.(*OriginData)
	if od.Parent != nil {
		t.Fatalf("Parent = %v, want nil after parent 404 (parent was %s)", *od.Parent, parentOutpoint)
	}
}

func TestOriginSummarizeNewOriginWithoutMatchingInput(t *testing.T) {
	out := txoTestFixture(t, []byte{0x6a}, 1)
	res := Origin{}.Parse(out)
	out.Data[OriginTag] = txo.IndexData{Data: res.Data}

	ctx := &txo.ParseContext{Txos: []*txo.Txo{out}}
	o := Origin{OrdFS: &fakeOrdFS{}}
	if _, err := o.Summarize(context.Background(), ctx, false); err != nil {
		t.Fatal(err)
	}
	od := out.Data[OriginTag].Data.(*OriginData)
	if od.IsTransfer {
		t.Fatal("expected a new origin, not a transfer")
	}
	if od.Outpoint != out.Outpoint.String() {
		t.Fatalf("Outpoint = %q, want own outpoint %q", od.Outpoint, out.Outpoint.String())
	}
}

package parser

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/go-sdk/chainhash"
	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

const testTxid = "aa00000000000000000000000000000000000000000000000000000000000000"

// fakeDecoder matches any output whose satoshis equal want, tagging it and
// putting it in a basket named after its tag.
type fakeDecoder struct {
	tag  string
	want uint64
}

func (f *fakeDecoder) Tag() string { return f.tag }

func (f *fakeDecoder) Parse(t *txo.Txo) *txo.ParseResult {
	if t.Satoshis != f.want {
		return nil
	}
	basket := f.tag
	return &txo.ParseResult{Data: f.tag, Basket: &basket, Tags: []string{f.tag}}
}

func (f *fakeDecoder) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	n := int64(len(ctx.Txos))
	return &txo.IndexSummary{Amount: &n}, nil
}

func buildTx(satoshisPerOutput ...uint64) *transaction.Transaction {
	tx := &transaction.Transaction{}
	for _, s := range satoshisPerOutput {
		sc := script.Script{0x6a}
		tx.Outputs = append(tx.Outputs, &transaction.TransactionOutput{Satoshis: s, LockingScript: &sc})
	}
	return tx
}

func TestParseBuildsTxosAndRunsDecoders(t *testing.T) {
	tx := buildTx(1, 5000)
	p := New([]txo.Decoder{&fakeDecoder{tag: "one-sat", want: 1}, &fakeDecoder{tag: "fund", want: 5000}}, nil)

	pctx, err := p.Parse(context.Background(), tx, testTxid, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(pctx.Txos) != 2 {
		t.Fatalf("len(Txos) = %d, want 2", len(pctx.Txos))
	}
	if pctx.Txos[0].Basket == nil || *pctx.Txos[0].Basket != "one-sat" {
		t.Fatalf("Txos[0].Basket = %v, want one-sat", pctx.Txos[0].Basket)
	}
	if pctx.Txos[1].Basket == nil || *pctx.Txos[1].Basket != "fund" {
		t.Fatalf("Txos[1].Basket = %v, want fund", pctx.Txos[1].Basket)
	}
	if pctx.Txos[0].Outpoint.String() != testTxid+"_0" {
		t.Fatalf("Outpoint = %q, want %q", pctx.Txos[0].Outpoint.String(), testTxid+"_0")
	}
}

func TestParseSummaryStoredPerDecoderTag(t *testing.T) {
	tx := buildTx(1)
	p := New([]txo.Decoder{&fakeDecoder{tag: "one-sat", want: 1}}, nil)

	pctx, err := p.Parse(context.Background(), tx, testTxid, false)
	if err != nil {
		t.Fatal(err)
	}
	summary, ok := pctx.Summary["one-sat"]
	if !ok {
		t.Fatal("expected a summary under tag one-sat")
	}
	if summary.Amount == nil || *summary.Amount != 1 {
		t.Fatalf("Amount = %v, want 1", summary.Amount)
	}
}

type fakeSourceFetcher struct {
	tx *transaction.Transaction
}

func (f *fakeSourceFetcher) FetchTransaction(ctx context.Context, txid string) (*transaction.Transaction, error) {
	return f.tx, nil
}

func TestParseHydratesSourceTransactionForSpends(t *testing.T) {
	var sourceHash chainhash.Hash // zero hash stands in for an arbitrary source txid

	sourceTx := buildTx(5000)
	tx := &transaction.Transaction{}
	tx.Inputs = []*transaction.TransactionInput{{SourceTXID: &sourceHash, SourceTxOutIndex: 0}}

	p := New([]txo.Decoder{&fakeDecoder{tag: "fund", want: 5000}}, &fakeSourceFetcher{tx: sourceTx})

	pctx, err := p.Parse(context.Background(), tx, testTxid, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(pctx.Spends) != 1 {
		t.Fatalf("len(Spends) = %d, want 1", len(pctx.Spends))
	}
	if pctx.Spends[0].Basket == nil || *pctx.Spends[0].Basket != "fund" {
		t.Fatalf("Spends[0].Basket = %v, want fund (hydrated source should have been parsed)", pctx.Spends[0].Basket)
	}
}

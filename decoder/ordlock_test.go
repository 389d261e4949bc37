package decoder

import (
	"context"
	"testing"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

func listingScript(sellerPKH []byte, price uint64) []byte {
	b := []byte{byte(len(sellerPKH))}
	b = append(b, sellerPKH...)
	priceBytes := make([]byte, 8)
	for i := range priceBytes {
		priceBytes[i] = byte(price >> (8 * i))
	}
	b = append(b, 0x08)
	b = append(b, priceBytes...)
	return b
}

func TestOrdLockParseFindsSellerAndPrice(t *testing.T) {
	seller := make([]byte, 20)
	for i := range seller {
		seller[i] = byte(i + 1)
	}
	tx := txoTestFixture(t, listingScript(seller, 1000), 1)

	res := OrdLock{}.Parse(tx)
	if res == nil {
		t.Fatal("expected a match")
	}
	ld, ok := res.Data.(*OrdLockData)
	if !ok {
		t.Fatalf("Data type = %T, want *OrdLockData", res.Data)
	}
	if ld.Price != 1000 || string(ld.SellerPubKeyHash) != string(seller) {
		t.Fatalf("unexpected OrdLockData: %+v", ld)
	}
	if res.Owner == nil {
		t.Fatal("expected owner to be set")
	}
}

func TestOrdLockSummarizePurchaseIncrementsDelta(t *testing.T) {
	seller := make([]byte, 20)
	for i := range seller {
		seller[i] = byte(i + 1)
	}
	listing := txoTestFixture(t, listingScript(seller, 1000), 1)
	res := OrdLock{}.Parse(listing)
	listing.Data[OrdLockTag] = txo.IndexData{Data: res.Data}

	sellerScript := script.Script(p2pkhScript(seller))
	paymentOut := &transaction.TransactionOutput{Satoshis: 1000, LockingScript: &sellerScript}
	tx := &transaction.Transaction{Outputs: []*transaction.TransactionOutput{paymentOut}}

	ctx := &txo.ParseContext{Tx: tx, Spends: []*txo.Txo{listing}}
	summary, err := OrdLock{}.Summarize(context.Background(), ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if summary == nil || summary.Amount == nil || *summary.Amount != 1 {
		t.Fatalf("summary = %+v, want Amount=1", summary)
	}
}

func TestOrdLockSummarizeNewListingDecrementsDelta(t *testing.T) {
	seller := make([]byte, 20)
	for i := range seller {
		seller[i] = byte(i + 1)
	}
	out := txoTestFixture(t, listingScript(seller, 1000), 1)
	res := OrdLock{}.Parse(out)
	out.Data[OrdLockTag] = txo.IndexData{Data: res.Data}

	ctx := &txo.ParseContext{Tx: &transaction.Transaction{}, Txos: []*txo.Txo{out}}
	summary, err := OrdLock{}.Summarize(context.Background(), ctx, false)
	if err != nil {
		t.Fatal(err)
	}
	if summary == nil || summary.Amount == nil || *summary.Amount != -1 {
		t.Fatalf("summary = %+v, want Amount=-1", summary)
	}
}

package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/b-open-io/1sat-wallet-toolbox/wallet"
)

func newTestWalletStore(t *testing.T) *WalletStore {
	t.Helper()
	s, err := NewWalletStore(filepath.Join(t.TempDir(), "wallet"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWalletStoreInsertAndFindTransaction(t *testing.T) {
	s := newTestWalletStore(t)
	ctx := context.Background()

	id, err := s.InsertTransaction(ctx, &wallet.TransactionRecord{Txid: "abc", Status: wallet.TxStatusCompleted})
	if err != nil {
		t.Fatal(err)
	}
	if id != 1 {
		t.Fatalf("id = %d, want 1", id)
	}

	txid := "abc"
	recs, err := s.FindTransactions(ctx, wallet.TransactionQuery{Txid: &txid})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Status != wallet.TxStatusCompleted {
		t.Fatalf("recs = %+v", recs)
	}

	none := "nope"
	recs, err = s.FindTransactions(ctx, wallet.TransactionQuery{Txid: &none})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 0 {
		t.Fatalf("recs = %+v, want none", recs)
	}
}

func TestWalletStoreInsertFindAndUpdateOutput(t *testing.T) {
	s := newTestWalletStore(t)
	ctx := context.Background()

	id, err := s.InsertOutput(ctx, &wallet.OutputRecord{
		Txid: "abc", Vout: 0, Outpoint: "abc_0", Satoshis: 1000, Spendable: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	op := "abc_0"
	recs, err := s.FindOutputs(ctx, wallet.OutputQuery{Outpoint: &op})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ID != id || !recs[0].Spendable {
		t.Fatalf("recs = %+v", recs)
	}

	spendable := false
	if err := s.UpdateOutput(ctx, id, wallet.OutputPatch{Spendable: &spendable}); err != nil {
		t.Fatal(err)
	}

	recs, err = s.FindOutputs(ctx, wallet.OutputQuery{Outpoint: &op})
	if err != nil {
		t.Fatal(err)
	}
	if recs[0].Spendable {
		t.Fatal("expected spendable=false after UpdateOutput")
	}
}

func TestWalletStoreFindOrInsertBasketIsIdempotent(t *testing.T) {
	s := newTestWalletStore(t)
	ctx := context.Background()

	id1, err := s.FindOrInsertOutputBasket(ctx, 1, "default")
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.FindOrInsertOutputBasket(ctx, 1, "default")
	if err != nil {
		t.Fatal(err)
	}
	if id1 != id2 {
		t.Fatalf("FindOrInsertOutputBasket not idempotent: %d != %d", id1, id2)
	}

	otherID, err := s.FindOrInsertOutputBasket(ctx, 1, "savings")
	if err != nil {
		t.Fatal(err)
	}
	if otherID == id1 {
		t.Fatal("expected a distinct basket id for a distinct name")
	}
}

func TestWalletStoreTagMapAndTransactionWrapper(t *testing.T) {
	s := newTestWalletStore(t)
	ctx := context.Background()

	tagID, err := s.FindOrInsertOutputTag(ctx, 1, "fund")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.FindOrInsertOutputTagMap(ctx, 5, tagID); err != nil {
		t.Fatal(err)
	}

	called := false
	if err := s.Transaction(ctx, func(ctx context.Context, tx wallet.Store) error {
		called = true
		if tx != wallet.Store(s) {
			t.Fatal("Transaction should hand back the same store")
		}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("Transaction did not invoke fn")
	}
}

package wallet

import (
	"context"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
)

// beefClient is the slice of *client.Client that SourceFetcher needs;
// narrowed to a local interface so tests can supply a fake without standing
// up an HTTP server.
type beefClient interface {
	RawTx(ctx context.Context, txid string) ([]byte, error)
}

// SourceFetcher implements parser.SourceFetcher against wallet storage
// first, falling back to the indexer's beef endpoint — the "storage first,
// else beef" rule of spec §4.3 step 1. Grounded on indexer/utxo.go's
// storage-then-network fallback for resolving a referenced transaction.
type SourceFetcher struct {
	Store Store
	Beef  beefClient
}

// NewSourceFetcher builds a SourceFetcher over store and c's beef service.
func NewSourceFetcher(store Store, c *client.Client) *SourceFetcher {
	return &SourceFetcher{Store: store, Beef: c.Beef()}
}

// FetchTransaction resolves txid from wallet storage if a row already
// carries its raw bytes, else fetches raw tx bytes from the beef endpoint.
// Returns (nil, nil) — not an error — when the transaction is genuinely
// unknown to both (a 404 from the beef endpoint), matching
// parser.SourceFetcher's contract for an unresolvable one-level-deep
// source.
func (f *SourceFetcher) FetchTransaction(ctx context.Context, txid string) (*transaction.Transaction, error) {
	t := txid
	recs, err := f.Store.FindTransactions(ctx, TransactionQuery{Txid: &t})
	if err != nil {
		return nil, fmt.Errorf("wallet: source fetch %s: find stored: %w", txid, err)
	}
	for _, rec := range recs {
		if len(rec.RawTx) == 0 {
			continue
		}
		tx, err := transaction.NewTransactionFromBytes(rec.RawTx)
		if err != nil {
			return nil, fmt.Errorf("wallet: source fetch %s: decode stored raw tx: %w", txid, err)
		}
		return tx, nil
	}

	raw, err := f.Beef.RawTx(ctx, txid)
	if err != nil {
		if client.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("wallet: source fetch %s: beef raw: %w", txid, err)
	}
	tx, err := transaction.NewTransactionFromBytes(raw)
	if err != nil {
		return nil, fmt.Errorf("wallet: source fetch %s: decode beef raw tx: %w", txid, err)
	}
	return tx, nil
}

package wallet

import (
	"context"
	"fmt"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/parser"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// Wallet is the facade the sync orchestrator and host application drive:
// the storage contract, the parser pipeline, the owned-address set, and the
// one-level-deep source fetcher, bound together behind parseTransaction and
// ingestTransaction.
type Wallet struct {
	Store   Store
	Parser  *parser.Parser
	Owners  *Owners
	Fetcher *SourceFetcher
	UserID  int
}

// New builds a Wallet over store, decoders, and a client used both for
// fetching one-level-deep source transactions and for everything else the
// host wires against client directly (broadcast, ordfs, chaintracks).
func New(store Store, decoders []txo.Decoder, c *client.Client, owners *Owners, userID int) *Wallet {
	fetcher := NewSourceFetcher(store, c)
	return &Wallet{
		Store:   store,
		Parser:  parser.New(decoders, fetcher),
		Owners:  owners,
		Fetcher: fetcher,
		UserID:  userID,
	}
}

// ParseTransaction runs the parser pipeline only; it performs no storage
// mutation and is safe to call from isolated states — spec §8's "parse
// purity" property.
func (w *Wallet) ParseTransaction(ctx context.Context, tx *transaction.Transaction, txid string, isBroadcast bool) (*txo.ParseContext, error) {
	pctx, err := w.Parser.Parse(ctx, tx, txid, isBroadcast)
	if err != nil {
		return nil, fmt.Errorf("wallet: parse %s: %w", txid, err)
	}
	return pctx, nil
}

// IngestTransaction runs the storage writer of spec §4.6 against w's store,
// parser, fetcher, and owned-address set.
func (w *Wallet) IngestTransaction(ctx context.Context, tx *transaction.Transaction, txid string, isBroadcast bool, labels []string) (*IngestResult, error) {
	return IngestTransaction(ctx, w.Store, w.Parser, w.Fetcher, w.Owners, w.UserID, tx, txid, isBroadcast, labels)
}

// MarkSpent flips spendable=false on the stored output at outpoint if it is
// still spendable, used by the sync processor's spend-only group path (spec
// §4.5 processor step 3's first branch) where no transaction ingest is
// needed, so the spending transaction's row id is not yet known.
func (w *Wallet) MarkSpent(ctx context.Context, outpoint string) error {
	rows, err := w.Store.FindOutputs(ctx, OutputQuery{Outpoint: &outpoint})
	if err != nil {
		return fmt.Errorf("wallet: mark spent %s: %w", outpoint, err)
	}
	for _, row := range rows {
		if !row.Spendable {
			continue
		}
		if err := w.Store.UpdateOutput(ctx, row.ID, OutputPatch{Spendable: boolPtr(false)}); err != nil {
			return fmt.Errorf("wallet: mark spent %s: %w", outpoint, err)
		}
	}
	return nil
}

// Close releases any resources the wallet's store holds open.
func (w *Wallet) Close() error {
	if c, ok := w.Store.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}

package wallet

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strconv"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/outpoint"
	"github.com/b-open-io/1sat-wallet-toolbox/parser"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// IngestResult is ingestTransaction's return value: the parse result plus
// how many new output rows it created.
type IngestResult struct {
	ParseContext      *txo.ParseContext
	InternalizedCount int
}

const defaultBasket = "default"

// IngestTransaction runs spec §4.6's seven-step writer: parse tx, compute
// owned outputs, create-or-reuse the transaction row, breadth-first persist
// not-yet-stored ancestor transactions, flip spent inputs' spendability, and
// insert any not-yet-stored owned output with its tags. All storage mutation
// happens inside one call to store.Transaction, so with a store whose
// Transaction is serializable external readers never observe a partially
// ingested transaction.
func IngestTransaction(
	ctx context.Context,
	store Store,
	p *parser.Parser,
	fetcher *SourceFetcher,
	owners *Owners,
	userID int,
	tx *transaction.Transaction,
	txid string,
	isBroadcast bool,
	labels []string,
) (*IngestResult, error) {
	pctx, err := p.Parse(ctx, tx, txid, isBroadcast)
	if err != nil {
		return nil, fmt.Errorf("wallet: ingest %s: parse: %w", txid, err)
	}

	owned := ownedTxos(pctx, owners)
	internalized := 0

	err = store.Transaction(ctx, func(ctx context.Context, store Store) error {
		t := txid
		existing, err := store.FindTransactions(ctx, TransactionQuery{Txid: &t})
		if err != nil {
			return fmt.Errorf("find transactions: %w", err)
		}

		var txRowID int
		inserted := false
		if len(existing) > 0 {
			txRowID = existing[0].ID
		} else {
			txRowID, err = insertTransactionRow(ctx, store, fetcher, tx, txid, isBroadcast, pctx, owned, labels, userID)
			if err != nil {
				return err
			}
			inserted = true
		}

		if inserted {
			if err := flipSpentInputs(ctx, store, tx, txRowID); err != nil {
				return err
			}
		}

		n, err := insertOwnedOutputs(ctx, store, pctx, owned, userID, txRowID)
		if err != nil {
			return err
		}
		internalized = n
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("wallet: ingest %s: %w", txid, err)
	}

	return &IngestResult{ParseContext: pctx, InternalizedCount: internalized}, nil
}

// ownedTxos returns the outputs of pctx.Txos whose decoder-claimed owner is
// in owners — spec §4.6 step 2.
func ownedTxos(pctx *txo.ParseContext, owners *Owners) []*txo.Txo {
	var out []*txo.Txo
	for _, t := range pctx.Txos {
		if t.Owner != nil && owners.Contains(string(*t.Owner)) {
			out = append(out, t)
		}
	}
	return out
}

func insertTransactionRow(
	ctx context.Context,
	store Store,
	fetcher *SourceFetcher,
	tx *transaction.Transaction,
	txid string,
	isBroadcast bool,
	pctx *txo.ParseContext,
	owned []*txo.Txo,
	labels []string,
	userID int,
) (int, error) {
	isOutgoing := false
	var satoshisSpent uint64
	for _, spend := range pctx.Spends {
		if spend.Outpoint == (outpoint.Outpoint{}) {
			continue
		}
		op := spend.Outpoint.String()
		rows, err := store.FindOutputs(ctx, OutputQuery{Outpoint: &op})
		if err != nil {
			return 0, fmt.Errorf("find spent output %s: %w", op, err)
		}
		if len(rows) == 0 {
			continue
		}
		isOutgoing = true
		satoshisSpent += spend.Satoshis
	}

	var satoshisReceived uint64
	for _, t := range owned {
		satoshisReceived += t.Satoshis
	}

	status := TxStatusUnproven
	if isBroadcast {
		status = TxStatusCompleted
	}
	ref, err := randomReference()
	if err != nil {
		return 0, fmt.Errorf("reference: %w", err)
	}

	rec := &TransactionRecord{
		Txid:             txid,
		Status:           status,
		IsOutgoing:       isOutgoing,
		SatoshisSpent:    satoshisSpent,
		SatoshisReceived: satoshisReceived,
		Satoshis:         int64(satoshisReceived) - int64(satoshisSpent),
		RawTx:            tx.Bytes(),
		Reference:        ref,
	}
	txRowID, err := store.InsertTransaction(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}

	if fetcher != nil {
		if err := persistAncestors(ctx, store, fetcher, tx); err != nil {
			return 0, fmt.Errorf("persist ancestors: %w", err)
		}
	}

	for _, name := range labels {
		labelID, err := store.FindOrInsertTxLabel(ctx, userID, name)
		if err != nil {
			return 0, fmt.Errorf("label %s: %w", name, err)
		}
		if err := store.FindOrInsertTxLabelMap(ctx, txRowID, labelID); err != nil {
			return 0, fmt.Errorf("label map %s: %w", name, err)
		}
	}

	return txRowID, nil
}

// persistAncestors breadth-first persists source transactions not already
// stored, starting from start's own inputs and continuing into each
// just-fetched ancestor's own inputs, terminating a branch as soon as
// storage already has that row — spec §4.6 step 4's BFS rule.
func persistAncestors(ctx context.Context, store Store, fetcher *SourceFetcher, start *transaction.Transaction) error {
	seen := make(map[string]bool)
	queue := distinctSourceTxids(start)

	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		seen[id] = true

		t := id
		existing, err := store.FindTransactions(ctx, TransactionQuery{Txid: &t})
		if err != nil {
			return fmt.Errorf("ancestor %s: find: %w", id, err)
		}
		if len(existing) > 0 {
			continue
		}

		src, err := fetcher.FetchTransaction(ctx, id)
		if err != nil {
			return fmt.Errorf("ancestor %s: fetch: %w", id, err)
		}
		if src == nil {
			continue
		}

		ref, err := randomReference()
		if err != nil {
			return fmt.Errorf("ancestor %s: reference: %w", id, err)
		}
		if _, err := store.InsertTransaction(ctx, &TransactionRecord{
			Txid:      id,
			Status:    TxStatusCompleted,
			RawTx:     src.Bytes(),
			Reference: ref,
		}); err != nil {
			return fmt.Errorf("ancestor %s: insert: %w", id, err)
		}

		queue = append(queue, distinctSourceTxids(src)...)
	}
	return nil
}

func distinctSourceTxids(tx *transaction.Transaction) []string {
	seen := make(map[string]bool)
	var out []string
	for _, in := range tx.Inputs {
		if in.SourceTXID == nil {
			continue
		}
		id := in.SourceTXID.String()
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// flipSpentInputs patches spendable=false, spentBy=txRowID on every stored
// output tx.Inputs references — spec §4.6 step 5, applied only when step 4
// actually inserted the transaction row.
func flipSpentInputs(ctx context.Context, store Store, tx *transaction.Transaction, txRowID int) error {
	for _, in := range tx.Inputs {
		if in.SourceTXID == nil {
			continue
		}
		op := in.SourceTXID.String() + "_" + strconv.FormatUint(uint64(in.SourceTxOutIndex), 10)
		rows, err := store.FindOutputs(ctx, OutputQuery{Outpoint: &op})
		if err != nil {
			return fmt.Errorf("find input source %s: %w", op, err)
		}
		for _, row := range rows {
			if !row.Spendable {
				continue
			}
			id := txRowID
			if err := store.UpdateOutput(ctx, row.ID, OutputPatch{
				Spendable: boolPtr(false),
				SpentBy:   &id,
			}); err != nil {
				return fmt.Errorf("flip spent %s: %w", op, err)
			}
		}
	}
	return nil
}

// insertOwnedOutputs inserts a row for every owned output not already
// stored — spec §4.6 step 6 — and returns how many rows it created.
func insertOwnedOutputs(ctx context.Context, store Store, pctx *txo.ParseContext, owned []*txo.Txo, userID int, txRowID int) (int, error) {
	created := 0
	for _, t := range owned {
		op := t.Outpoint.String()
		existing, err := store.FindOutputs(ctx, OutputQuery{Outpoint: &op})
		if err != nil {
			return created, fmt.Errorf("find output %s: %w", op, err)
		}
		if len(existing) > 0 {
			continue
		}

		basket := defaultBasket
		if t.Basket != nil {
			basket = *t.Basket
		}
		if _, err := store.FindOrInsertOutputBasket(ctx, userID, basket); err != nil {
			return created, fmt.Errorf("basket %s: %w", basket, err)
		}

		change := basket == defaultBasket
		purpose := ""
		if change {
			purpose = "change"
		}

		rec := &OutputRecord{
			TxID:               txRowID,
			Txid:               pctx.Txid,
			Vout:               t.Outpoint.Vout,
			Outpoint:           op,
			Satoshis:           t.Satoshis,
			LockingScript:      t.LockingScript,
			Owner:              string(*t.Owner),
			Basket:             basket,
			Change:             change,
			Purpose:            purpose,
			Type:               "custom",
			ProvidedBy:         "you",
			Spendable:          true,
			CustomInstructions: outputContent(t),
		}
		outputID, err := store.InsertOutput(ctx, rec)
		if err != nil {
			return created, fmt.Errorf("insert output %s: %w", op, err)
		}
		created++

		tags := append([]string{"own:" + rec.Owner}, t.Tags(decoderOrder(pctx))...)
		for _, tag := range tags {
			tagID, err := store.FindOrInsertOutputTag(ctx, userID, tag)
			if err != nil {
				return created, fmt.Errorf("tag %s: %w", tag, err)
			}
			if err := store.FindOrInsertOutputTagMap(ctx, outputID, tagID); err != nil {
				return created, fmt.Errorf("tag map %s: %w", tag, err)
			}
		}
	}
	return created, nil
}

func decoderOrder(pctx *txo.ParseContext) []string {
	order := make([]string, len(pctx.Decoders))
	for i, d := range pctx.Decoders {
		order[i] = d.Tag()
	}
	return order
}

// outputContent returns a decoder-produced content string found on t,
// truncated to 1000 bytes — spec §4.6 step 6's customInstructions rule. It
// ranges over the t.Data map, so when more than one decoder produced content,
// which one is returned is not defined.
func outputContent(t *txo.Txo) *string {
	for _, d := range t.Data {
		if d.Content == nil {
			continue
		}
		c := *d.Content
		if len(c) > 1000 {
			c = c[:1000]
		}
		return &c
	}
	return nil
}

func randomReference() (string, error) {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

func boolPtr(b bool) *bool { return &b }

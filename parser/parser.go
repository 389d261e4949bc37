// Package parser implements the fixed-order pipeline that turns a raw
// transaction into a txo.ParseContext: decode every input's spent output,
// decode every output, then let each decoder summarize across the whole
// transaction. Grounded on indexer/utxo.go's per-transaction processing loop
// shape, adapted from a single-pass UTXO indexer to the two-phase
// parse-then-summarize pipeline spec §4.3 requires.
package parser

import (
	"context"
	"fmt"
	"strconv"

	"github.com/bsv-blockchain/go-sdk/script"
	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/outpoint"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// SourceFetcher resolves a transaction by its hex txid, either from local
// storage or from the indexer's beef endpoint — the "storage first, else
// beef" rule spec §4.3 step 1 describes. Implementations return
// (nil, nil) if the transaction is genuinely unknown; that case is not an
// error, it just leaves the corresponding input unhydrated.
type SourceFetcher interface {
	FetchTransaction(ctx context.Context, txid string) (*transaction.Transaction, error)
}

// Parser runs the fixed decoder pipeline against a transaction.
type Parser struct {
	Decoders []txo.Decoder
	Sources  SourceFetcher
}

// New builds a Parser over decoders in their fixed evaluation order.
func New(decoders []txo.Decoder, sources SourceFetcher) *Parser {
	return &Parser{Decoders: decoders, Sources: sources}
}

// Parse runs the six-step pipeline spec §4.3 describes against tx (whose
// hex id is txid) and returns the populated ParseContext.
func (p *Parser) Parse(goCtx context.Context, tx *transaction.Transaction, txid string, isBroadcast bool) (*txo.ParseContext, error) {
	if err := p.hydrateSources(goCtx, tx); err != nil {
		return nil, err
	}

	pctx := txo.NewParseContext(tx, txid, p.Decoders)
	pctx.Txos = make([]*txo.Txo, len(tx.Outputs))

	for i, out := range tx.Outputs {
		op, err := outpoint.FromString(txid + "_" + strconv.Itoa(i))
		if err != nil {
			return nil, fmt.Errorf("parser: output outpoint: %w", err)
		}
		t := txo.NewTxo(op, scriptBytes(out.LockingScript), out.Satoshis)
		p.runParse(t)
		pctx.Txos[i] = t
	}

	pctx.Spends = make([]*txo.Txo, len(tx.Inputs))
	for i, in := range tx.Inputs {
		t, err := p.spendTxo(in)
		if err != nil {
			return nil, err
		}
		p.runParse(t)
		pctx.Spends[i] = t
	}

	for _, d := range p.Decoders {
		summary, err := d.Summarize(goCtx, pctx, isBroadcast)
		if err != nil {
			return nil, fmt.Errorf("parser: summarize %s: %w", d.Tag(), err)
		}
		if summary != nil {
			pctx.Summary[d.Tag()] = *summary
		}
	}

	return pctx, nil
}

// runParse runs every decoder's Parse against t in fixed order, merging
// owner/basket/content into t and writing {data, tags, content} under each
// matching decoder's tag — spec §4.3 step 4.
func (p *Parser) runParse(t *txo.Txo) {
	for _, d := range p.Decoders {
		res := d.Parse(t)
		if res == nil {
			continue
		}
		if res.Owner != nil {
			t.SetOwner(*res.Owner)
		}
		if res.Basket != nil {
			t.SetBasket(*res.Basket)
		}
		t.Data[d.Tag()] = txo.IndexData{Data: res.Data, Tags: res.Tags, Content: res.Content}
	}
}

// spendTxo builds the fresh Txo for a spent source output, locating it in an
// already-hydrated SourceTransaction or leaving it as a bare, scriptless
// placeholder if hydration could not resolve one — decoders that need
// LockingScript simply fail to match such an output, which is the correct
// outcome for an unresolvable source (spec §4.3 step 1 is "one level deep
// only").
func (p *Parser) spendTxo(in *transaction.TransactionInput) (*txo.Txo, error) {
	if in.SourceTXID == nil {
		return txo.NewTxo(outpoint.Outpoint{}, nil, 0), nil
	}
	op, err := outpoint.FromString(in.SourceTXID.String() + "_" + strconv.FormatUint(uint64(in.SourceTxOutIndex), 10))
	if err != nil {
		return nil, fmt.Errorf("parser: spend outpoint: %w", err)
	}
	if in.SourceTransaction == nil || int(in.SourceTxOutIndex) >= len(in.SourceTransaction.Outputs) {
		return txo.NewTxo(op, nil, 0), nil
	}
	out := in.SourceTransaction.Outputs[in.SourceTxOutIndex]
	return txo.NewTxo(op, scriptBytes(out.LockingScript), out.Satoshis), nil
}

// hydrateSources fetches, one level deep, the source transaction for every
// input that does not already carry one — spec §4.3 step 1.
func (p *Parser) hydrateSources(goCtx context.Context, tx *transaction.Transaction) error {
	if p.Sources == nil {
		return nil
	}
	seen := make(map[string]*transaction.Transaction)
	for _, in := range tx.Inputs {
		if in.SourceTransaction != nil || in.SourceTXID == nil {
			continue
		}
		txid := in.SourceTXID.String()
		src, ok := seen[txid]
		if !ok {
			var err error
			src, err = p.Sources.FetchTransaction(goCtx, txid)
			if err != nil {
				return fmt.Errorf("parser: hydrate source %s: %w", txid, err)
			}
			seen[txid] = src
		}
		if src != nil {
			in.SourceTransaction = src
		}
	}
	return nil
}

func scriptBytes(s *script.Script) []byte {
	if s == nil {
		return nil
	}
	return *s
}

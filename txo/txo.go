// Package txo defines the per-output and per-transaction working types that
// flow through the decoder pipeline: Txo, ParseContext, ParseResult,
// IndexData, IndexSummary, and the Decoder capability every protocol decoder
// implements.
package txo

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/outpoint"
)

// Address is a base58check wallet address string. It is left untyped beyond
// a string wrapper because decoders only ever compare, store, and format it;
// they never decode its payload.
type Address string

// IndexData is the per-decoder annotation stored under Txo.Data[tag]. Data
// carries the decoder-specific payload (a *fund.Data, *bsv21.Data, and so
// on); callers that care about its shape switch on the owning decoder's tag.
type IndexData struct {
	Data    any
	Tags    []string
	Content *string
}

// IndexSummary is the per-decoder, per-transaction annotation stored under
// ParseContext.Summary[tag].
type IndexSummary struct {
	ID     *string
	Amount *int64
	Icon   *string
	Data   any
}

// Txo is one transaction output as seen by the parser pipeline: its chain
// identity plus whatever the decoders discovered about it.
type Txo struct {
	Outpoint      outpoint.Outpoint
	LockingScript []byte
	Satoshis      uint64

	Owner  *Address
	Basket *string
	Data   map[string]IndexData
}

// NewTxo builds a Txo ready to be handed to the decoder pipeline.
func NewTxo(op outpoint.Outpoint, lockingScript []byte, satoshis uint64) *Txo {
	return &Txo{
		Outpoint:      op,
		LockingScript: lockingScript,
		Satoshis:      satoshis,
		Data:          make(map[string]IndexData),
	}
}

// SetOwner applies a decoder's owner claim. Later decoders in the fixed
// order may still overwrite it; the pipeline does not adjudicate conflicts.
func (t *Txo) SetOwner(a Address) {
	t.Owner = &a
}

// SetBasket applies a decoder's basket claim. Later decoders in the fixed
// order run after, and win, over an earlier decoder's claim on the same
// output — e.g. Bsv21 reclassifying an Origin-claimed "1sat" basket to
// "bsv21" once it recognises the token payload on the same output.
func (t *Txo) SetBasket(b string) {
	t.Basket = &b
}

// Tags flattens every tag collected across decoders for this output, in
// decoder-registration order.
func (t *Txo) Tags(order []string) []string {
	var tags []string
	for _, tag := range order {
		if d, ok := t.Data[tag]; ok {
			tags = append(tags, d.Tags...)
		}
	}
	return tags
}

// ParseResult is what a decoder's Parse returns for a single output: the
// opaque decoder-specific payload plus whatever cross-cutting annotations it
// wants to contribute to the owning Txo.
type ParseResult struct {
	Data    any
	Tags    []string
	Owner   *Address
	Basket  *string
	Content *string
}

// ParseContext is the per-transaction working set threaded through a single
// parser pipeline run.
type ParseContext struct {
	Tx   *transaction.Transaction
	Txid string

	Txos    []*Txo
	Spends  []*Txo
	Summary map[string]IndexSummary

	Decoders []Decoder
}

// NewParseContext builds an empty context for tx, ready for the pipeline to
// populate Txos/Spends/Summary.
func NewParseContext(tx *transaction.Transaction, txid string, decoders []Decoder) *ParseContext {
	return &ParseContext{
		Tx:       tx,
		Txid:     txid,
		Summary:  make(map[string]IndexSummary),
		Decoders: decoders,
	}
}

// Decoder is one protocol decoder in the fixed pipeline. Parse must be pure
// and must never mutate txo; it returns nil when the script does not match.
// Summarize runs after every output's Parse has completed and may perform
// bounded I/O against the indexer; an HTTP 404 is a domain signal that
// implementations recover from locally, not an error.
type Decoder interface {
	Tag() string
	Parse(txo *Txo) *ParseResult
	Summarize(goCtx context.Context, pctx *ParseContext, isBroadcast bool) (*IndexSummary, error)
}

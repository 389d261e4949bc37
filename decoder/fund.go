package decoder

import (
	"context"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// FundTag is the stable tag for Fund-decoded outputs.
const FundTag = "fund"

// FundData is the decoder-specific payload stored under Txo.Data[FundTag].
type FundData struct {
	PubKeyHash []byte
}

// Fund recognises standard pay-to-pubkey-hash outputs carrying more than
// one satoshi — ordinary spendable balance, as opposed to a 1-sat ordinal
// carrier. Grounded on contract/meta-contract/decoder/ft.go's script
// template matching plus PkhToAddress.
type Fund struct{}

func (Fund) Tag() string { return FundTag }

func (Fund) Parse(t *txo.Txo) *txo.ParseResult {
	if t.Satoshis <= 1 {
		return nil
	}
	pkh := p2pkhPubKeyHash(ReadOps(t.LockingScript))
	if pkh == nil {
		return nil
	}
	owner := txo.Address(addressFromPubKeyHash(pkh))
	basket := "fund"
	return &txo.ParseResult{
		Data:   &FundData{PubKeyHash: pkh},
		Owner:  &owner,
		Basket: &basket,
	}
}

func (Fund) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	return nil, nil
}

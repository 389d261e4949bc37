package decoder

import (
	"context"

	"github.com/bsv-blockchain/go-sdk/transaction"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// OrdLockTag is the stable tag for OrdLock-decoded outputs.
const OrdLockTag = "ordlock"

// OrdLockData is the decoder-specific payload stored under
// Txo.Data[OrdLockTag].
type OrdLockData struct {
	SellerPubKeyHash []byte
	Price            uint64
}

// OrdLock recognises the marketplace listing template: a seller pubkey hash
// and a little-endian price literal, unlockable either by the seller
// (cancel) or by a purchaser paying the price to the seller (purchase). The
// exact listing script is not byte-pinned by the spec beyond these two
// literals, so detection here scans for the (pkh, price) pair rather than
// matching a full opcode sequence — the same tolerance
// contract/meta-contract/decoder/ft.go takes toward the surrounding script
// bytes it does not need to understand.
type OrdLock struct{}

func (OrdLock) Tag() string { return OrdLockTag }

func (OrdLock) Parse(t *txo.Txo) *txo.ParseResult {
	ops := ReadOps(t.LockingScript)
	for i := 0; i+1 < len(ops); i++ {
		if len(ops[i].Data) != 20 || len(ops[i+1].Data) != 8 {
			continue
		}
		price := decodeLE64(ops[i+1].Data)
		if price == 0 {
			continue
		}
		owner := txo.Address(addressFromPubKeyHash(ops[i].Data))
		return &txo.ParseResult{
			Data:  &OrdLockData{SellerPubKeyHash: ops[i].Data, Price: price},
			Tags:  []string{"ordlock"},
			Owner: &owner,
		}
	}
	return nil
}

func (OrdLock) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	var delta int64
	for _, t := range ctx.Spends {
		d, ok := t.Data[OrdLockTag]
		if !ok {
			continue
		}
		ld, ok := d.Data.(*OrdLockData)
		if !ok {
			continue
		}
		if paysSeller(ctx.Tx, ld) {
			delta++
		}
	}
	for _, t := range ctx.Txos {
		if _, ok := t.Data[OrdLockTag]; ok {
			spent := false
			for _, s := range ctx.Spends {
				if sd, ok := s.Data[OrdLockTag]; ok {
					if ld, ok := sd.Data.(*OrdLockData); ok {
						if bd, ok := t.Data[OrdLockTag].Data.(*OrdLockData); ok && sameListing(ld, bd) {
							spent = true
						}
					}
				}
			}
			if !spent {
				delta--
			}
		}
	}
	if delta == 0 {
		return nil, nil
	}
	return &txo.IndexSummary{Amount: &delta}, nil
}

func decodeLE64(b []byte) uint64 {
	var n uint64
	for i, c := range b {
		n |= uint64(c) << (8 * i)
	}
	return n
}

func sameListing(a, b *OrdLockData) bool {
	return a.Price == b.Price && string(a.SellerPubKeyHash) == string(b.SellerPubKeyHash)
}

// paysSeller reports whether tx carries an output paying at least ld.Price
// satoshis to ld's seller pubkey hash — the purchase unlock shape.
func paysSeller(tx *transaction.Transaction, ld *OrdLockData) bool {
	if tx == nil {
		return false
	}
	for _, out := range tx.Outputs {
		if out.Satoshis < ld.Price || out.LockingScript == nil {
			continue
		}
		pkh := p2pkhPubKeyHash(ReadOps(*out.LockingScript))
		if pkh != nil && string(pkh) == string(ld.SellerPubKeyHash) {
			return true
		}
	}
	return false
}

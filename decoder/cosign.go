package decoder

import (
	"context"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// CosignTag is the stable tag for Cosign-decoded outputs.
const CosignTag = "cosign"

// CosignData is the decoder-specific payload stored under
// Txo.Data[CosignTag].
type CosignData struct {
	PrimaryPubKeyHash  []byte
	CosignerPubKeyHash []byte
}

const opCheckMultiSig = 0xae

// Cosign recognises the cosigner template: a primary spender's pubkey hash
// alongside a second cosigner pubkey hash, requiring both to authorize a
// spend (OP_CHECKMULTISIG-style). Sets owner to the primary address.
type Cosign struct{}

func (Cosign) Tag() string { return CosignTag }

func (Cosign) Parse(t *txo.Txo) *txo.ParseResult {
	ops := ReadOps(t.LockingScript)
	if len(ops) < 2 {
		return nil
	}
	last := ops[len(ops)-1]
	if last.Code != opCheckMultiSig {
		return nil
	}
	var hashes [][]byte
	for _, op := range ops {
		if len(op.Data) == 20 {
			hashes = append(hashes, op.Data)
		}
	}
	if len(hashes) < 2 {
		return nil
	}
	owner := txo.Address(addressFromPubKeyHash(hashes[0]))
	return &txo.ParseResult{
		Data:  &CosignData{PrimaryPubKeyHash: hashes[0], CosignerPubKeyHash: hashes[1]},
		Tags:  []string{"cosign"},
		Owner: &owner,
	}
}

func (Cosign) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	return nil, nil
}

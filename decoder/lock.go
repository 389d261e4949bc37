package decoder

import (
	"context"
	"fmt"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// LockTag is the stable tag for Lock-decoded outputs.
const LockTag = "lock"

// LockData is the decoder-specific payload stored under Txo.Data[LockTag].
type LockData struct {
	PubKeyHash []byte
	UntilBlock uint32
}

const opCheckLockTimeVerify = 0xb1
const opDrop = 0x75

// Lock recognises the timelock template: <height> OP_CHECKLOCKTIMEVERIFY
// OP_DROP <p2pkh template>. Sets owner, basket "lock", and a
// "lock:until:<height>" tag.
//
// Spec ties that tag's visibility to "owner ∈ owners", but the decoder has
// no owners context — the storage writer (ingestTransaction step 6) only
// ever materializes tags for owned outputs, so emitting the tag
// unconditionally here and letting the writer's ownership filter gate
// persistence satisfies the same contract without threading owners through
// Parse.
type Lock struct{}

func (Lock) Tag() string { return LockTag }

func (Lock) Parse(t *txo.Txo) *txo.ParseResult {
	ops := ReadOps(t.LockingScript)
	if len(ops) < 8 {
		return nil
	}
	heightOp := ops[0]
	if !heightOp.IsData() || len(heightOp.Data) == 0 || len(heightOp.Data) > 5 {
		return nil
	}
	if ops[1].Code != opCheckLockTimeVerify || ops[2].Code != opDrop {
		return nil
	}
	pkh := p2pkhPubKeyHash(ops[3:8])
	if pkh == nil {
		return nil
	}
	until := decodeScriptNumber(heightOp.Data)

	owner := txo.Address(addressFromPubKeyHash(pkh))
	basket := "lock"
	return &txo.ParseResult{
		Data:   &LockData{PubKeyHash: pkh, UntilBlock: until},
		Tags:   []string{fmt.Sprintf("lock:until:%d", until)},
		Owner:  &owner,
		Basket: &basket,
	}
}

func (Lock) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	return nil, nil
}

// decodeScriptNumber decodes a little-endian, sign-magnitude script integer
// (the CScriptNum encoding used by OP_CHECKLOCKTIMEVERIFY's argument).
func decodeScriptNumber(b []byte) uint32 {
	var n uint32
	for i, c := range b {
		if i == len(b)-1 {
			c &= 0x7f
		}
		n |= uint32(c) << (8 * i)
	}
	if len(b) > 0 && b[len(b)-1]&0x80 != 0 {
		return 0
	}
	return n
}

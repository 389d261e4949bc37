package decoder

import (
	"context"
	"fmt"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// SigmaTag is the stable tag for Sigma-decoded outputs.
const SigmaTag = "sigma"

const bitcomSIGMA = "SIGMA"

// SigmaRecord is one sigma signature frame found in an output's script.
type SigmaRecord struct {
	Algorithm string
	Signature []byte
	Address   string
	Vin       int
	Valid     bool
}

// SigmaData is the decoder-specific payload stored under Txo.Data[SigmaTag].
type SigmaData struct {
	Records []*SigmaRecord
}

// AddressRecoverer recovers the signing address for a compact signature over
// a message. Cryptographic primitives are a given building block per the
// system's scope (signature verification is explicitly out of this
// repository's core); Sigma's summarize phase is injected with one rather
// than implementing elliptic-curve recovery itself.
type AddressRecoverer interface {
	RecoverAddress(message, signature []byte) (string, error)
}

// Sigma extracts zero or more sigma signature records from OP_RETURN
// protocol frames, grounded on shruggr-fungibles-indexer/bitcom.go and
// shruggr-casemod-indexer/bitcom.go's SIGMA branch. parse records them with
// Valid=false; summarize reconstructs the signed message (the indicated
// input's outpoint plus the output script prefix up to the sigma frame) and
// asks Recoverer whether it recovers the claimed address.
type Sigma struct {
	Recoverer AddressRecoverer
}

func (Sigma) Tag() string { return SigmaTag }

func (s Sigma) Parse(t *txo.Txo) *txo.ParseResult {
	ops := ReadOps(t.LockingScript)
	var records []*SigmaRecord
	for _, frame := range opReturnFrames(ops) {
		for _, seg := range pipeSegments(frame) {
			if rec := parseSigmaSegment(seg); rec != nil {
				records = append(records, rec)
			}
		}
	}
	if len(records) == 0 {
		return nil
	}
	return &txo.ParseResult{Data: &SigmaData{Records: records}}
}

func (s Sigma) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	if s.Recoverer == nil {
		return nil, nil
	}
	valid := 0
	for _, t := range ctx.Txos {
		d, ok := t.Data[SigmaTag]
		if !ok {
			continue
		}
		sd, ok := d.Data.(*SigmaData)
		if !ok {
			continue
		}
		for _, rec := range sd.Records {
			message := sigmaMessage(ctx, rec, t)
			recovered, err := s.Recoverer.RecoverAddress(message, rec.Signature)
			if err != nil {
				continue
			}
			rec.Valid = recovered == rec.Address
			if rec.Valid {
				valid++
			}
		}
	}
	id := fmt.Sprintf("%d", valid)
	return &txo.IndexSummary{ID: &id}, nil
}

func parseSigmaSegment(seg []Op) *SigmaRecord {
	if len(seg) < 5 || string(seg[0].Data) != bitcomSIGMA {
		return nil
	}
	vin := -1
	fmt.Sscanf(string(seg[4].Data), "%d", &vin)
	return &SigmaRecord{
		Algorithm: string(seg[1].Data),
		Signature: seg[2].Data,
		Address:   string(seg[3].Data),
		Vin:       vin,
	}
}

// sigmaMessage reconstructs the signed message: the indicated input's
// outpoint bytes followed by the output's script prefix up to the sigma
// frame that carried the record.
func sigmaMessage(ctx *txo.ParseContext, rec *SigmaRecord, t *txo.Txo) []byte {
	msg := t.Outpoint.ToBigEndianBytes()
	if rec.Vin >= 0 && rec.Vin < len(ctx.Spends) {
		msg = append(msg, ctx.Spends[rec.Vin].Outpoint.ToBigEndianBytes()...)
	}
	return msg
}

package decoder

import (
	"context"
	"crypto/sha256"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// InscriptionTag is the stable tag for Inscription-decoded outputs.
const InscriptionTag = "insc"

const (
	opFalse  = 0x00
	opIf     = 0x63
	opEndIf  = 0x68
	ordMagic = "ord"
)

// InscriptionFile is the decoded envelope payload.
type InscriptionFile struct {
	Hash    []byte
	Size    uint32
	Type    string
	Content []byte
}

// InscriptionData is the decoder-specific payload stored under
// Txo.Data[InscriptionTag].
type InscriptionData struct {
	File   *InscriptionFile
	Fields map[byte][]byte
	Parent []byte
}

// Inscription recognises the ordinal envelope (OP_FALSE OP_IF "ord" …
// OP_ENDIF) inside a 1-satoshi output, grounded on
// shruggr-1sat-indexer/b.go's field-walking ParseB loop adapted to the
// envelope's tag/value field encoding. It also eagerly parses a MAP frame
// appended after the envelope in the same script and writes it into the
// "map" decoder slot directly on txo — the one documented cross-decoder
// side effect in the pipeline (spec §4.2 item 3).
type Inscription struct{}

func (Inscription) Tag() string { return InscriptionTag }

func (Inscription) Parse(t *txo.Txo) *txo.ParseResult {
	if t.Satoshis != 1 {
		return nil
	}
	ops := ReadOps(t.LockingScript)
	start, end := findEnvelope(ops)
	if start < 0 {
		return nil
	}

	fields := make(map[byte][]byte)
	var file *InscriptionFile
	i := start
	for i < end {
		tagOp := ops[i]
		i++
		if tagOp.Code == opFalse && len(tagOp.Data) == 0 {
			var content []byte
			for i < end {
				content = append(content, ops[i].Data...)
				i++
			}
			hash := sha256.Sum256(content)
			file = &InscriptionFile{
				Hash:    hash[:],
				Size:    uint32(len(content)),
				Type:    string(fields[1]),
				Content: content,
			}
			break
		}
		if i >= end {
			break
		}
		fields[tagOp.Code] = ops[i].Data
		i++
	}

	result := &txo.ParseResult{
		Data: &InscriptionData{File: file, Fields: fields, Parent: fields[3]},
	}

	prefix := ops[:prefixEnd(start)]
	suffix := ops[end+1:]
	if pkh := p2pkhPubKeyHash(prefix); pkh != nil {
		owner := txo.Address(addressFromPubKeyHash(pkh))
		result.Owner = &owner
	} else if pkh := p2pkhPubKeyHash(suffix); pkh != nil {
		owner := txo.Address(addressFromPubKeyHash(pkh))
		result.Owner = &owner
	}

	for _, frame := range opReturnFrames(suffix) {
		for _, seg := range pipeSegments(frame) {
			if mapData := parseMAPSegment(seg); mapData != nil {
				t.Data[MapTag] = txo.IndexData{Data: mapData}
				break
			}
		}
	}

	return result
}

func (Inscription) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	return nil, nil
}

func prefixEnd(start int) int {
	if start-3 < 0 {
		return 0
	}
	return start - 3
}

// findEnvelope locates OP_FALSE OP_IF "ord" in ops and returns the index of
// the field list's first op and the index of the matching OP_ENDIF, or
// (-1, -1) if no envelope is present.
func findEnvelope(ops []Op) (start, end int) {
	for i := 0; i+2 < len(ops); i++ {
		if ops[i].Code == opFalse && len(ops[i].Data) == 0 &&
			ops[i+1].Code == opIf &&
			string(ops[i+2].Data) == ordMagic {
			for j := i + 3; j < len(ops); j++ {
				if ops[j].Code == opEndIf {
					return i + 3, j
				}
			}
			return -1, -1
		}
	}
	return -1, -1
}


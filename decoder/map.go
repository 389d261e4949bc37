package decoder

import (
	"context"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// MapTag is the stable tag for standalone MAP-decoded outputs.
const MapTag = "map"

// bitcomMAP is the well-known MAP protocol prefix address, grounded on
// shruggr-fungibles-indexer/bitcom.go and shruggr-casemod-indexer/bitcom.go,
// both of which define the same constant.
const bitcomMAP = "1PuQa7K62MiKCtssSLKy1kh56WWU7MtUR5"

// MapData is the decoder-specific payload stored under Txo.Data[MapTag]: the
// decoded key/value pairs of a MAP SET/ADD command.
type MapData struct {
	Cmd  string
	Data map[string]string
}

// Map recognises standalone MAP protocol key/value frames in an OP_RETURN
// output. Grounded on shruggr-casemod-indexer/bitcom.go's ParseBitcom/MAP
// branch.
type Map struct{}

func (Map) Tag() string { return MapTag }

func (Map) Parse(t *txo.Txo) *txo.ParseResult {
	ops := ReadOps(t.LockingScript)
	for _, frame := range opReturnFrames(ops) {
		for _, seg := range pipeSegments(frame) {
			if data := parseMAPSegment(seg); data != nil {
				return &txo.ParseResult{Data: data}
			}
		}
	}
	return nil
}

func (Map) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	return nil, nil
}

// parseMAPSegment decodes a single bitcom segment as a MAP command if its
// leading push is the MAP protocol address. Returns nil if it does not
// match.
func parseMAPSegment(seg []Op) *MapData {
	if len(seg) < 2 || string(seg[0].Data) != bitcomMAP {
		return nil
	}
	cmd := string(seg[1].Data)
	data := make(map[string]string)
	for i := 2; i+1 < len(seg); i += 2 {
		data[string(seg[i].Data)] = string(seg[i+1].Data)
	}
	return &MapData{Cmd: cmd, Data: data}
}

package decoder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// OpNSTag is the stable tag for OpNS-decoded outputs.
const OpNSTag = "opns"

const opnsContentType = "application/op-ns"

// OpNSData is the decoder-specific payload stored under Txo.Data[OpNSTag].
type OpNSData struct {
	Op   string
	Name string
}

type opnsPayload struct {
	P    string `json:"p"`
	Op   string `json:"op"`
	Name string `json:"name"`
}

// OpNS recognises name-system inscriptions, the same inscription-with-typed-
// JSON-body shape Bsv21 decodes, adapted to the name-registration payload.
type OpNS struct{}

func (OpNS) Tag() string { return OpNSTag }

func (OpNS) Parse(t *txo.Txo) *txo.ParseResult {
	d, ok := t.Data[InscriptionTag]
	if !ok {
		return nil
	}
	id, ok := d.Data.(*InscriptionData)
	if !ok || id.File == nil || id.File.Type != opnsContentType {
		return nil
	}
	var payload opnsPayload
	if err := json.Unmarshal(id.File.Content, &payload); err != nil || payload.P != "opns" {
		return nil
	}
	basket := "opns"
	result := &txo.ParseResult{
		Data:   &OpNSData{Op: payload.Op, Name: payload.Name},
		Basket: &basket,
	}
	if payload.Name != "" {
		result.Tags = []string{fmt.Sprintf("name:%s", payload.Name)}
	}
	return result
}

func (OpNS) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	return nil, nil
}

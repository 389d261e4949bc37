package decoder

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// Bsv21Tag is the stable tag for Bsv21-decoded outputs.
const Bsv21Tag = "bsv21"

const bsv21ContentType = "application/bsv-20"

// Bsv21Op is a fungible-token operation carried by an inscription payload.
type Bsv21Op string

const (
	Bsv21OpDeploy   Bsv21Op = "deploy+mint"
	Bsv21OpTransfer Bsv21Op = "transfer"
	Bsv21OpBurn     Bsv21Op = "burn"
)

// Bsv21Status mirrors the token-validity states spec §4.2 item 7 assigns
// per output.
type Bsv21Status string

const (
	Bsv21StatusValid   Bsv21Status = "valid"
	Bsv21StatusInvalid Bsv21Status = "invalid"
	Bsv21StatusPending Bsv21Status = "pending"
)

// Bsv21Data is the decoder-specific payload stored under Txo.Data[Bsv21Tag].
type Bsv21Data struct {
	TokenID string
	Op      Bsv21Op
	Amount  uint64
	Sym     string
	Icon    string
	Dec     uint8
	Status  Bsv21Status
}

type bsv21payload struct {
	P   string `json:"p"`
	Op  string `json:"op"`
	ID  string `json:"id"`
	Amt string `json:"amt"`
}

// bsv21Client is the subset of client.Bsv21Service Bsv21's summarize phase
// needs.
type bsv21Client interface {
	Tx(ctx context.Context, tokenID, txid string) (*client.TokenTx, error)
	Details(ctx context.Context, tokenID string) (*client.TokenDetails, error)
}

// Bsv21 recognises the fungible-token overlay layered on 1-sat inscriptions
// (contentType "application/bsv-20"), grounded on
// contract/meta-contract/decoder/ft.go's ExtractFTInfo/GetContractType shape
// — a script-carried token payload classified into a typed info struct —
// adapted from MetaID's binary TxoData encoding to the bsv-20 JSON payload.
type Bsv21 struct {
	Overlay bsv21Client
}

func (Bsv21) Tag() string { return Bsv21Tag }

func (Bsv21) Parse(t *txo.Txo) *txo.ParseResult {
	if t.Satoshis != 1 {
		return nil
	}
	d, ok := t.Data[InscriptionTag]
	if !ok {
		return nil
	}
	id, ok := d.Data.(*InscriptionData)
	if !ok || id.File == nil || id.File.Type != bsv21ContentType {
		return nil
	}
	var payload bsv21payload
	if err := json.Unmarshal(id.File.Content, &payload); err != nil || payload.P != "bsv-20" {
		return nil
	}
	var amt uint64
	fmt.Sscanf(payload.Amt, "%d", &amt)

	tokenID := payload.ID
	if payload.Op == string(Bsv21OpDeploy) {
		tokenID = t.Outpoint.String()
	}

	basket := "bsv21"
	return &txo.ParseResult{
		Data:   &Bsv21Data{TokenID: tokenID, Op: Bsv21Op(payload.Op), Amount: amt, Status: Bsv21StatusPending},
		Basket: &basket,
	}
}

func (b Bsv21) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	type totals struct {
		in, out     uint64
		inputCount  int
		outputCount int
		pending     bool
		invalid     bool
	}
	byToken := make(map[string]*totals)

	forEach := func(txos []*txo.Txo, isInput bool) {
		for _, t := range txos {
			d, ok := t.Data[Bsv21Tag]
			if !ok {
				continue
			}
			bd, ok := d.Data.(*Bsv21Data)
			if !ok || (bd.Op != Bsv21OpTransfer && bd.Op != Bsv21OpBurn) {
				continue
			}
			tot := byToken[bd.TokenID]
			if tot == nil {
				tot = &totals{}
				byToken[bd.TokenID] = tot
			}
			if isInput {
				tot.in += bd.Amount
				tot.inputCount++
			} else {
				tot.out += bd.Amount
				tot.outputCount++
			}
		}
	}
	forEach(ctx.Spends, true)
	forEach(ctx.Txos, false)

	if b.Overlay != nil {
		for tokenID, tot := range byToken {
			for _, t := range ctx.Spends {
				d, ok := t.Data[Bsv21Tag]
				if !ok {
					continue
				}
				bd, ok := d.Data.(*Bsv21Data)
				if !ok || bd.TokenID != tokenID {
					continue
				}
				if _, err := b.Overlay.Tx(goCtx, tokenID, ctx.Txid); err != nil {
					if client.IsNotFound(err) {
						tot.pending = true
					} else {
						return nil, fmt.Errorf("bsv21: overlay lookup %s: %w", tokenID, err)
					}
				}
			}
		}
	}

	for tokenID, tot := range byToken {
		if tot.inputCount == 0 {
			tot.invalid = true
		} else if !tot.pending {
			tot.invalid = tot.in < tot.out
		}
		var details *client.TokenDetails
		if b.Overlay != nil {
			details, _ = b.Overlay.Details(goCtx, tokenID)
		}
		for _, t := range ctx.Txos {
			d, ok := t.Data[Bsv21Tag]
			if !ok {
				continue
			}
			bd, ok := d.Data.(*Bsv21Data)
			if !ok || bd.TokenID != tokenID {
				continue
			}
			switch {
			case tot.pending:
				bd.Status = Bsv21StatusPending
			case tot.invalid:
				bd.Status = Bsv21StatusInvalid
			default:
				bd.Status = Bsv21StatusValid
			}
			if details != nil {
				bd.Sym, bd.Icon, bd.Dec = details.Sym, details.Icon, details.Dec
			}
			tags := []string{
				fmt.Sprintf("id:%s", bd.TokenID),
				fmt.Sprintf("id:%s:%s", bd.TokenID, bd.Status),
				fmt.Sprintf("amt:%d", bd.Amount),
			}
			t.Data[Bsv21Tag] = txo.IndexData{Data: bd, Tags: tags}
		}
	}

	// Genesis (deploy+mint) outputs create fresh supply rather than moving
	// existing supply, so they never enter byToken above (forEach only
	// tracks transfer/burn) and need no input/output balance check — tag
	// them valid directly.
	for _, t := range ctx.Txos {
		d, ok := t.Data[Bsv21Tag]
		if !ok {
			continue
		}
		bd, ok := d.Data.(*Bsv21Data)
		if !ok || bd.Op != Bsv21OpDeploy {
			continue
		}
		bd.Status = Bsv21StatusValid
		tags := []string{
			fmt.Sprintf("id:%s", bd.TokenID),
			fmt.Sprintf("id:%s:%s", bd.TokenID, bd.Status),
			fmt.Sprintf("amt:%d", bd.Amount),
		}
		t.Data[Bsv21Tag] = txo.IndexData{Data: bd, Tags: tags}
	}
	return nil, nil
}

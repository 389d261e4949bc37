package decoder

import (
	"context"
	"fmt"
	"mime"
	"strings"

	"github.com/b-open-io/1sat-wallet-toolbox/client"
	"github.com/b-open-io/1sat-wallet-toolbox/outpoint"
	"github.com/b-open-io/1sat-wallet-toolbox/txo"
)

// OriginTag is the stable tag for Origin-decoded outputs.
const OriginTag = "origin"

const maxEagerContentBytes = 1000

// OriginData is the decoder-specific payload stored under
// Txo.Data[OriginTag].
type OriginData struct {
	Outpoint      string
	Sequence      uint64
	Map           map[string]string
	ContentType   string
	ContentLength int64
	Parent        *string
	IsTransfer    bool
}

// ordfsClient is the subset of client.OrdFSService Origin's summarize phase
// needs; accepted as an interface so tests can supply a fake.
type ordfsClient interface {
	Metadata(ctx context.Context, outpoint string) (*client.Metadata, error)
	Fetch(ctx context.Context, outpoint string) (*client.Content, error)
}

// Origin tracks the provenance of a 1-sat ordinal across transfers.
// Grounded on shruggr-go-ordfs-server/types.go's Resolution (origin/current/
// sequence) shape and spec §4.2 item 6's cumulative-satoshi-position
// alignment rule.
type Origin struct {
	OrdFS ordfsClient
}

func (Origin) Tag() string { return OriginTag }

// Parse tentatively classes every 1-sat output as a new origin and claims
// basket "1sat"; Bsv21, which runs later in the fixed order, reclassifies
// the basket to "bsv21" for outputs it recognises as token payloads
// (Txo.SetBasket is last-write-wins), so Origin does not need to pre-detect
// token payloads itself.
func (Origin) Parse(t *txo.Txo) *txo.ParseResult {
	if t.Satoshis != 1 {
		return nil
	}
	basket := "1sat"
	return &txo.ParseResult{
		Data:   &OriginData{Outpoint: t.Outpoint.String(), Sequence: 0, IsTransfer: false},
		Basket: &basket,
	}
}

func (o Origin) Summarize(goCtx context.Context, ctx *txo.ParseContext, isBroadcast bool) (*txo.IndexSummary, error) {
	outAcc := cumulativeSatoshis(ctx.Txos)
	inAcc := cumulativeSatoshis(ctx.Spends)

	for i, t := range ctx.Txos {
		d, ok := t.Data[OriginTag]
		if !ok {
			continue
		}
		od, ok := d.Data.(*OriginData)
		if !ok {
			continue
		}
		if insc, ok := t.Data[InscriptionTag]; ok {
			if id, ok := insc.Data.(*InscriptionData); ok {
				if p := parentOutpointString(id.Parent); p != "" {
					od.Parent = &p
				}
			}
		}

		sourceIdx := alignedOneSatInput(ctx.Spends, inAcc, outAcc[i])
		var inherited map[string]string
		var content []byte
		var contentType string

		if sourceIdx >= 0 && o.OrdFS != nil {
			source := ctx.Spends[sourceIdx]
			meta, err := o.OrdFS.Metadata(goCtx, source.Outpoint.String())
			if err != nil && !client.IsNotFound(err) {
				return nil, fmt.Errorf("origin: fetch metadata for %s: %w", source.Outpoint, err)
			}
			if err == nil {
				od.IsTransfer = true
				if meta.Origin != nil {
					od.Outpoint = *meta.Origin
				}
				od.Sequence = meta.Sequence + 1
				od.ContentType = meta.ContentType
				od.ContentLength = meta.ContentLength
				inherited = meta.Map
				contentType = meta.ContentType

				if od.Parent != nil {
					if _, perr := o.OrdFS.Metadata(goCtx, *od.Parent); client.IsNotFound(perr) {
						od.Parent = nil
					}
				}
			}
		}

		merged := mergeMap(inherited, currentMapData(t))
		od.Map = merged

		tags := []string{fmt.Sprintf("origin:%s", od.Outpoint)}
		if contentType != "" {
			tags = append(tags, fmt.Sprintf("type:%s", categoryOf(contentType)), fmt.Sprintf("type:%s", contentType))
		}
		if name, ok := merged["name"]; ok && name != "" {
			tags = append(tags, fmt.Sprintf("name:%s", name))
		}

		if sourceIdx >= 0 && o.OrdFS != nil && od.ContentLength > 0 && od.ContentLength <= maxEagerContentBytes && isTextish(contentType) {
			if c, err := o.OrdFS.Fetch(goCtx, od.Outpoint); err == nil {
				content = c.Body
			}
		}

		entry := txo.IndexData{Data: od, Tags: tags}
		if len(content) > 0 {
			s := string(content)
			entry.Content = &s
		}
		t.Data[OriginTag] = entry
	}
	return nil, nil
}

// cumulativeSatoshis returns, for each txo index, the sum of satoshis of
// every preceding txo — its position in the output (or input) set.
func cumulativeSatoshis(txos []*txo.Txo) []uint64 {
	acc := make([]uint64, len(txos))
	var sum uint64
	for i, t := range txos {
		acc[i] = sum
		sum += t.Satoshis
	}
	return acc
}

// alignedOneSatInput finds a 1-satoshi input whose cumulative position
// matches targetPos, indicating it is the source of a 1-sat output at that
// position.
func alignedOneSatInput(spends []*txo.Txo, inAcc []uint64, targetPos uint64) int {
	for i, t := range spends {
		if t.Satoshis == 1 && inAcc[i] == targetPos {
			return i
		}
	}
	return -1
}

// parentOutpointString decodes a 36-byte (32-byte big-endian txid plus
// 4-byte big-endian vout) ordinal parent field into its canonical outpoint
// string, the same wire form outpoint.ToBigEndianBytes produces. Returns ""
// for a field that isn't present or isn't outpoint-shaped.
func parentOutpointString(b []byte) string {
	if len(b) != 36 {
		return ""
	}
	var txid [32]byte
	copy(txid[:], b[:32])
	vout := uint32(b[32])<<24 | uint32(b[33])<<16 | uint32(b[34])<<8 | uint32(b[35])
	return outpoint.FromPair(txid, vout).String()
}

func currentMapData(t *txo.Txo) map[string]string {
	d, ok := t.Data[MapTag]
	if !ok {
		return nil
	}
	md, ok := d.Data.(*MapData)
	if !ok {
		return nil
	}
	return md.Data
}

func mergeMap(inherited, current map[string]string) map[string]string {
	if len(inherited) == 0 && len(current) == 0 {
		return nil
	}
	merged := make(map[string]string, len(inherited)+len(current))
	for k, v := range inherited {
		merged[k] = v
	}
	for k, v := range current {
		merged[k] = v
	}
	return merged
}

func categoryOf(contentType string) string {
	base, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		base = contentType
	}
	if i := strings.Index(base, "/"); i >= 0 {
		return base[:i]
	}
	return base
}

func isTextish(contentType string) bool {
	return strings.HasPrefix(contentType, "text/") ||
		contentType == "application/json" ||
		contentType == "application/bsv-20"
}

// Package decoder implements the ten fixed-order protocol decoders: fund,
// lock, inscription, sigma, mapkv, origin, bsv21, ordlock, opns, and cosign.
// Each decoder is a txo.Decoder value; Registry returns them in the fixed
// evaluation order the parser pipeline requires.
package decoder

import (
	"github.com/bsv-blockchain/go-sdk/script"

	"github.com/b-open-io/1sat-wallet-toolbox/common"
)

// Op is one decoded script operation: either a pushed data chunk (Data set,
// Code < OpPUSHDATA4's threshold) or a bare opcode.
type Op struct {
	Code byte
	Data []byte
}

// ReadOps walks raw, standard pushdata-encoded script bytes into a flat op
// list. Unlike go-sdk's script.Script.ReadOp (consumed one call at a time by
// the bitcom-style decoders in the retrieval pack), decoders here want the
// whole script up front since most templates are matched by fixed-position
// lookahead (OP_RETURN frame boundaries, envelope nesting).
func ReadOps(b []byte) []Op {
	var ops []Op
	for i := 0; i < len(b); {
		code := b[i]
		i++
		switch {
		case code >= 1 && code <= 75:
			if i+int(code) > len(b) {
				return ops
			}
			ops = append(ops, Op{Code: code, Data: b[i : i+int(code)]})
			i += int(code)
		case code == script.OpPUSHDATA1:
			if i >= len(b) {
				return ops
			}
			n := int(b[i])
			i++
			if i+n > len(b) {
				return ops
			}
			ops = append(ops, Op{Code: code, Data: b[i : i+n]})
			i += n
		case code == script.OpPUSHDATA2:
			if i+2 > len(b) {
				return ops
			}
			n := int(b[i]) | int(b[i+1])<<8
			i += 2
			if i+n > len(b) {
				return ops
			}
			ops = append(ops, Op{Code: code, Data: b[i : i+n]})
			i += n
		case code == script.OpPUSHDATA4:
			if i+4 > len(b) {
				return ops
			}
			n := int(b[i]) | int(b[i+1])<<8 | int(b[i+2])<<16 | int(b[i+3])<<24
			i += 4
			if i+n > len(b) {
				return ops
			}
			ops = append(ops, Op{Code: code, Data: b[i : i+n]})
			i += n
		default:
			ops = append(ops, Op{Code: code})
		}
	}
	return ops
}

// IsData reports whether op carries a pushed data payload.
func (op Op) IsData() bool { return op.Code <= script.OpPUSHDATA4 && op.Code != script.OpRETURN }

const (
	addressVersionMainnet = 0x00
)

// p2pkhPattern matches the canonical OP_DUP OP_HASH160 <20 bytes>
// OP_EQUALVERIFY OP_CHECKSIG output template and returns the embedded
// pubkey hash, or nil if the script does not match.
func p2pkhPubKeyHash(ops []Op) []byte {
	if len(ops) != 5 {
		return nil
	}
	if ops[0].Code != script.OpDUP || ops[1].Code != script.OpHASH160 {
		return nil
	}
	if len(ops[2].Data) != 20 {
		return nil
	}
	if ops[3].Code != script.OpEQUALVERIFY || ops[4].Code != script.OpCHECKSIG {
		return nil
	}
	return ops[2].Data
}

// addressFromPubKeyHash renders the standard mainnet P2PKH address for a
// 20-byte pubkey hash.
func addressFromPubKeyHash(pkh []byte) string {
	return common.Base58CheckEncode(addressVersionMainnet, pkh)
}

// opReturnFrames returns, for each top-level OP_RETURN in ops, the ops that
// follow it up to (but not including) the next OP_RETURN. Bitcom protocol
// identifiers (MAP, B, SIGMA, …) live at the start of such a frame, or after
// a "|" pipe push chaining a second protocol into the same frame, grounded
// on shruggr-casemod-indexer/bitcom.go's scan loop.
func opReturnFrames(ops []Op) [][]Op {
	var frames [][]Op
	start := -1
	for i, op := range ops {
		if op.Code == script.OpRETURN {
			if start >= 0 {
				frames = append(frames, ops[start:i])
			}
			start = i + 1
		}
	}
	if start >= 0 {
		frames = append(frames, ops[start:])
	}
	return frames
}

// pipeSegments splits a single OP_RETURN frame into bitcom-chained
// sub-frames at each bare "|" data push.
func pipeSegments(frame []Op) [][]Op {
	var segs [][]Op
	start := 0
	for i, op := range frame {
		if len(op.Data) == 1 && op.Data[0] == '|' {
			segs = append(segs, frame[start:i])
			start = i + 1
		}
	}
	segs = append(segs, frame[start:])
	return segs
}

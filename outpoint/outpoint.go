// Package outpoint implements the Outpoint value type shared across the
// decoder, parser, queue and wallet packages: the (txid, vout) pair that
// identifies a single output of a single transaction.
package outpoint

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed is returned when a string does not parse as an Outpoint:
// exactly 64 lowercase hex characters, an underscore, then a non-negative
// decimal vout.
var ErrMalformed = errors.New("malformed outpoint")

// Outpoint is an immutable (txid, vout) pair. The zero value is not a valid
// outpoint; always construct via FromPair or FromString.
type Outpoint struct {
	Txid [32]byte
	Vout uint32
}

// FromPair builds an Outpoint from a 32-byte txid and a vout.
func FromPair(txid [32]byte, vout uint32) Outpoint {
	return Outpoint{Txid: txid, Vout: vout}
}

// FromString parses the canonical "<64 hex>_<decimal vout>" form.
func FromString(s string) (Outpoint, error) {
	idx := strings.LastIndexByte(s, '_')
	if idx != 64 {
		return Outpoint{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	txidHex, voutStr := s[:idx], s[idx+1:]
	if len(voutStr) == 0 {
		return Outpoint{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	for _, c := range voutStr {
		if c < '0' || c > '9' {
			return Outpoint{}, fmt.Errorf("%w: %q", ErrMalformed, s)
		}
	}
	txidBytes, err := hex.DecodeString(txidHex)
	if err != nil || len(txidBytes) != 32 || txidHex != strings.ToLower(txidHex) {
		return Outpoint{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	vout, err := strconv.ParseUint(voutStr, 10, 32)
	if err != nil {
		return Outpoint{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	var op Outpoint
	copy(op.Txid[:], txidBytes)
	op.Vout = uint32(vout)
	return op, nil
}

// String renders the canonical "<64 hex>_<decimal vout>" form.
func (o Outpoint) String() string {
	return hex.EncodeToString(o.Txid[:]) + "_" + strconv.FormatUint(uint64(o.Vout), 10)
}

// TxidHex returns the lowercase hex txid.
func (o Outpoint) TxidHex() string {
	return hex.EncodeToString(o.Txid[:])
}

// ToBigEndianBytes returns the 36-byte wire form: 32-byte big-endian txid
// followed by the 4-byte big-endian vout.
func (o Outpoint) ToBigEndianBytes() []byte {
	buf := make([]byte, 36)
	copy(buf, o.Txid[:])
	buf[32] = byte(o.Vout >> 24)
	buf[33] = byte(o.Vout >> 16)
	buf[34] = byte(o.Vout >> 8)
	buf[35] = byte(o.Vout)
	return buf
}

// Equal reports whether two outpoints refer to the same output.
func (o Outpoint) Equal(other Outpoint) bool {
	return o.Txid == other.Txid && o.Vout == other.Vout
}
